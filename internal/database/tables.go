package database

// Logical table names. The change feed and the stores must agree on these.
const (
	TableProfiles      = "profiles"
	TableOrders        = "orders"
	TableSubscriptions = "waste_subscriptions"
	TableNotifications = "notifications"
)
