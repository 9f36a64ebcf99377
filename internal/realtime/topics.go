package realtime

// TopicNotificationNew carries one alert per freshly inserted notification
// row. The push layer subscribes and renders it for the owning identity.
const TopicNotificationNew = "notifications.new"

// NotificationAlert is the payload published on TopicNotificationNew.
type NotificationAlert struct {
	UserID    string `json:"user_id"`
	RecordID  string `json:"record_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}
