// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts water orders accepted by the portal.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_orders_placed_total",
		Help: "Number of water orders placed through the portal.",
	})

	// SubscriptionsCreated counts waste-collection plan sign-ups.
	SubscriptionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_waste_subscriptions_created_total",
		Help: "Number of waste-collection subscriptions created through the portal.",
	})

	// NotificationsDelivered counts alert fragments pushed over live streams.
	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_notifications_delivered_total",
		Help: "Number of notification alerts delivered over portal streams.",
	})

	// SignInFailures counts rejected credential pairs.
	SignInFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_sign_in_failures_total",
		Help: "Number of sign-in attempts rejected by the auth provider.",
	})
)
