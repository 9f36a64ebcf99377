// Package app wires the application graph. Every service is registered in a
// samber/do injector so construction order, sharing, and shutdown are handled
// in one place.
package app

import (
	"context"

	"github.com/samber/do/v2"
	"github.com/surrealdb/surrealdb.go"

	"github.com/ecoh2o/portal/internal/config"
	"github.com/ecoh2o/portal/internal/database"
	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/handlers"
	"github.com/ecoh2o/portal/internal/hub"
	"github.com/ecoh2o/portal/internal/pubsub"
	"github.com/ecoh2o/portal/internal/realtime"
	"github.com/ecoh2o/portal/internal/session"
	"github.com/ecoh2o/portal/internal/websocket"
)

// New builds the injector with every service the server needs.
func New(cfg config.Provider) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i do.Injector) (*surrealdb.DB, error) {
		return database.NewDB(context.Background(), do.MustInvoke[config.Provider](i))
	})

	do.Provide(injector, func(i do.Injector) (domain.UserRepository, error) {
		c := do.MustInvoke[config.Provider](i)
		db := do.MustInvoke[*surrealdb.DB](i)
		return database.NewSurrealUserStore(db, c.GetDBNs(), c.GetDBDb()), nil
	})
	do.Provide(injector, func(i do.Injector) (domain.ProfileRepository, error) {
		return database.NewSurrealProfileStore(do.MustInvoke[*surrealdb.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (domain.OrderRepository, error) {
		return database.NewSurrealOrderStore(do.MustInvoke[*surrealdb.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (domain.SubscriptionRepository, error) {
		return database.NewSurrealSubscriptionStore(do.MustInvoke[*surrealdb.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (domain.NotificationRepository, error) {
		return database.NewSurrealNotificationStore(do.MustInvoke[*surrealdb.DB](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (database.ChangeFeed, error) {
		return database.NewSurrealChangeFeed(do.MustInvoke[*surrealdb.DB](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*pubsub.WatermillBridge, error) {
		return pubsub.NewWatermillBridge(), nil
	})

	do.Provide(injector, func(i do.Injector) (*hub.Hub, error) {
		h := hub.NewHub()
		go h.Run()
		return h, nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.AuthHandler, error) {
		return handlers.NewAuthHandler(managerFactory(i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.PortalHandler, error) {
		return handlers.NewPortalHandler(
			do.MustInvoke[domain.OrderRepository](i),
			do.MustInvoke[domain.SubscriptionRepository](i),
			do.MustInvoke[domain.NotificationRepository](i),
			do.MustInvoke[domain.ProfileRepository](i),
			managerFactory(i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.OrderHandler, error) {
		return handlers.NewOrderHandler(
			do.MustInvoke[domain.OrderRepository](i),
			do.MustInvoke[domain.NotificationRepository](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.SubscriptionHandler, error) {
		return handlers.NewSubscriptionHandler(
			do.MustInvoke[domain.SubscriptionRepository](i),
			do.MustInvoke[domain.NotificationRepository](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.NotificationHandler, error) {
		return handlers.NewNotificationHandler(do.MustInvoke[domain.NotificationRepository](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*handlers.HomeHandler, error) {
		return handlers.NewHomeHandler(), nil
	})

	do.Provide(injector, func(i do.Injector) (*websocket.Handler, error) {
		return websocket.NewHandler(
			do.MustInvoke[*hub.Hub](i),
			managerFactory(i),
			coordinatorFactory(i),
		), nil
	})

	return injector
}

// managerFactory yields fresh session managers. Managers carry per-caller
// state and must never be shared, so they stay out of the injector itself.
func managerFactory(i do.Injector) func() *session.Manager {
	users := do.MustInvoke[domain.UserRepository](i)
	profiles := do.MustInvoke[domain.ProfileRepository](i)
	return func() *session.Manager {
		return session.NewManager(users, profiles)
	}
}

// coordinatorFactory yields fresh realtime coordinators, one per stream.
func coordinatorFactory(i do.Injector) func() *realtime.Coordinator {
	orders := do.MustInvoke[domain.OrderRepository](i)
	subs := do.MustInvoke[domain.SubscriptionRepository](i)
	notifs := do.MustInvoke[domain.NotificationRepository](i)
	feed := do.MustInvoke[database.ChangeFeed](i)
	bridge := do.MustInvoke[*pubsub.WatermillBridge](i)
	return func() *realtime.Coordinator {
		return realtime.NewCoordinator(orders, subs, notifs, feed, bridge)
	}
}
