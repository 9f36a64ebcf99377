package server

import (
	"github.com/samber/do/v2"

	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/handlers"
	"github.com/ecoh2o/portal/internal/middleware"
	"github.com/ecoh2o/portal/internal/websocket"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	s.E.Validator = handlers.NewValidator()

	home := do.MustInvoke[*handlers.HomeHandler](s.injector)
	auth := do.MustInvoke[*handlers.AuthHandler](s.injector)
	portal := do.MustInvoke[*handlers.PortalHandler](s.injector)
	orders := do.MustInvoke[*handlers.OrderHandler](s.injector)
	subs := do.MustInvoke[*handlers.SubscriptionHandler](s.injector)
	notifs := do.MustInvoke[*handlers.NotificationHandler](s.injector)
	stream := do.MustInvoke[*websocket.Handler](s.injector)

	rateLimiter := middleware.RateLimiter()
	requireAuth := middleware.Auth(do.MustInvoke[domain.UserRepository](s.injector))

	// Public marketing pages.
	s.E.GET("/", home.Home)
	s.E.GET("/health", home.Health)

	// Authentication.
	s.E.POST("/auth/login", auth.LoginPost, rateLimiter)
	s.E.POST("/auth/register", auth.RegisterPost, rateLimiter)
	s.E.GET("/auth/logout", auth.Logout)

	// Customer portal. The stream does its own session restore because the
	// websocket handshake cannot follow a redirect.
	p := s.E.Group("/portal", requireAuth)
	p.GET("", portal.Overview)
	p.POST("/profile", portal.UpdateProfile)
	p.POST("/orders", orders.Create)
	p.POST("/subscriptions", subs.Create)
	p.GET("/notifications", notifs.List)
	p.POST("/notifications/:id/read", notifs.MarkRead)

	s.E.GET("/portal/stream", stream.Serve)
}
