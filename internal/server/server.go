// Package server assembles the Echo application: middleware, session store,
// routes, and the metrics endpoint.
package server

import (
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do/v2"

	"github.com/ecoh2o/portal/internal/config"
	"github.com/ecoh2o/portal/internal/domain"
)

// Server holds the Echo instance and the application graph behind it.
type Server struct {
	E        *echo.Echo
	Cfg      config.Provider
	injector do.Injector
}

// New creates a Server around an already-built injector.
func New(cfg config.Provider, injector do.Injector) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	}
	e.Use(session.Middleware(store))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{
		E:        e,
		Cfg:      cfg,
		injector: injector,
	}
}

// UserStore exposes the user repository, useful for tests that need to seed
// accounts.
func (s *Server) UserStore() domain.UserRepository {
	return do.MustInvoke[domain.UserRepository](s.injector)
}
