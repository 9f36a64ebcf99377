package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/surrealdb/surrealdb.go"
)

// Start runs the HTTP server until an interrupt or terminate signal arrives,
// then shuts everything down with a timeout.
func (s *Server) Start(addr string) {
	go func() {
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if db, err := do.Invoke[*surrealdb.DB](s.injector); err == nil {
		db.Close(ctx)
	}
	if err := s.E.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
