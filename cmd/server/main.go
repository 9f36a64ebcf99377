package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/ecoh2o/portal/internal/app"
	"github.com/ecoh2o/portal/internal/config"
	"github.com/ecoh2o/portal/internal/hub"
	"github.com/ecoh2o/portal/internal/logging"
	"github.com/ecoh2o/portal/internal/pubsub"
	"github.com/ecoh2o/portal/internal/server"
	"github.com/ecoh2o/portal/internal/websocket"
)

func main() {
	logging.New()
	cfg := config.New()

	injector := app.New(cfg)

	// The alert relay runs for the process lifetime.
	bridge := do.MustInvoke[*pubsub.WatermillBridge](injector)
	streamHub := do.MustInvoke[*hub.Hub](injector)
	if err := websocket.RegisterAlertRelay(context.Background(), bridge, streamHub); err != nil {
		slog.Error("Failed to register alert relay", "error", err)
		os.Exit(1)
	}

	s := server.New(cfg, injector)
	s.RegisterRoutes()
	s.Start(cfg.GetHTTPAddr())
}
