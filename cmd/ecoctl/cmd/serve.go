package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/ecoh2o/portal/internal/app"
	"github.com/ecoh2o/portal/internal/config"
	"github.com/ecoh2o/portal/internal/hub"
	"github.com/ecoh2o/portal/internal/logging"
	"github.com/ecoh2o/portal/internal/pubsub"
	"github.com/ecoh2o/portal/internal/server"
	"github.com/ecoh2o/portal/internal/websocket"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		logging.New()
		cfg := config.New()
		injector := app.New(cfg)

		bridge := do.MustInvoke[*pubsub.WatermillBridge](injector)
		streamHub := do.MustInvoke[*hub.Hub](injector)
		if err := websocket.RegisterAlertRelay(context.Background(), bridge, streamHub); err != nil {
			slog.Error("Failed to register alert relay", "error", err)
			os.Exit(1)
		}

		s := server.New(cfg, injector)
		s.RegisterRoutes()

		addr := serveAddr
		if addr == "" {
			addr = cfg.GetHTTPAddr()
		}
		s.Start(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
