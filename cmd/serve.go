package cmd

import (
	"log/slog"

	"github.com/danielolaszy/covalynce/internal/config"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP trigger surface.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the GitHub webhook and story check endpoints",
	Long: `Start an HTTP server exposing:

  POST /webhooks/github?user_id=<id>  GitHub pull_request webhook
  POST /stories/check                 on-demand story reconciliation (X-User-Id header)
  GET  /healthz                       liveness probe

Set GITHUB_WEBHOOK_SECRET to require signed webhook deliveries.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Webhook.Addr = addr
		}
		if err := config.ValidateWebhookConfig(cfg); err != nil {
			return err
		}

		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		if logging.GetLogger().Enabled(cmd.Context(), slog.LevelDebug) {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		if cfg.Webhook.Secret == "" {
			logging.Warn("webhook signature validation disabled, set GITHUB_WEBHOOK_SECRET")
		}

		engine := newEngine(cfg, s)
		server := webhook.NewServer(engine.Merges, engine.Stories, cfg.Webhook.Secret)
		return server.Run(cfg.Webhook.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address, overrides WEBHOOK_ADDR")
}
