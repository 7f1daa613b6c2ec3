package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/resolvo/resolvo/internal/api"
	"github.com/resolvo/resolvo/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the REST API: chat (sync and SSE streaming), session management,
ticket management, and health probes. Shuts down gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		addr := serveAddr
		if addr == "" {
			addr = a.Config.ListenAddr
		}

		server, err := api.NewServer(api.Config{
			Pool:        a.DBPool,
			Sessions:    a.Sessions,
			Tickets:     a.Tickets,
			Flow:        a.Flow,
			Logger:      a.Logger,
			TrustProxy:  a.Config.TrustProxy,
			CORSOrigins: a.Config.CORSOrigins,
			RateBurst:   a.Config.RateBurst,
		})
		if err != nil {
			return err
		}

		a.Logger.Info("HTTP server ready",
			"addr", addr,
			"api", "/api/*",
			"health", "/health, /ready",
		)
		return server.Run(ctx, addr)
	})
}
