package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sauldoescode/saul.app/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the blog server",
		Long: `Open the database and upload store, then serve the blog until
interrupted. SIGINT and SIGTERM close live sessions and drain
in-flight requests.

Examples:
  saulapp serve
  saulapp serve --port=8080 --dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}
			if host != "" {
				cfg.Host = host
			}
			if cmd.Flags().Changed("dev") {
				cfg.DevMode = dev
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.Default()
			deps, closer, err := server.OpenDeps(cfg, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			if cfg.DevMode {
				printBanner()
				info("dev mode on %s", cfg.BaseURL())
			}
			return server.New(cfg, deps, server.WithLogger(logger.With("component", "server"))).
				Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Run in dev mode")

	return cmd
}
