package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sauldoescode/saul.app/internal/config"
	apperrors "github.com/sauldoescode/saul.app/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐┬ ┬┬    ┌─┐┌─┐┌─┐
  └─┐├─┤│ ││    ├─┤├─┘├─┘
  └─┘┴ ┴└─┘┴─┘o ┴ ┴┴  ┴
`

// configPath is the --config flag shared by every command.
var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "saulapp",
		Short: "A hash-routed blog served live over WebSockets",
		Long: `saulapp serves a single-page blog whose views are switched by the
URL hash. Pages are rendered on the server, then kept live over a
WebSocket: clicks and hash changes run on the server and only the
changed nodes are patched into the browser.

Configuration is read from saulapp.json, saulapp.yaml or saulapp.yml
in the working directory or one of its parents, then overridden by
SAULAPP_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search from working dir)")

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(),
		renderCmd(),
		routesCmd(),
		writCmd(),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		apperrors.PrintError(err)
		os.Exit(1)
	}
}

// loadConfig reads, overrides and validates the configuration, then
// installs the configured logger as the slog default.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))
	return cfg, nil
}

func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
