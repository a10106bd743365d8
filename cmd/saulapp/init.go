package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sauldoescode/saul.app/internal/config"
)

func initCmd() *cobra.Command {
	var (
		appName string
		domain  string
		asYAML  bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write a saulapp.json (or saulapp.yaml with --yaml) holding the
default configuration into the working directory.

Examples:
  saulapp init --name="Saul's Blog" --domain=saul.app
  saulapp init --yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if config.Exists(wd) && !force {
				return fmt.Errorf("a config file already exists in %s (use --force to overwrite)", wd)
			}

			cfg := config.New()
			if appName != "" {
				cfg.AppName = appName
			}
			if domain != "" {
				cfg.Domain = domain
			}

			name := config.ConfigFileName
			if asYAML {
				name = "saulapp.yaml"
			}
			path := filepath.Join(wd, name)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			success("Wrote %s", path)
			info("Set SAULAPP_TOKEN_SECRET before serving outside dev mode.")
			return nil
		},
	}

	cmd.Flags().StringVar(&appName, "name", "", "Blog name")
	cmd.Flags().StringVar(&domain, "domain", "", "Public domain")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write YAML instead of JSON")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}
