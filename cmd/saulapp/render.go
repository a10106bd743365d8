package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sauldoescode/saul.app/internal/config"
	"github.com/sauldoescode/saul.app/internal/db"
	apperrors "github.com/sauldoescode/saul.app/internal/errors"
	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/live"
	"github.com/sauldoescode/saul.app/pkg/render"
	"github.com/sauldoescode/saul.app/pkg/server"
	"github.com/sauldoescode/saul.app/pkg/site"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

func renderCmd() *cobra.Command {
	var (
		output   string
		withLive bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the public site to static HTML",
		Long: `Render the blog as a guest sees it: index.html plus one
writ/<slug>/index.html per public writ. Members-only writs are left out.

With --live the pages load the live client and reconnect to a running
server; without it they are plain static HTML.

Examples:
  saulapp render
  saulapp render --output=public --live`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, writs, err := openWrits(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := renderSite(cmd.Context(), cfg, writs, output, withLive)
			if err != nil {
				return apperrors.New("E161").Wrap(err)
			}
			success("Rendered %d pages into %s", n, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "dist", "Output directory")
	cmd.Flags().BoolVar(&withLive, "live", false, "Include the live client script")

	return cmd
}

// openWrits opens the configured database and a writ store on it.
func openWrits(cfg *config.Config, logger *slog.Logger) (*db.DB, *writ.Store, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, apperrors.New("E080").Wrap(err)
	}
	store := writ.NewStore(database, auth.NewStore(database),
		writ.WithLogger(logger.With("component", "writ")))
	return database, store, nil
}

// renderSite writes the guest view of every public page below dir and
// returns the number of pages written.
func renderSite(ctx context.Context, cfg *config.Config, writs *writ.Store, dir string, withLive bool) (int, error) {
	all, err := writs.Query(ctx, writ.Query{Public: true})
	if err != nil {
		return 0, err
	}
	opts := site.Options{
		AppName: cfg.AppName,
		Writs:   site.Visible(all, nil),
		Context: ctx,
		Logger:  slog.Default().With("component", "site"),
	}

	renderer := render.NewRenderer(render.RendererConfig{Pretty: true})
	page := render.PageData{
		StyleSheets: []string{cfg.Static.Prefix + "style.css"},
	}
	if withLive {
		page.LivePath = server.LivePath
		page.ClientScript = live.ClientPath
	}

	write := func(path, hash, title, description string) error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		p := page
		p.Body = site.Render(opts, hash)
		p.Title = title
		p.Description = description
		if err := renderer.RenderPage(f, p); err != nil {
			f.Close()
			return fmt.Errorf("rendering %s: %w", path, err)
		}
		return f.Close()
	}

	if err := write(filepath.Join(dir, "index.html"), "", cfg.AppName, "writs, ideas and perspectives"); err != nil {
		return 0, err
	}
	n := 1
	for _, w := range opts.Writs {
		if err := write(filepath.Join(dir, "writ", w.Slug, "index.html"), w.Route(), w.Title, w.Description); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
