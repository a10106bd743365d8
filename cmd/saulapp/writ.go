package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	apperrors "github.com/sauldoescode/saul.app/internal/errors"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

func writCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "writ",
		Short: "Manage writs",
	}
	cmd.AddCommand(writImportCmd())
	return cmd
}

// importOptions fill in what a file's front matter leaves out.
type importOptions struct {
	author string
	tags   []string
	public bool
	dryRun bool
}

func writImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file.md>...",
		Short: "Import markdown files as writs",
		Long: `Create or update one writ per markdown file. A file may start with
YAML front matter (title, description, author, tags, public,
membersOnly); otherwise its first "# " heading is the title. Writs are
matched by title, so importing a file again updates its writ.

Examples:
  saulapp writ import --author=saul posts/*.md
  saulapp writ import --tags=notes --public draft.md`,
		Args: cobra.MinimumNArgs(1),
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

			imported, err := importFiles(cmd.Context(), writs, args, opts)
			for _, w := range imported {
				success("%s → #writ-%s", w.Title, w.Slug)
			}
			if opts.dryRun {
				info("dry run, nothing saved")
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.author, "author", "a", "", "Author username when the file names none")
	cmd.Flags().StringSliceVarP(&opts.tags, "tags", "t", nil, "Tags when the file names none")
	cmd.Flags().BoolVar(&opts.public, "public", false, "Publish writs whose front matter does not")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Parse files without saving")

	return cmd
}

// importFiles saves each file as a writ and stops at the first failure.
func importFiles(ctx context.Context, writs *writ.Store, paths []string, opts importOptions) ([]*writ.Writ, error) {
	var imported []*writ.Writ
	for _, path := range paths {
		w, err := readWrit(path, opts)
		if err == nil && !opts.dryRun {
			err = writs.Save(ctx, w)
		}
		if err != nil {
			return imported, apperrors.New("E160").
				WithDetail(fmt.Sprintf("%s: %v", filepath.Base(path), err)).
				WithSuggestion("Add a title and tags in front matter, or pass --tags and --author.").
				Wrap(err)
		}
		if opts.dryRun {
			w.Slugify()
		}
		imported = append(imported, w)
	}
	return imported, nil
}

func readWrit(path string, opts importOptions) (*writ.Writ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w, err := writ.ParseFile(data)
	if err != nil {
		return nil, err
	}
	if w.Author == "" {
		w.Author = opts.author
	}
	if len(w.Tags) == 0 {
		w.Tags = opts.tags
	}
	if opts.public {
		w.Public = true
	}
	return w, nil
}
