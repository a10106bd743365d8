package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/dom"
	"github.com/sauldoescode/saul.app/pkg/hashroute"
	"github.com/sauldoescode/saul.app/pkg/site"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

func routesCmd() *cobra.Command {
	var member bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the hash routes of the site",
		Long: `Mount the site the way a guest (or, with --member, a verified
reader) sees it and list every registered hash route.`,
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

			all, err := writs.Query(cmd.Context(), writ.Query{Public: true})
			if err != nil {
				return err
			}
			var user *auth.User
			if member {
				user = &auth.User{Roles: []auth.Role{auth.VerifiedUser}}
			}

			doc := dom.NewDocument()
			router := hashroute.Install(doc)
			defer router.Close()
			site.Mount(doc, router, site.Options{
				AppName: cfg.AppName,
				Writs:   site.Visible(all, user),
				User:    user,
				Context: cmd.Context(),
			})
			doc.Flush()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROUTE\tVIEW\tCONSUMERS")
			for _, name := range router.Routes() {
				r, _ := router.Route(name)
				_, hasView := r.View()
				fmt.Fprintf(tw, "%s\t%v\t%d\n", name, hasView, r.ConsumerCount())
			}
			named, unnamed := router.Bindings()
			fmt.Fprintf(tw, "\n%d routes, %d named and %d unnamed bindings\n", len(router.Routes()), named, unnamed)
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&member, "member", false, "Include members-only writs")

	return cmd
}
