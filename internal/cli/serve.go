package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-donor-auth/portal"
)

func newServeCommand(app func() *App) *cobra.Command {
	var (
		listen    string
		accessLog bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local web portal",
		Long: `Run the donor web portal on a loopback address. The portal shares the
session stored by the other commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()

			cfg := a.Config.Portal
			if listen != "" {
				cfg.Listen = listen
			}

			opts := []portal.Option{portal.WithLogger(a.Logger), portal.WithAccessLog(nil)}
			if accessLog {
				opts[1] = portal.WithAccessLog(cmd.ErrOrStderr())
			}

			p, err := portal.New(cfg, portal.Deps{
				Session:   a.Session,
				Requests:  a.Requests,
				Uploader:  a.Uploader,
				Locations: a.Locations,
			}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(a.out, successStyle.Render("Portal running on http://"+cfg.Listen))

			return p.Listen(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on, overrides the configuration")
	cmd.Flags().BoolVar(&accessLog, "access-log", false, "Print the HTTP access log")

	return cmd
}
