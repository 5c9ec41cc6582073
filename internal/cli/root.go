// Package cli implements the donorctl commands.
package cli

import (
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/go-donor-auth/config"
)

const defaultConfigPath = "donorctl.yaml"

// NewRootCommand builds the donorctl command tree
func NewRootCommand(opts ...Option) *cobra.Command {
	var (
		configPath string
		storeKind  string
		verbose    bool
		app        *App
	)

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	root := &cobra.Command{
		Use:   "donorctl",
		Short: "Blood donation session client",
		Long: `donorctl logs in to the blood donation service, keeps the session token
between invocations and calls the protected donation request endpoints.

The same session backs the local web portal started with 'donorctl serve'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			if cfg == nil {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			if storeKind != "" {
				cfg.Session.Store = storeKind
				if err := cfg.Session.Validate(); err != nil {
					return err
				}
			}

			var logger auth.Logger = auth.NopLogger{}
			if verbose {
				logger = auth.DefaultLogger()
			}

			out := []Option{WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())}
			a, err := NewApp(cmd.Context(), cfg, logger, append(out, opts...)...)
			if err != nil {
				return err
			}
			app = a
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&storeKind, "store", "", "Session store: file, sqlite or memory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log session events")

	current := func() *App { return app }

	root.AddCommand(
		newLoginCommand(current),
		newRegisterCommand(current),
		newLogoutCommand(current),
		newWhoAmICommand(current),
		newRequestCommand(current),
		newServeCommand(current),
	)

	closeAfterRun(root, func() error {
		if app == nil {
			return nil
		}
		return app.Close()
	})

	return root
}

// closeAfterRun wraps every RunE in the tree so the app is closed when the
// command returns. PersistentPostRunE is skipped by cobra on failures.
func closeAfterRun(cmd *cobra.Command, closeApp func() error) {
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, closeApp)
	}

	if cmd.RunE == nil {
		return
	}

	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if closeErr := closeApp(); err == nil {
			err = closeErr
		}
		return err
	}
}
