package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ayashare/internal/logging"
	"ayashare/internal/notifications"
	"ayashare/internal/pipeline"
	"ayashare/internal/preflight"
	"ayashare/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if preflight.Failed(results) {
				printPreflight(cmd.ErrOrStderr(), results, shouldColorize(cmd.ErrOrStderr()))
				return errors.New("preflight checks failed")
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			opts := server.OptionsFromConfig(cfg)
			if strings.TrimSpace(bind) != "" {
				opts.Bind = bind
			}
			srv := server.New(opts, pipeline.NewFromConfig(cfg, store, notifications.NewService(cfg), logger), store, logger)
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

			<-cmd.Context().Done()
			logger.Info("shutting down api server", logging.String("address", srv.Addr()))
			srv.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides paths.api_bind)")
	return cmd
}
