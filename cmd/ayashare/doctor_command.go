package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ayashare/internal/config"
	"ayashare/internal/notifications"
	"ayashare/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, directories, assets, and the transcription endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if notify {
				results = append(results, notificationCheck(cmd.Context(), cfg))
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
				printPreflight(out, results, shouldColorize(out))
			}
			if preflight.Failed(results) {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

// notificationCheck sends a test alert. Notifications are optional, so a
// failure is reported as a warning.
func notificationCheck(ctx context.Context, cfg *config.Config) preflight.Result {
	result := preflight.Result{Name: "Notifications", Optional: true}
	if cfg.Notifications.NtfyTopic == "" {
		result.Detail = "ntfy_topic not configured"
		return result
	}
	if err := notifications.NewService(cfg).Test(ctx); err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Detail = "test message sent to " + cfg.Notifications.NtfyTopic
	return result
}

func printPreflight(out io.Writer, results []preflight.Result, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Preflight", colorize))
	for _, r := range results {
		kind := statusOK
		switch {
		case r.Passed:
		case r.Optional:
			kind = statusWarn
		default:
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
}
