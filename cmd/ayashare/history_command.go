package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ayashare/internal/pipeline"
	"ayashare/internal/staging"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if runs == nil {
					runs = []pipeline.Result{}
				}
				return writeJSON(cmd, runs)
			}
			printRunTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			printRunResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		orphans   bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs started before a cutoff and their run directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			cutoff := time.Now().Add(-olderThan)
			removed, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}

			var sweep staging.Result
			for _, root := range staging.Roots(cfg) {
				sweep.Merge(staging.CleanStale(cmd.Context(), root, cutoff, logger))
			}
			if orphans {
				known, err := store.RunIDs(cmd.Context())
				if err != nil {
					return err
				}
				for _, root := range staging.Roots(cfg) {
					sweep.Merge(staging.CleanOrphaned(cmd.Context(), root, known, logger))
				}
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, pruneSummary{
					Removed:        removed,
					DirsRemoved:    len(sweep.Removed),
					BytesReclaimed: sweep.Reclaimed(),
					Failures:       len(sweep.Errors),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d run(s)\n", removed)
			fmt.Fprintf(out, "Removed %d run director(ies), reclaimed %s\n", len(sweep.Removed), humanize.Bytes(uint64(sweep.Reclaimed())))
			if len(sweep.Errors) > 0 {
				fmt.Fprintf(out, "%d director(ies) could not be removed; see the log\n", len(sweep.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	cmd.Flags().BoolVar(&orphans, "orphans", false, "Also remove run directories with no history record")
	return cmd
}

type pruneSummary struct {
	Removed        int64 `json:"removed"`
	DirsRemoved    int   `json:"dirs_removed"`
	BytesReclaimed int64 `json:"bytes_reclaimed"`
	Failures       int   `json:"failures"`
}

func printRunTable(out io.Writer, runs []pipeline.Result) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		elapsed := "-"
		if d := run.Elapsed(); d > 0 {
			elapsed = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			run.RunID,
			string(run.Status),
			string(run.Stage),
			strconv.Itoa(run.ChunksCount),
			strconv.Itoa(run.TranscriptionsCount),
			formatWhen(run.StartedAt),
			elapsed,
			truncate(run.Error, 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Status", "Stage", "Chunks", "Transcripts", "Started", "Elapsed", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft},
	))
}
