package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ayashare/internal/config"
	"ayashare/internal/notifications"
	"ayashare/internal/pipeline"
	"ayashare/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		endpoint      string
		outputPath    string
		workDir       string
		format        string
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "run <audio>",
		Short: "Segment, transcribe, and compose a captioned video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			audioPath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve audio path: %w", err)
			}
			req := pipeline.RequestFromConfig(cfg, audioPath, strings.TrimSpace(endpoint))
			if strings.TrimSpace(outputPath) != "" {
				if req.OutputVideoPath, err = config.ExpandPath(outputPath); err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
			}
			if strings.TrimSpace(workDir) != "" {
				if req.WorkDir, err = config.ExpandPath(workDir); err != nil {
					return fmt.Errorf("resolve work dir: %w", err)
				}
			}
			if f := strings.TrimPrefix(strings.TrimSpace(format), "."); f != "" {
				req.AudioFormat = f
			}

			if !skipPreflight {
				results := preflight.RunAll(cmd.Context(), cfg)
				if preflight.Failed(results) {
					printPreflight(cmd.ErrOrStderr(), results, shouldColorize(cmd.ErrOrStderr()))
					return errors.New("preflight checks failed (use --skip-preflight to run anyway)")
				}
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			orch := pipeline.NewFromConfig(cfg, store, notifications.NewService(cfg), logger)
			result, runErr := orch.Run(cmd.Context(), req)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printRunResult(cmd.OutOrStdout(), result)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "Transcription endpoint (overrides config; empty skips transcription)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output video path")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "Directory for chunks and manifests")
	cmd.Flags().StringVar(&format, "format", "", "Input container format (defaults to the file extension, then segmenter.audio_format)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Run without checking tools and paths first")
	return cmd
}

func printRunResult(out io.Writer, result pipeline.Result) {
	rows := [][]string{
		{"Run", result.RunID},
		{"Status", string(result.Status)},
		{"Stage reached", string(result.Stage)},
		{"Audio", result.AudioPath},
		{"Chunks", fmt.Sprintf("%d", result.ChunksCount)},
		{"Transcriptions", fmt.Sprintf("%d", result.TranscriptionsCount)},
	}
	if result.ChunksDir != "" {
		rows = append(rows, []string{"Work dir", result.ChunksDir})
	}
	if result.VideoPath != "" {
		rows = append(rows, []string{"Video", result.VideoPath + sizeSuffix(result.VideoPath)})
	}
	if elapsed := result.Elapsed(); elapsed > 0 {
		rows = append(rows, []string{"Elapsed", elapsed.Round(time.Millisecond).String()})
	}
	if result.Error != "" {
		rows = append(rows, []string{"Error", result.Error})
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%-15s %s\n", row[0]+":", row[1])
	}
}

func defaultManifestDir(cfg *config.Config, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return cfg.Paths.WorkDir, nil
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}
	return filepath.Clean(expanded), nil
}
