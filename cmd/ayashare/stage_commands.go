package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ayashare/internal/config"
	"ayashare/internal/manifest"
	"ayashare/internal/media/audio"
	"ayashare/internal/pipeline"
)

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir      string
		minSilence  int
		offset      float64
		keepSilence int
		format      string
	)

	cmd := &cobra.Command{
		Use:   "segment <audio>",
		Short: "Split audio into chunk_<n>.wav files at silences",
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
			dir, err := defaultManifestDir(cfg, outDir)
			if err != nil {
				return err
			}

			opts := pipeline.SegmentOptions(cfg)
			if cmd.Flags().Changed("min-silence") {
				opts.MinSilenceLen = minSilence
			}
			if cmd.Flags().Changed("thresh-offset") {
				opts.SilenceThreshOffset = offset
			}
			if cmd.Flags().Changed("keep-silence") {
				opts.KeepSilence = keepSilence
			}
			if f := audio.FormatFromPath(audioPath); f != "" {
				opts.AudioFormat = f
			}
			if f := strings.TrimPrefix(strings.TrimSpace(format), "."); f != "" {
				opts.AudioFormat = f
			}

			records, err := pipeline.NewSegmenter(cfg, logger).Segment(cmd.Context(), audioPath, dir, opts)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, records)
			}
			rows := make([][]string, 0, len(records))
			for i, rec := range records {
				rows = append(rows, []string{strconv.Itoa(i), rec.File, formatMS(float64(rec.DurationMS))})
			}
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"#", "File", "Duration"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
			}
			fmt.Fprintf(out, "%d segment(s) in %s\n", len(records), dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (defaults to paths.work_dir)")
	cmd.Flags().IntVar(&minSilence, "min-silence", 0, "Minimum silence length in ms")
	cmd.Flags().Float64Var(&offset, "thresh-offset", 0, "Silence threshold in dB below average loudness")
	cmd.Flags().IntVar(&keepSilence, "keep-silence", 0, "Silence kept around each segment in ms")
	cmd.Flags().StringVar(&format, "format", "", "Input container format (defaults to the file extension, then segmenter.audio_format)")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		dir      string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe the chunk files in a work directory",
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
			segmentsDir, err := defaultManifestDir(cfg, dir)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(endpoint)
			if target == "" {
				target = cfg.Transcription.Endpoint
			}
			if target == "" {
				return fmt.Errorf("no transcription endpoint: pass --endpoint or set transcription.endpoint")
			}

			records, err := pipeline.NewTranscriber(cfg, logger).Transcribe(cmd.Context(), target, segmentsDir,
				filepath.Join(segmentsDir, manifest.TranscriptsFile))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, records)
			}
			printTranscripts(cmd, records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory holding chunk_<n>.wav files (defaults to paths.work_dir)")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "Transcription endpoint (overrides config)")
	return cmd
}

func printTranscripts(cmd *cobra.Command, records []manifest.TranscriptRecord) {
	out := cmd.OutOrStdout()
	failed := 0
	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		text := rec.Text
		if rec.Failed() {
			failed++
			text = "error: " + rec.Error
		}
		rows = append(rows, []string{strconv.Itoa(i), rec.File, formatMS(rec.DurationMS), truncate(text, 200)})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"#", "File", "Duration", "Text"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft}, 0, 0, 0, 60))
	}
	fmt.Fprintf(out, "%d transcript(s), %d failed\n", len(records), failed)
}

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var (
		dir        string
		narration  string
		outputPath string
		background string
		font       string
		subtitles  bool
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Render the captioned video from transcriptions.json",
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
			manifestDir, err := defaultManifestDir(cfg, dir)
			if err != nil {
				return err
			}

			req := pipeline.ComposeTemplate(cfg)
			req.ManifestDir = manifestDir
			req.OutputPath = cfg.OutputVideoPath()
			req.BackgroundPath = cfg.Video.BackgroundImage
			req.FontPath = cfg.Video.FontFile
			for _, override := range []struct {
				value  string
				target *string
			}{
				{narration, &req.NarrationPath},
				{outputPath, &req.OutputPath},
				{background, &req.BackgroundPath},
				{font, &req.FontPath},
			} {
				if strings.TrimSpace(override.value) == "" {
					continue
				}
				if *override.target, err = config.ExpandPath(override.value); err != nil {
					return fmt.Errorf("resolve %q: %w", override.value, err)
				}
			}
			if cmd.Flags().Changed("srt") {
				req.WriteSubtitles = subtitles
			}

			result, err := pipeline.NewComposer(cfg, logger).Compose(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Video: %s%s\n", result.OutputPath, sizeSuffix(result.OutputPath))
			fmt.Fprintf(out, "Clips: %d rendered, %d skipped, %s total\n", result.ClipCount, result.SkippedCount, result.Duration)
			if result.SubtitlePath != "" {
				fmt.Fprintf(out, "Subtitles: %s\n", result.SubtitlePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory holding transcriptions.json (defaults to paths.work_dir)")
	cmd.Flags().StringVarP(&narration, "audio", "a", "", "Narration audio attached to the video")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output video path")
	cmd.Flags().StringVar(&background, "background", "", "Background image (overrides video.background_image)")
	cmd.Flags().StringVar(&font, "font", "", "Caption font (overrides video.font_file)")
	cmd.Flags().BoolVar(&subtitles, "srt", false, "Also write an .srt sidecar")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}
