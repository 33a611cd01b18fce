package composer

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner executes name with args in dir.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) error

func execRunner(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(strings.TrimSpace(string(output)), 512))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// clipSpec describes one rendered clip. File names are relative to the
// working directory ffmpeg runs in.
type clipSpec struct {
	Background string
	FontFile   string
	TextFile   string
	Output     string
	Frames     int
	Fade       float64
	FontSize   int
	TextColor  string
	FPS        int
	VideoCodec string
}

// fadeAlpha ramps the caption in over fade seconds and out over the last
// fade seconds of the clip.
func fadeAlpha(duration, fade float64) string {
	f, d := seconds(fade), seconds(duration)
	return fmt.Sprintf("if(lt(t\\,%s)\\,t/%s\\,if(gt(t\\,%s-%s)\\,(%s-t)/%s\\,1))", f, f, d, f, d, f)
}

// duration is the clip length implied by its frame count.
func (c clipSpec) duration() float64 {
	return float64(c.Frames) / float64(c.FPS)
}

func (c clipSpec) filter() string {
	opts := []string{
		"fontfile=" + c.FontFile,
		"textfile=" + c.TextFile,
		"expansion=none",
		"fontsize=" + strconv.Itoa(c.FontSize),
		"fontcolor=" + c.TextColor,
		"text_align=C",
		"x=(w-text_w)/2",
		"y=(h-text_h)/2",
	}
	if c.Fade > 0 {
		opts = append(opts, "alpha="+fadeAlpha(c.duration(), c.Fade))
	}
	return "scale=trunc(iw/2)*2:trunc(ih/2)*2,drawtext=" + strings.Join(opts, ":") + ",format=yuv420p"
}

func (c clipSpec) args() []string {
	fps := strconv.Itoa(c.FPS)
	return []string{
		"-y", "-hide_banner", "-loglevel", "error", "-nostdin",
		"-loop", "1",
		"-framerate", fps,
		"-i", c.Background,
		"-vf", c.filter(),
		"-r", fps,
		"-frames:v", strconv.Itoa(c.Frames),
		"-c:v", c.VideoCodec,
		"-pix_fmt", "yuv420p",
		"-an",
		c.Output,
	}
}

func concatList(files []string) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "file '%s'\n", f)
	}
	return b.String()
}

// finalArgs concatenates the clips listed in listFile and attaches narration
// as the only audio track, cut to the clip timeline.
func finalArgs(listFile, narration, output, audioCodec string, total float64) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", "concat", "-safe", "0",
		"-i", listFile,
		"-i", narration,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", audioCodec,
		"-t", seconds(total),
		output,
	}
}
