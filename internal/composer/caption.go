package composer

import (
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/unicode/norm"
)

// captionWidthRatio is the share of the frame width a caption line may use.
const captionWidthRatio = 0.9

// measurer reports the rendered width of a string in pixels.
type measurer interface {
	Width(s string) int
}

type faceMeasurer struct {
	face font.Face
}

func (m faceMeasurer) Width(s string) int {
	return font.MeasureString(m.face, s).Ceil()
}

// estimateMeasurer approximates glyph advances when the font cannot be parsed.
type estimateMeasurer struct {
	size int
}

func (m estimateMeasurer) Width(s string) int {
	return utf8.RuneCountInString(s) * m.size * 6 / 10
}

// loadMeasurer parses the caption font. A font the parser rejects falls back
// to an estimate so wrapping still happens; ffmpeg reports the real problem.
func loadMeasurer(fontPath string, size int) (measurer, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, err
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return estimateMeasurer{size: size}, err
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return estimateMeasurer{size: size}, err
	}
	return faceMeasurer{face: face}, nil
}

// NormalizeCaption trims text, composes it to NFC, and collapses runs of
// whitespace to single spaces.
func NormalizeCaption(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// wrapCaption breaks text into lines no wider than maxWidth. A single word
// wider than maxWidth gets a line of its own.
func wrapCaption(m measurer, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	lines := make([]string, 0, 4)
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if m.Width(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
