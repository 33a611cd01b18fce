package audio

import (
	"path/filepath"
	"strings"
)

// demuxers maps extensions whose ffmpeg demuxer goes by another name.
var demuxers = map[string]string{
	"aif":  "aiff",
	"aifc": "aiff",
	"mka":  "matroska",
	"mkv":  "matroska",
	"oga":  "ogg",
	"opus": "ogg",
	"wma":  "asf",
}

// Demuxer returns the ffmpeg input format for a container hint or file
// extension ("aif" becomes "aiff").
func Demuxer(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if name, ok := demuxers[f]; ok {
		return name
	}
	return f
}

// FormatFromPath returns the container hint implied by the extension of
// path, or "" when it has none.
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
