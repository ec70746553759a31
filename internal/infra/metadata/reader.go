// Package metadata reads best-effort display information from audio files.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2/mp3"
	zlog "github.com/rs/zerolog/log"
)

// Info holds the display fields read from a file. Empty fields are unknown.
type Info struct {
	Title    string
	Artist   string
	Duration string // MM:SS
}

// IsEmpty reports whether nothing could be read.
func (i Info) IsEmpty() bool {
	return i.Title == "" && i.Artist == "" && i.Duration == ""
}

// DisplayTitle joins title and artist ("Title – Artist"), or returns whichever is known.
func (i Info) DisplayTitle() string {
	switch {
	case i.Title != "" && i.Artist != "":
		return i.Title + " – " + i.Artist
	case i.Title != "":
		return i.Title
	default:
		return ""
	}
}

// Reader extracts tags and duration. Failures never surface as errors.
type Reader struct {
	// SkipDuration disables decoding the stream to measure its length.
	SkipDuration bool
}

// NewReader creates a metadata reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read returns whatever could be read from path; all fields are empty on failure.
func (r *Reader) Read(path string) (info Info) {
	defer func() {
		if rec := recover(); rec != nil {
			zlog.Warn().Msgf("metadata: reader panicked: path=%s panic=%v", path, rec)
			info = Info{}
		}
	}()

	info.Title, info.Artist = readTags(path)
	if !r.SkipDuration && strings.EqualFold(filepath.Ext(path), ".mp3") {
		if d, ok := probeMP3Duration(path); ok {
			info.Duration = FormatDuration(d)
		}
	}
	return info
}

func readTags(path string) (string, string) {
	f, err := os.Open(path)
	if err != nil {
		zlog.Debug().Err(err).Msgf("metadata: cannot open %s", path)
		return "", ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		zlog.Debug().Err(err).Msgf("metadata: no tags in %s", path)
		return "", ""
	}
	return strings.TrimSpace(m.Title()), strings.TrimSpace(m.Artist())
}

func probeMP3Duration(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}

	// The streamer owns f from here on
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		zlog.Debug().Err(err).Msgf("metadata: cannot decode %s", path)
		return 0, false
	}
	defer streamer.Close()

	n := streamer.Len()
	if n <= 0 || format.SampleRate <= 0 {
		return 0, false
	}
	return format.SampleRate.D(n), true
}

// FormatDuration renders d as MM:SS. Minutes are not capped at 59.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
