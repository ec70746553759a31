// Package track provides the Track domain entity.
package track

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// UnknownDuration is displayed when a track has no known duration.
const UnknownDuration = "--:--"

// Track represents a playable local audio file.
// Stored as-is in the persisted playlist document.
type Track struct {
	Path     string `json:"path"`               // File path (uniqueness not enforced)
	Title    string `json:"title"`              // Display title
	Duration string `json:"duration,omitempty"` // MM:SS, empty when unknown
}

// New creates a track record. An empty title defaults to the file name stem.
func New(path, title, duration string) Track {
	if title == "" {
		title = Stem(path)
	}
	return Track{
		Path:     path,
		Title:    title,
		Duration: duration,
	}
}

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DisplayDuration returns the duration or the unknown marker.
func (t *Track) DisplayDuration() string {
	if t.Duration == "" {
		return UnknownDuration
	}
	return t.Duration
}

// Length parses the MM:SS duration. ok is false when it is empty or malformed.
func (t *Track) Length() (time.Duration, bool) {
	minutes, seconds, found := strings.Cut(t.Duration, ":")
	if !found {
		return 0, false
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 {
		return 0, false
	}
	s, err := strconv.Atoi(seconds)
	if err != nil || s < 0 || s > 59 {
		return 0, false
	}
	return time.Duration(m)*time.Minute + time.Duration(s)*time.Second, true
}

// Update holds the fields to merge into an existing track.
// Nil fields are left untouched.
type Update struct {
	Path     *string `mapstructure:"path"`
	Title    *string `mapstructure:"title"`
	Duration *string `mapstructure:"duration"`
}

// IsEmpty reports whether the update carries no field.
func (u Update) IsEmpty() bool {
	return u.Path == nil && u.Title == nil && u.Duration == nil
}

// Apply returns a copy of t with the non-nil fields of u merged in.
func (t Track) Apply(u Update) Track {
	if u.Path != nil {
		t.Path = *u.Path
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Duration != nil {
		t.Duration = *u.Duration
	}
	return t
}

// DecodeUpdate builds an Update from loosely typed fields (e.g. "title=..." pairs from the CLI).
// Unknown keys are rejected. Nil values are skipped.
func DecodeUpdate(fields map[string]any) (Update, error) {
	var u Update

	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		clean[strings.ToLower(strings.TrimSpace(k))] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &u,
	})
	if err != nil {
		return Update{}, errors.Wrap(err, "failed to create update decoder")
	}
	if err := decoder.Decode(clean); err != nil {
		return Update{}, errors.Wrap(err, "failed to decode track update")
	}
	return u, nil
}
