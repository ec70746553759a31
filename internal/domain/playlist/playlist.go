// Package playlist provides the Playlist domain entity.
package playlist

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/mixtape/internal/domain/track"
)

// Errors
var (
	ErrEmptyName      = errors.New("playlist name cannot be empty")
	ErrDuplicateName  = errors.New("a playlist with that name already exists")
	ErrNoSuchPlaylist = errors.New("playlist does not exist")
)

// Playlist represents a named, ordered list of tracks.
// Track order defines sequential playback order.
type Playlist struct {
	Name   string        // Unique key
	Tracks []track.Track // Tracks in insertion order
}

// NormalizeName trims surrounding whitespace and rejects blank names.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// IsValidationError reports whether err is a user-facing naming error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyName) || errors.Is(err, ErrDuplicateName)
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}

// Paths returns the file paths of all tracks in order.
func (p *Playlist) Paths() []string {
	paths := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		paths[i] = t.Path
	}
	return paths
}

// Contains reports whether a track with the given path is in the playlist.
func (p *Playlist) Contains(path string) bool {
	for _, t := range p.Tracks {
		if t.Path == path {
			return true
		}
	}
	return false
}
