// Package filter provides the filter chain for files entering a playlist or the queue.
package filter

import (
	"context"

	"github.com/osa030/mixtape/internal/domain/track"
)

// Origin identifies how a file reached the chain.
type Origin int

const (
	OriginDrop    Origin = iota // Files dropped onto the player
	OriginCurrent               // The now-playing track added to a playlist
	OriginImport                // Paths read from a list file
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginDrop:
		return "drop"
	case OriginCurrent:
		return "current"
	case OriginImport:
		return "import"
	default:
		return "unknown"
	}
}

// Request describes where a file is going.
type Request struct {
	Playlist string // Target playlist, empty when the file goes straight to the queue
	Origin   Origin
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "unsupported_extension", "file_not_found", "duplicate_track"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for file filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should be applied to files of the given origin.
	AppliesTo(origin Origin) bool
	// Check performs the filter check.
	Check(ctx context.Context, req Request, t track.Track) Result
}

// registry holds registered filter factories for optional filters.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}
