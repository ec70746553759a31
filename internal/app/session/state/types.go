// Package state provides session state management.
package state

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseWaiting    Phase = iota // Created, poll loop not running
	PhaseActive                  // Poll loop and event forwarding running
	PhaseTerminated              // Closed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SourceKind identifies where the current queue came from.
type SourceKind int

const (
	SourceNone     SourceKind = iota // Nothing loaded
	SourcePlaylist                   // Snapshot of a stored playlist
	SourceFiles                      // Files loaded or dropped directly
)

// String returns the string representation of the source kind.
func (s SourceKind) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourcePlaylist:
		return "playlist"
	case SourceFiles:
		return "files"
	default:
		return "unknown"
	}
}

// Source describes the current queue origin.
type Source struct {
	Kind     SourceKind
	Playlist string // Set when Kind is SourcePlaylist
}

// Label returns a short description for display.
func (s Source) Label() string {
	if s.Kind == SourcePlaylist {
		return s.Playlist
	}
	return s.Kind.String()
}
