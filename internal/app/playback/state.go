// Package playback provides the queue navigator: an ordered queue, shuffle pool
// and bidirectional history driving a playback engine.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing loaded in the engine
	StatePlaying              // A track is playing
	StatePaused               // A track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RepeatMode represents the repeat setting.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Advance normally
	RepeatOne                   // Replay the current track
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// ParseRepeatMode converts a string to a RepeatMode.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "one":
		return RepeatOne
	default:
		return RepeatOff
	}
}
