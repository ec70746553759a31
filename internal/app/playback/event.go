package playback

import "github.com/osa030/mixtape/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted   EventType = iota // Track loaded and started
	EventTrackFinished                   // Engine reported the end of a track
	EventQueueExhausted                  // Sequential playback ran past the last track
	EventStateChanged                    // Pause, resume or stop
	EventModeChanged                     // Shuffle or repeat toggled
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackFinished:
		return "track_finished"
	case EventQueueExhausted:
		return "queue_exhausted"
	case EventStateChanged:
		return "state_changed"
	case EventModeChanged:
		return "mode_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type    EventType
	Track   *track.Track // Track concerned (nil for some events)
	Index   int          // Queue index of Track, -1 when outside the queue
	State   State        // Playback state after the event
	Shuffle bool
	Repeat  RepeatMode
}
