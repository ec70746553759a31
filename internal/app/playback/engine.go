package playback

import "time"

// Engine is the audio backend driven by the controller.
// It exposes no completion callback; the Watcher polls IsBusy/IsPaused instead.
type Engine interface {
	Load(path string) error
	Play(from time.Duration) error
	Pause()
	Unpause()
	Stop()
	SetVolume(v float64) // clamped to [0, 1]
	IsBusy() bool
	IsPaused() bool
}

// MuteEngine is an Engine that loads nothing and never plays.
// It backs sessions that only edit playlists.
type MuteEngine struct{}

// NewMuteEngine creates a silent engine.
func NewMuteEngine() *MuteEngine {
	return &MuteEngine{}
}

func (e *MuteEngine) Load(string) error        { return nil }
func (e *MuteEngine) Play(time.Duration) error { return nil }
func (e *MuteEngine) Pause()                   {}
func (e *MuteEngine) Unpause()                 {}
func (e *MuteEngine) Stop()                    {}
func (e *MuteEngine) SetVolume(float64)        {}
func (e *MuteEngine) IsBusy() bool             { return false }
func (e *MuteEngine) IsPaused() bool           { return false }
