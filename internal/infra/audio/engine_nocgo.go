//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Available indicates whether audio playback is supported in this build.
// Linux audio output needs cgo for ALSA.
const Available = false

// Engine accepts files but cannot produce sound. Play reports ErrAudioUnavailable.
type Engine struct {
	mu    sync.Mutex
	path  string
	level float64
}

// NewEngine creates a silent engine.
func NewEngine() *Engine {
	return &Engine{level: DefaultVolume}
}

// Load checks that path exists. A failed load forgets the previous file.
func (e *Engine) Load(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.path = ""
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	e.path = path
	return nil
}

// Play always fails in this build.
func (e *Engine) Play(from time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.path == "" {
		return ErrNothingLoaded
	}
	return ErrAudioUnavailable
}

func (e *Engine) Pause()   {}
func (e *Engine) Unpause() {}
func (e *Engine) Stop()    {}

// SetVolume records the level.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = ClampVolume(v)
}

// Volume returns the recorded level.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

func (e *Engine) IsBusy() bool   { return false }
func (e *Engine) IsPaused() bool { return false }

// Close is a no-op.
func (e *Engine) Close() error { return nil }
