//go:build (linux && cgo) || windows || darwin

package audio

import (
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Available indicates whether audio playback is supported in this build.
const Available = true

// Engine plays one MP3 file at a time through the system speaker.
type Engine struct {
	mu sync.Mutex

	initialized bool
	sampleRate  beep.SampleRate

	path     string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	busy     bool

	// generation invalidates end-of-stream callbacks from replaced streams
	generation uint64
}

// NewEngine creates an engine. The speaker is opened lazily on first Play.
func NewEngine() *Engine {
	return &Engine{
		sampleRate: beep.SampleRate(44100),
		level:      DefaultVolume,
	}
}

// Load decodes path and makes it the current stream. Playback does not start.
// The previous stream is stopped and released first, even when path fails to load.
func (e *Engine) Load(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	if e.streamer != nil {
		e.streamer.Close()
	}
	e.path = ""
	e.streamer = nil

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to decode %s", path)
	}

	e.path = path
	e.streamer = streamer
	e.format = format
	return nil
}

// Play starts the loaded stream at from.
func (e *Engine) Play(from time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return ErrNothingLoaded
	}
	if err := e.initSpeakerLocked(); err != nil {
		return err
	}

	e.stopLocked()

	pos := e.format.SampleRate.N(from)
	if pos < 0 {
		pos = 0
	}
	if n := e.streamer.Len(); pos > n {
		pos = n
	}
	if err := e.streamer.Seek(pos); err != nil {
		return errors.Wrapf(err, "failed to seek %s", e.path)
	}

	resampled := beep.Resample(4, e.format.SampleRate, e.sampleRate, e.streamer)
	e.ctrl = &beep.Ctrl{Streamer: resampled}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2}
	e.applyLevelLocked()

	e.generation++
	gen := e.generation
	e.busy = true

	speaker.Play(beep.Seq(e.volume, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker lock held
		go e.finished(gen)
	})))

	zlog.Debug().Msgf("audio: playing %s from %v", e.path, from)
	return nil
}

func (e *Engine) finished(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.generation {
		e.busy = false
	}
}

// Pause pauses playback. The stream stays busy.
func (e *Engine) Pause() {
	e.setPaused(true)
}

// Unpause resumes paused playback.
func (e *Engine) Unpause() {
	e.setPaused(false)
}

func (e *Engine) setPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = paused
	speaker.Unlock()
}

// Stop halts playback. The loaded file can be played again.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.initialized {
		speaker.Clear()
	}
	e.generation++
	e.ctrl = nil
	e.volume = nil
	e.busy = false
}

// SetVolume sets the output level; v is clamped to [0, 1].
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.level = ClampVolume(v)
	if e.volume == nil {
		return
	}
	speaker.Lock()
	e.applyLevelLocked()
	speaker.Unlock()
}

func (e *Engine) applyLevelLocked() {
	exp, silent := gain(e.level)
	e.volume.Volume = exp
	e.volume.Silent = silent
}

// Volume returns the current output level.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// IsBusy reports whether a stream is playing or paused before its end.
func (e *Engine) IsBusy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// IsPaused reports whether the current stream is paused.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return false
	}
	speaker.Lock()
	paused := e.ctrl.Paused
	speaker.Unlock()
	return paused
}

// Close stops playback and releases the stream and the speaker.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	var err error
	if e.streamer != nil {
		err = e.streamer.Close()
		e.streamer = nil
	}
	if e.initialized {
		speaker.Close()
		e.initialized = false
	}
	return err
}

func (e *Engine) initSpeakerLocked() error {
	if e.initialized {
		return nil
	}
	if err := speaker.Init(e.sampleRate, e.sampleRate.N(time.Second/10)); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	e.initialized = true
	return nil
}
