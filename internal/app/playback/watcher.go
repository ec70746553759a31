package playback

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultPollInterval is the end-of-track check interval.
const DefaultPollInterval = 500 * time.Millisecond

// Ticker is checked on every poll.
type Ticker interface {
	Tick() error
}

// Watcher polls a Ticker on a fixed interval until its context is done.
// The next poll is always scheduled, even when a tick fails or panics.
type Watcher struct {
	ticker   Ticker
	interval time.Duration
}

// NewWatcher creates a watcher. A non-positive interval uses DefaultPollInterval.
func NewWatcher(t Ticker, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{ticker: t, interval: interval}
}

// Interval returns the poll interval.
func (w *Watcher) Interval() time.Duration {
	return w.interval
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.poll(timer)
		}
	}
}

func (w *Watcher) poll(timer *time.Timer) {
	defer timer.Reset(w.interval)
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback: tick panicked: %v", r)
		}
	}()

	if err := w.ticker.Tick(); err != nil {
		zlog.Warn().Err(err).Msg("playback: tick failed")
	}
}
