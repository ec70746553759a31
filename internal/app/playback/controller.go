package playback

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/mixtape/internal/domain/track"
)

// Errors
var (
	ErrNoTrack = errors.New("no track loaded")
)

// Config holds controller configuration.
type Config struct {
	Shuffle     bool
	Repeat      RepeatMode
	Volume      float64
	EventBuffer int               // Size of the event channel buffer (default 32)
	ShuffleFunc func([]int) []int // Permutation used for the shuffle pool (default lo.Shuffle)
}

// Controller navigates a snapshot queue and drives the engine.
//
// Precedence on next and on track end is fixed: repeat-one, then shuffle,
// then sequential.
type Controller struct {
	mu sync.Mutex

	engine Engine

	// Queue management
	queue     []track.Track // Snapshot taken at load time
	current   int           // -1 or a valid queue index
	exhausted bool          // Sequential playback ran off the end

	// Shuffle and history
	shuffle    bool
	repeat     RepeatMode
	pool       []int // Queue indexes not yet drawn in this shuffle cycle
	history    []int // Visited queue indexes, no immediate repeats
	historyPos int   // -1 or a valid history index

	// Track currently handed to the engine (may be outside the queue)
	nowPlaying *track.Track
	volume     float64

	shuffleFn func([]int) []int

	// Events
	eventCh chan Event
	closed  bool
}

// NewController creates a new controller in the idle state.
func NewController(engine Engine, config Config) *Controller {
	buffer := config.EventBuffer
	if buffer <= 0 {
		buffer = 32
	}
	shuffleFn := config.ShuffleFunc
	if shuffleFn == nil {
		shuffleFn = func(indexes []int) []int { return lo.Shuffle(indexes) }
	}

	c := &Controller{
		engine:     engine,
		queue:      make([]track.Track, 0),
		current:    -1,
		shuffle:    config.Shuffle,
		repeat:     config.Repeat,
		historyPos: -1,
		shuffleFn:  shuffleFn,
		eventCh:    make(chan Event, buffer),
	}
	c.volume = clampVolume(config.Volume)
	engine.SetVolume(c.volume)
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// LoadQueue replaces the queue with a copy of tracks and clears the position.
// History and the shuffle pool are kept; see ResetNavigation.
func (c *Controller) LoadQueue(tracks []track.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadQueueLocked(tracks)
}

func (c *Controller) loadQueueLocked(tracks []track.Track) {
	c.queue = make([]track.Track, len(tracks))
	copy(c.queue, tracks)
	c.current = -1
	c.exhausted = false
}

// ResetNavigation clears history and the shuffle pool.
func (c *Controller) ResetNavigation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = nil
	c.historyPos = -1
	c.pool = nil
}

// StartFromBeginning plays the first queue entry and records it.
// An empty queue is a no-op.
func (c *Controller) StartFromBeginning() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil
	}
	if err := c.playAtLocked(0); err != nil {
		return err
	}
	c.recordHistoryLocked(0)
	return nil
}

// PlayAt plays the entry at index, clamped into the queue. History is not recorded.
func (c *Controller) PlayAt(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil
	}
	return c.playAtLocked(index)
}

// AdvanceSequential moves to the next entry. Running past the end stops the
// engine and returns to idle; further calls are no-ops until a new start.
func (c *Controller) AdvanceSequential() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanceSequentialLocked()
}

func (c *Controller) advanceSequentialLocked() error {
	if len(c.queue) == 0 || c.exhausted {
		return nil
	}

	next := c.current + 1
	if next < len(c.queue) {
		return c.playAtLocked(next)
	}

	zlog.Debug().Msgf("playback: queue exhausted after index %d", c.current)
	c.engine.Stop()
	c.current = -1
	c.exhausted = true
	c.nowPlaying = nil
	c.sendEventLocked(Event{
		Type:  EventQueueExhausted,
		Index: -1,
		State: StateIdle,
	})
	return nil
}

// RetreatSequential moves to the previous entry, stopping at the first.
func (c *Controller) RetreatSequential() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retreatSequentialLocked()
}

func (c *Controller) retreatSequentialLocked() error {
	if len(c.queue) == 0 {
		return nil
	}
	return c.playAtLocked(max(0, c.current-1))
}

// AdvanceShuffled replays the next history entry if a back-step happened,
// otherwise draws from the shuffle pool and records the draw.
func (c *Controller) AdvanceShuffled() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanceShuffledLocked()
}

func (c *Controller) advanceShuffledLocked() error {
	if len(c.queue) == 0 {
		return nil
	}

	// Redo: walk forward through recorded history without touching the pool
	if c.historyPos < len(c.history)-1 {
		c.historyPos++
		return c.playAtLocked(c.history[c.historyPos])
	}

	index := c.drawLocked()
	if err := c.playAtLocked(index); err != nil {
		return err
	}
	c.recordHistoryLocked(index)
	return nil
}

// drawLocked pops the next valid pool entry, regenerating the pool when empty.
func (c *Controller) drawLocked() int {
	for len(c.pool) > 0 {
		index := c.pool[0]
		c.pool = c.pool[1:]
		// Entries can be stale after a shorter queue was loaded
		if index >= 0 && index < len(c.queue) {
			return index
		}
	}

	c.regeneratePoolLocked()
	if len(c.pool) == 0 {
		// Single-entry queue: the only candidate is the current one
		return max(0, c.current)
	}
	index := c.pool[0]
	c.pool = c.pool[1:]
	return index
}

// regeneratePoolLocked builds a fresh permutation of all indexes minus the current one.
func (c *Controller) regeneratePoolLocked() {
	pool := c.shuffleFn(lo.Range(len(c.queue)))
	if c.current >= 0 {
		pool = lo.Without(pool, c.current)
	}
	c.pool = pool
	zlog.Debug().Msgf("playback: shuffle pool regenerated: size=%d excluded=%d", len(pool), c.current)
}

// RetreatShuffled steps back one history entry. At the first entry it is a no-op.
func (c *Controller) RetreatShuffled() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retreatShuffledLocked()
}

func (c *Controller) retreatShuffledLocked() error {
	if c.historyPos <= 0 || len(c.queue) == 0 {
		return nil
	}
	c.historyPos--
	return c.playAtLocked(c.history[c.historyPos])
}

// RecordHistory appends index to history, discarding any forward branch first.
// An index equal to the last entry is not appended again.
func (c *Controller) RecordHistory(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordHistoryLocked(index)
}

func (c *Controller) recordHistoryLocked(index int) {
	if c.historyPos < len(c.history)-1 {
		c.history = c.history[:c.historyPos+1]
	}
	if n := len(c.history); n == 0 || c.history[n-1] != index {
		c.history = append(c.history, index)
	}
	c.historyPos = len(c.history) - 1
}

// RepeatCurrent replays the current track without moving any pointer.
func (c *Controller) RepeatCurrent() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repeatCurrentLocked()
}

func (c *Controller) repeatCurrentLocked() error {
	if c.current >= 0 {
		return c.playAtLocked(c.current)
	}
	if c.nowPlaying != nil {
		return c.playTrackLocked(*c.nowPlaying, -1)
	}
	return nil
}

// Next handles an explicit "next" request.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextLocked()
}

func (c *Controller) nextLocked() error {
	switch {
	case c.repeat == RepeatOne:
		return c.repeatCurrentLocked()
	case c.shuffle:
		return c.advanceShuffledLocked()
	default:
		if err := c.advanceSequentialLocked(); err != nil {
			return err
		}
		if c.current >= 0 {
			c.recordHistoryLocked(c.current)
		}
		return nil
	}
}

// Prev handles an explicit "previous" request.
func (c *Controller) Prev() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shuffle {
		return c.retreatShuffledLocked()
	}
	if err := c.retreatSequentialLocked(); err != nil {
		return err
	}
	if c.current >= 0 {
		c.recordHistoryLocked(c.current)
	}
	return nil
}

// Tick is the track-finished check: when the engine is neither busy nor paused
// while a queue position is active, the track is over and the queue advances.
func (c *Controller) Tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.IsBusy() || c.engine.IsPaused() {
		return nil
	}

	if c.current == -1 {
		// A file played outside the queue ended; nothing to advance to
		if c.nowPlaying != nil {
			ended := c.nowPlaying
			c.nowPlaying = nil
			c.sendEventLocked(Event{Type: EventTrackFinished, Track: ended, Index: -1, State: StateIdle})
		}
		return nil
	}

	ended := c.queue[c.current]
	c.sendEventLocked(Event{
		Type:  EventTrackFinished,
		Track: &ended,
		Index: c.current,
		State: StateIdle,
	})
	return c.nextLocked()
}

// PlayFileNow clears the queue and plays t outside queue navigation. The
// current index stays -1, so the file is never auto-advanced; repeat-one and
// add-current still see it as the playing track.
func (c *Controller) PlayFileNow(t track.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loadQueueLocked(nil)
	return c.playTrackLocked(t, -1)
}

// TogglePause pauses or resumes the engine.
func (c *Controller) TogglePause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nowPlaying == nil {
		return ErrNoTrack
	}
	if c.engine.IsPaused() {
		c.engine.Unpause()
	} else {
		c.engine.Pause()
	}
	c.sendEventLocked(Event{
		Type:  EventStateChanged,
		Track: c.nowPlaying,
		Index: c.current,
		State: c.stateLocked(),
	})
	return nil
}

// Stop stops the engine and returns to idle. The queue is kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.Stop()
	c.current = -1
	c.nowPlaying = nil
	c.sendEventLocked(Event{Type: EventStateChanged, Index: -1, State: StateIdle})
}

// SetVolume sets the output level, clamped to [0, 1].
func (c *Controller) SetVolume(v float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clampVolume(v)
	c.engine.SetVolume(c.volume)
	return c.volume
}

// SetShuffle enables or disables shuffle.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuffle = on
	c.sendModeLocked()
}

// ToggleShuffle flips shuffle and returns the new setting.
func (c *Controller) ToggleShuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuffle = !c.shuffle
	c.sendModeLocked()
	return c.shuffle
}

// SetRepeat sets the repeat mode.
func (c *Controller) SetRepeat(m RepeatMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeat = m
	c.sendModeLocked()
}

// ToggleRepeat switches between RepeatOff and RepeatOne.
func (c *Controller) ToggleRepeat() RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.repeat == RepeatOne {
		c.repeat = RepeatOff
	} else {
		c.repeat = RepeatOne
	}
	c.sendModeLocked()
	return c.repeat
}

func (c *Controller) sendModeLocked() {
	c.sendEventLocked(Event{
		Type:    EventModeChanged,
		Index:   c.current,
		State:   c.stateLocked(),
		Shuffle: c.shuffle,
		Repeat:  c.repeat,
	})
}

// CurrentIndex returns the current queue index or -1.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentTrack returns the track handed to the engine, if any.
func (c *Controller) CurrentTrack() (track.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nowPlaying == nil {
		return track.Track{}, false
	}
	return *c.nowPlaying, true
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.nowPlaying == nil:
		return StateIdle
	case c.engine.IsPaused():
		return StatePaused
	default:
		return StatePlaying
	}
}

// Queue returns a copy of the queue snapshot.
func (c *Controller) Queue() []track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]track.Track, len(c.queue))
	copy(result, c.queue)
	return result
}

// QueueLen returns the number of queued tracks.
func (c *Controller) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// History returns a copy of the history and the cursor.
func (c *Controller) History() ([]int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]int, len(c.history))
	copy(result, c.history)
	return result, c.historyPos
}

// Pool returns a copy of the remaining shuffle pool.
func (c *Controller) Pool() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]int, len(c.pool))
	copy(result, c.pool)
	return result
}

// RecentlyPlayed returns visited tracks up to the history cursor, newest first.
func (c *Controller) RecentlyPlayed() []track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]track.Track, 0, c.historyPos+1)
	for i := c.historyPos; i >= 0; i-- {
		index := c.history[i]
		if index >= 0 && index < len(c.queue) {
			result = append(result, c.queue[index])
		}
	}
	return result
}

// LastPlayed returns the track at the history cursor.
func (c *Controller) LastPlayed() (track.Track, bool) {
	recent := c.RecentlyPlayed()
	if len(recent) == 0 {
		return track.Track{}, false
	}
	return recent[0], true
}

// Shuffle reports whether shuffle is enabled.
func (c *Controller) Shuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuffle
}

// Repeat returns the repeat mode.
func (c *Controller) Repeat() RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repeat
}

// Volume returns the output level.
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Close stops playback and closes the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.engine.Stop()
	c.closed = true
	close(c.eventCh)
}

// playAtLocked clamps index, makes it current and plays it.
// Must be called with lock held and a non-empty queue.
func (c *Controller) playAtLocked(index int) error {
	index = max(0, min(index, len(c.queue)-1))
	c.current = index
	c.exhausted = false
	return c.playTrackLocked(c.queue[index], index)
}

// playTrackLocked loads and starts t on the engine.
func (c *Controller) playTrackLocked(t track.Track, index int) error {
	if err := c.engine.Load(t.Path); err != nil {
		c.nowPlaying = nil
		return errors.Wrapf(err, "failed to load %s", t.Path)
	}
	if err := c.engine.Play(0); err != nil {
		c.nowPlaying = nil
		return errors.Wrapf(err, "failed to play %s", t.Path)
	}

	c.nowPlaying = &t
	zlog.Debug().Msgf("playback: started: index=%d title=%s", index, t.Title)
	c.sendEventLocked(Event{
		Type:    EventTrackStarted,
		Track:   &t,
		Index:   index,
		State:   StatePlaying,
		Shuffle: c.shuffle,
		Repeat:  c.repeat,
	})
	return nil
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Warn().Msgf("playback: event channel full, dropping %s", e.Type)
	}
}

func clampVolume(v float64) float64 {
	return max(0, min(1, v))
}
