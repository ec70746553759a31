package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mixtape/internal/domain/track"
)

// Mock Engine for testing
type fakeEngine struct {
	mu      sync.Mutex
	loaded  []string
	fail    map[string]bool
	busy    bool
	paused  bool
	stopped int
	volume  float64
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{fail: map[string]bool{}}
}

func (f *fakeEngine) Load(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.paused = false
	if f.fail[path] {
		return errors.Newf("cannot decode %s", path)
	}
	f.loaded = append(f.loaded, path)
	return nil
}

func (f *fakeEngine) Play(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = true
	return nil
}

func (f *fakeEngine) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = f.busy
}

func (f *fakeEngine) Unpause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.paused = false
	f.stopped++
}

func (f *fakeEngine) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakeEngine) IsBusy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeEngine) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

// finish simulates the end of the current stream.
func (f *fakeEngine) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
}

func (f *fakeEngine) loads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loaded...)
}

func identity(indexes []int) []int { return indexes }

func makeTracks(names ...string) []track.Track {
	tracks := make([]track.Track, len(names))
	for i, name := range names {
		tracks[i] = track.New(name+".mp3", name, "")
	}
	return tracks
}

func newTestController(t *testing.T, shuffle bool, names ...string) (*Controller, *fakeEngine) {
	t.Helper()
	engine := newFakeEngine()
	c := NewController(engine, Config{
		Shuffle:     shuffle,
		Volume:      0.7,
		EventBuffer: 256,
		ShuffleFunc: identity,
	})
	t.Cleanup(c.Close)
	c.LoadQueue(makeTracks(names...))
	return c, engine
}

func drain(c *Controller) []Event {
	var events []Event
	for {
		select {
		case e, ok := <-c.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestController_SequentialExhaustion(t *testing.T) {
	c, engine := newTestController(t, false, "a", "b", "c")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	assert.Equal(t, 2, c.CurrentIndex())

	drain(c)
	require.NoError(t, c.Next())
	assert.Equal(t, -1, c.CurrentIndex())
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, engine.stopped)
	assert.Equal(t, []EventType{EventQueueExhausted}, eventTypes(drain(c)))

	// Further advances are no-ops until a new start
	require.NoError(t, c.Next())
	require.NoError(t, c.AdvanceSequential())
	assert.Equal(t, -1, c.CurrentIndex())
	assert.Equal(t, []string{"a.mp3", "b.mp3", "c.mp3"}, engine.loads())

	history, pos := c.History()
	assert.Equal(t, []int{0, 1, 2}, history)
	assert.Equal(t, 2, pos)

	require.NoError(t, c.StartFromBeginning())
	assert.Equal(t, 0, c.CurrentIndex())
}

func TestController_EmptyQueue(t *testing.T) {
	c, engine := newTestController(t, false)

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	require.NoError(t, c.Prev())
	require.NoError(t, c.PlayAt(3))
	require.NoError(t, c.AdvanceShuffled())
	assert.Equal(t, -1, c.CurrentIndex())
	assert.Empty(t, engine.loads())
}

func TestController_PlayAtClamps(t *testing.T) {
	c, _ := newTestController(t, false, "a", "b", "c")

	require.NoError(t, c.PlayAt(10))
	assert.Equal(t, 2, c.CurrentIndex())
	require.NoError(t, c.PlayAt(-4))
	assert.Equal(t, 0, c.CurrentIndex())

	history, pos := c.History()
	assert.Empty(t, history)
	assert.Equal(t, -1, pos)
}

func TestController_RetreatSequentialStopsAtFirst(t *testing.T) {
	c, _ := newTestController(t, false, "a", "b")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Prev())
	assert.Equal(t, 0, c.CurrentIndex())

	history, _ := c.History()
	assert.Equal(t, []int{0}, history)
}

func TestController_ShufflePoolExcludesCurrent(t *testing.T) {
	c, _ := newTestController(t, true, "a", "b", "c", "d")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, []int{2, 3}, c.Pool())

	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	assert.Equal(t, 3, c.CurrentIndex())
	assert.Empty(t, c.Pool())

	// Regeneration drops the track that just played
	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []int{1, 2}, c.Pool())

	history, pos := c.History()
	assert.Equal(t, []int{0, 1, 2, 3, 0}, history)
	assert.Equal(t, 4, pos)
}

func TestController_ShufflePoolRandomPermutation(t *testing.T) {
	engine := newFakeEngine()
	c := NewController(engine, Config{Shuffle: true})
	defer c.Close()
	c.LoadQueue(makeTracks("a", "b", "c", "d", "e", "f"))

	require.NoError(t, c.PlayAt(2))
	c.RecordHistory(2)
	require.NoError(t, c.Next())

	current := c.CurrentIndex()
	assert.NotEqual(t, 2, current)
	assert.ElementsMatch(t, []int{0, 1, 3, 4, 5}, append(c.Pool(), current))
}

func TestController_ShuffleRegenerationAfterPoolExhausted(t *testing.T) {
	c, _ := newTestController(t, true, "a", "b")

	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []int{1}, c.Pool())

	require.NoError(t, c.Next())
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Empty(t, c.Pool())

	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Empty(t, c.Pool())
}

func TestController_ShuffleSingleTrackReplays(t *testing.T) {
	c, engine := newTestController(t, true, "only")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []string{"only.mp3", "only.mp3"}, engine.loads())

	history, _ := c.History()
	assert.Equal(t, []int{0}, history)
}

func TestController_ShuffleSkipsStalePoolEntries(t *testing.T) {
	c, _ := newTestController(t, true, "a", "b", "c", "d")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	assert.Equal(t, []int{2, 3}, c.Pool())

	c.LoadQueue(makeTracks("x", "y"))
	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []int{1}, c.Pool())
}

func TestController_ShuffleBackAndRedo(t *testing.T) {
	c, engine := newTestController(t, true, "a", "b", "c", "d")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	pool := c.Pool()

	require.NoError(t, c.Prev())
	assert.Equal(t, 1, c.CurrentIndex())
	require.NoError(t, c.Prev())
	assert.Equal(t, 0, c.CurrentIndex())

	// At the first history entry, back is a no-op
	loads := len(engine.loads())
	require.NoError(t, c.Prev())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Len(t, engine.loads(), loads)

	// Forward replays history without drawing
	require.NoError(t, c.Next())
	assert.Equal(t, 1, c.CurrentIndex())
	require.NoError(t, c.Next())
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, pool, c.Pool())

	history, pos := c.History()
	assert.Equal(t, []int{0, 1, 2}, history)
	assert.Equal(t, 2, pos)
}

func TestController_HistoryTruncation(t *testing.T) {
	c, _ := newTestController(t, true, "a", "b", "c", "d")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	require.NoError(t, c.Prev())
	require.NoError(t, c.Prev())

	// A new sequential step from the middle discards the forward branch
	c.SetShuffle(false)
	require.NoError(t, c.Next())

	history, pos := c.History()
	assert.Equal(t, []int{0, 1}, history)
	assert.Equal(t, 1, pos)
}

func TestController_RecordHistory(t *testing.T) {
	c, _ := newTestController(t, false, "a", "b", "c", "d")

	c.RecordHistory(0)
	c.RecordHistory(1)
	c.RecordHistory(1)
	c.RecordHistory(2)
	history, pos := c.History()
	assert.Equal(t, []int{0, 1, 2}, history, "consecutive duplicates are not recorded")
	assert.Equal(t, 2, pos)

	c.SetShuffle(true)
	require.NoError(t, c.RetreatShuffled())
	history, pos = c.History()
	assert.Equal(t, []int{0, 1, 2}, history)
	assert.Equal(t, 1, pos)

	c.RecordHistory(3)
	history, pos = c.History()
	assert.Equal(t, []int{0, 1, 3}, history)
	assert.Equal(t, 2, pos)
}

func TestController_RepeatOneTakesPrecedence(t *testing.T) {
	c, engine := newTestController(t, true, "a", "b", "c")
	c.SetRepeat(RepeatOne)

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.CurrentIndex())

	engine.finish()
	drain(c)
	require.NoError(t, c.Tick())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []string{"a.mp3", "a.mp3", "a.mp3"}, engine.loads())
	assert.Equal(t, []EventType{EventTrackFinished, EventTrackStarted}, eventTypes(drain(c)))

	history, _ := c.History()
	assert.Equal(t, []int{0}, history)
	assert.Empty(t, c.Pool(), "repeat never touches the pool")
}

func TestController_TickAdvancesOnlyWhenFinished(t *testing.T) {
	c, engine := newTestController(t, false, "a", "b")

	// Idle controller: nothing to do
	require.NoError(t, c.Tick())
	assert.Empty(t, engine.loads())

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Tick())
	assert.Equal(t, 0, c.CurrentIndex(), "busy engine keeps the track")

	require.NoError(t, c.TogglePause())
	engine.finish()
	require.NoError(t, c.Tick())
	assert.Equal(t, 0, c.CurrentIndex(), "paused engine keeps the track")

	require.NoError(t, c.TogglePause())
	drain(c)
	require.NoError(t, c.Tick())
	assert.Equal(t, 1, c.CurrentIndex())

	events := drain(c)
	require.Len(t, events, 2)
	assert.Equal(t, EventTrackFinished, events[0].Type)
	assert.Equal(t, "a", events[0].Track.Title)
	assert.Equal(t, EventTrackStarted, events[1].Type)
	assert.Equal(t, 1, events[1].Index)

	history, _ := c.History()
	assert.Equal(t, []int{0, 1}, history)
}

func TestController_PlayFileNow(t *testing.T) {
	c, engine := newTestController(t, false, "a", "b")

	require.NoError(t, c.PlayFileNow(track.New("/tmp/dropped.mp3", "", "")))
	assert.Equal(t, -1, c.CurrentIndex())
	assert.Equal(t, 0, c.QueueLen(), "the queue is cleared")

	current, ok := c.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, "dropped", current.Title)
	assert.Equal(t, StatePlaying, c.State())

	engine.finish()
	drain(c)
	require.NoError(t, c.Tick())
	events := drain(c)
	require.Len(t, events, 1)
	assert.Equal(t, EventTrackFinished, events[0].Type)
	assert.Equal(t, -1, events[0].Index)
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Tick())
	assert.Empty(t, drain(c))
	assert.Equal(t, []string{"/tmp/dropped.mp3"}, engine.loads())
}

func TestController_Stop(t *testing.T) {
	c, engine := newTestController(t, false, "a", "b")

	require.NoError(t, c.StartFromBeginning())
	c.Stop()
	assert.Equal(t, -1, c.CurrentIndex())
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, engine.stopped)
	assert.Equal(t, 2, c.QueueLen(), "queue is kept")

	_, ok := c.CurrentTrack()
	assert.False(t, ok)

	// Tick after stop does not resume
	require.NoError(t, c.Tick())
	assert.Equal(t, -1, c.CurrentIndex())
}

func TestController_TogglePause(t *testing.T) {
	c, _ := newTestController(t, false, "a")

	assert.ErrorIs(t, c.TogglePause(), ErrNoTrack)

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.TogglePause())
	assert.Equal(t, StatePaused, c.State())
	require.NoError(t, c.TogglePause())
	assert.Equal(t, StatePlaying, c.State())
}

func TestController_SetVolume(t *testing.T) {
	c, engine := newTestController(t, false)

	assert.InDelta(t, 0.7, engine.volume, 1e-9)
	assert.Equal(t, 1.0, c.SetVolume(1.5))
	assert.Equal(t, 0.0, c.SetVolume(-1))
	assert.Equal(t, 0.25, c.SetVolume(0.25))
	assert.Equal(t, 0.25, c.Volume())
	assert.Equal(t, 0.25, engine.volume)
}

func TestController_Toggles(t *testing.T) {
	c, _ := newTestController(t, false)

	assert.True(t, c.ToggleShuffle())
	assert.False(t, c.ToggleShuffle())
	assert.Equal(t, RepeatOne, c.ToggleRepeat())
	assert.Equal(t, RepeatOff, c.ToggleRepeat())

	events := drain(c)
	require.Len(t, events, 4)
	for _, e := range events {
		assert.Equal(t, EventModeChanged, e.Type)
	}
	assert.True(t, events[0].Shuffle)
	assert.Equal(t, RepeatOne, events[2].Repeat)
}

func TestController_LoadFailureAdvancesOnNextTick(t *testing.T) {
	c, engine := newTestController(t, false, "a", "broken", "c")
	engine.fail["broken.mp3"] = true

	require.NoError(t, c.StartFromBeginning())
	err := c.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.mp3")
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Tick())
	assert.Equal(t, 2, c.CurrentIndex())
}

func TestController_RecentlyPlayed(t *testing.T) {
	c, _ := newTestController(t, true, "a", "b", "c")

	_, ok := c.LastPlayed()
	assert.False(t, ok)

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	require.NoError(t, c.Prev())

	recent := c.RecentlyPlayed()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Title)
	assert.Equal(t, "a", recent[1].Title)

	last, ok := c.LastPlayed()
	require.True(t, ok)
	assert.Equal(t, "b", last.Title)
}

func TestController_ResetNavigation(t *testing.T) {
	c, _ := newTestController(t, true, "a", "b", "c")

	require.NoError(t, c.StartFromBeginning())
	require.NoError(t, c.Next())
	c.ResetNavigation()

	history, pos := c.History()
	assert.Empty(t, history)
	assert.Equal(t, -1, pos)
	assert.Empty(t, c.Pool())
}

func TestController_CloseIsIdempotent(t *testing.T) {
	c, _ := newTestController(t, false, "a")

	require.NoError(t, c.StartFromBeginning())
	c.Close()
	c.Close()

	assert.NotPanics(t, func() {
		c.Stop()
		c.ToggleShuffle()
	})
}

func TestController_NextAfterPlayFileNow(t *testing.T) {
	c, engine := newTestController(t, false, "a", "b")

	require.NoError(t, c.PlayFileNow(track.New("/tmp/dropped.mp3", "", "")))
	drain(c)

	// Sequential next has no queue to move through
	require.NoError(t, c.Next())
	assert.Empty(t, drain(c))
	assert.Equal(t, []string{"/tmp/dropped.mp3"}, engine.loads())

	c.SetShuffle(true)
	drain(c)
	require.NoError(t, c.Next())
	assert.Empty(t, drain(c))

	// Repeat-one replays the loaded file
	c.SetRepeat(RepeatOne)
	require.NoError(t, c.Next())
	assert.Equal(t, []string{"/tmp/dropped.mp3", "/tmp/dropped.mp3"}, engine.loads())
	assert.Equal(t, -1, c.CurrentIndex())
}

func TestController_MuteEngine(t *testing.T) {
	c := NewController(NewMuteEngine(), Config{})
	defer c.Close()

	c.LoadQueue([]track.Track{track.New("/music/a.mp3", "", "")})
	require.NoError(t, c.StartFromBeginning())
	assert.Equal(t, 0, c.CurrentIndex())

	// A mute engine is never busy, so the next tick treats the track as finished.
	require.NoError(t, c.Tick())
	assert.Equal(t, -1, c.CurrentIndex())
}
