package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mixtape/internal/app/playback"
)

type recordingSink struct {
	mu       sync.Mutex
	received []Notification
}

func (r *recordingSink) Send(n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, n)
	return nil
}

func (r *recordingSink) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.received...)
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	m := NewManager()

	id1 := m.Subscribe(&recordingSink{})
	id2 := m.Subscribe(&recordingSink{})
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Unsubscribe(id1)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Unsubscribe("unknown")
	assert.Equal(t, 1, m.SubscriberCount())

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_BroadcastSequence(t *testing.T) {
	m := NewManager()
	sink := &recordingSink{}
	m.Subscribe(sink)

	first := m.Broadcast(Notification{SessionID: "s", Event: playback.Event{Type: playback.EventTrackStarted}})
	second := m.Broadcast(Notification{SessionID: "s", Event: playback.Event{Type: playback.EventTrackFinished}})

	assert.Equal(t, uint64(1), first.SequenceNo)
	assert.Equal(t, uint64(2), second.SequenceNo)
	assert.False(t, first.At.IsZero())
	assert.Equal(t, uint64(2), m.SequenceNo())

	received := sink.all()
	require.Len(t, received, 2)
	assert.Equal(t, playback.EventTrackStarted, received[0].Event.Type)
	assert.Equal(t, uint64(2), received[1].SequenceNo)
}

func TestManager_BroadcastWithoutSubscribers(t *testing.T) {
	m := NewManager()
	n := m.Broadcast(Notification{})
	assert.Equal(t, uint64(1), n.SequenceNo)
}

func TestManager_SlowSinkTimesOut(t *testing.T) {
	m := NewManager()
	m.SetTimeout(20 * time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	m.Subscribe(SinkFunc(func(Notification) error {
		<-release
		return nil
	}))
	fast := &recordingSink{}
	m.Subscribe(fast)

	start := time.Now()
	m.Broadcast(Notification{})
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, fast.all(), 1)
}

func TestManager_FailingSinkDoesNotAffectOthers(t *testing.T) {
	m := NewManager()
	m.Subscribe(SinkFunc(func(Notification) error {
		return errors.New("broken pipe")
	}))
	ok := &recordingSink{}
	m.Subscribe(ok)

	m.Broadcast(Notification{})
	assert.Len(t, ok.all(), 1)
}
