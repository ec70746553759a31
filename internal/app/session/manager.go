// Package session provides the session manager: the intent surface the
// presentation layer drives.
package session

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/mixtape/internal/app/filter"
	"github.com/osa030/mixtape/internal/app/notification"
	"github.com/osa030/mixtape/internal/app/playback"
	"github.com/osa030/mixtape/internal/app/session/state"
	"github.com/osa030/mixtape/internal/domain/playlist"
	"github.com/osa030/mixtape/internal/domain/track"
	"github.com/osa030/mixtape/internal/infra/config"
	"github.com/osa030/mixtape/internal/infra/metadata"
	"github.com/osa030/mixtape/internal/infra/store"
)

var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrNothingPlaying = errors.New("nothing is playing")
)

// MetadataReader reads display information from audio files.
type MetadataReader interface {
	Read(path string) metadata.Info
}

// Manager manages the player session.
type Manager struct {
	mu sync.Mutex

	// Configuration
	config *config.Config

	// Components
	stateMgr     *state.Manager
	store        *store.Store
	playback     *playback.Controller
	watcher      *playback.Watcher
	filterChain  *filter.Chain
	notification *notification.Manager
	metadata     MetadataReader // nil when metadata is skipped

	// Channels
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewManager creates a new session manager. reader may be nil.
func NewManager(
	cfg *config.Config,
	st *store.Store,
	engine playback.Engine,
	reader MetadataReader,
) (*Manager, error) {
	controller := playback.NewController(engine, playback.Config{
		Shuffle: cfg.Playback.Shuffle,
		Repeat:  playback.ParseRepeatMode(cfg.Playback.Repeat),
		Volume:  cfg.Playback.Volume,
	})

	m := &Manager{
		config:       cfg,
		stateMgr:     state.New(uuid.New().String()),
		store:        st,
		playback:     controller,
		watcher:      playback.NewWatcher(controller, cfg.PollInterval()),
		filterChain:  filter.NewChain(),
		notification: notification.NewManager(),
		done:         make(chan struct{}),
	}
	if reader != nil && !cfg.Library.SkipMetadata {
		m.metadata = reader
	}

	if err := m.setupFilters(); err != nil {
		controller.Close()
		return nil, err
	}
	return m, nil
}

// setupFilters initializes the filter chain.
func (m *Manager) setupFilters() error {
	cfg := m.config

	m.filterChain.Add(filter.NewExtensionFilter(cfg.Library.Extensions))
	m.filterChain.Add(&filter.ExistsFilter{})

	duplicate := filter.NewDuplicateTrackFilter(m.store)
	if err := duplicate.ValidateConfig(cfg.FilterSettings(duplicate.Name())); err != nil {
		return errors.Wrapf(err, "invalid %s settings", duplicate.Name())
	}
	m.filterChain.Add(duplicate)

	// Optional filters, in name order
	registered := filter.GetRegistered()
	names := lo.Keys(registered)
	sort.Strings(names)
	for _, name := range names {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registered[name]()
		if err := f.ValidateConfig(cfg.FilterSettings(name)); err != nil {
			return errors.Wrapf(err, "invalid %s settings", name)
		}
		m.filterChain.Add(f)
	}

	zlog.Debug().Msgf("session: filters: %v", lo.Map(m.filterChain.Filters(), func(f filter.Filter, _ int) string {
		return f.Name()
	}))
	return nil
}

// Start starts the track-finished poll and event forwarding.
// Both stop when ctx is done or the session is closed.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.stateMgr.GetPhase() {
	case state.PhaseActive:
		return nil
	case state.PhaseTerminated:
		return ErrSessionClosed
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.stateMgr.SetPhase(state.PhaseActive)
	zlog.Info().Msgf("phase changed: phase=ACTIVE session_id=%s poll_interval=%v",
		m.stateMgr.GetSessionID(), m.watcher.Interval())

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.watcher.Run(m.ctx)
	}()
	go func() {
		defer m.wg.Done()
		m.playbackLoop()
	}()
	return nil
}

// Done returns a channel closed when the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// SessionID returns the session identifier.
func (m *Manager) SessionID() string {
	return m.stateMgr.GetSessionID()
}

// Filters returns the active filter chain in execution order.
func (m *Manager) Filters() []filter.Filter {
	return m.filterChain.Filters()
}

// Store returns the track store.
func (m *Manager) Store() *store.Store {
	return m.store
}

// PlayPlaylist snapshots the playlist into the queue and starts it.
// A missing or empty playlist is a no-op.
func (m *Manager) PlayPlaylist(name string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tracks := m.store.Tracks(name)
	if len(tracks) == 0 {
		zlog.Info().Msgf("session: nothing to play in %q", name)
		return nil
	}

	m.stateMgr.SetPlaylistSource(name)
	zlog.Info().Msgf("session: playing playlist %q: tracks=%d shuffle=%t", name, len(tracks), m.playback.Shuffle())
	return m.startQueueLocked(tracks)
}

// startQueueLocked loads tracks as a fresh queue and starts it in the current mode.
func (m *Manager) startQueueLocked(tracks []track.Track) error {
	m.playback.LoadQueue(tracks)
	m.playback.ResetNavigation()
	if m.playback.Shuffle() {
		return m.playback.AdvanceShuffled()
	}
	return m.playback.StartFromBeginning()
}

// PlayIndex plays the queue entry at index (clamped) and records it.
func (m *Manager) PlayIndex(index int) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playback.QueueLen() == 0 {
		return nil
	}
	if err := m.playback.PlayAt(index); err != nil {
		return err
	}
	m.playback.RecordHistory(m.playback.CurrentIndex())
	return nil
}

// LoadFile plays a single file outside any playlist.
func (m *Manager) LoadFile(path string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stateMgr.SetFilesSource()
	return m.playback.PlayFileNow(m.trackFor(path))
}

// trackFor builds a track record for path, using metadata when available.
func (m *Manager) trackFor(path string) track.Track {
	if m.metadata == nil {
		return track.New(path, "", "")
	}
	info := m.metadata.Read(path)
	return track.New(path, info.DisplayTitle(), info.Duration)
}

// Next handles an explicit "next" request.
func (m *Manager) Next() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.playback.Next()
}

// Prev handles an explicit "previous" request.
func (m *Manager) Prev() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.playback.Prev()
}

// TogglePause pauses or resumes playback.
func (m *Manager) TogglePause() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.playback.TogglePause()
}

// Stop stops playback. The queue is kept.
func (m *Manager) Stop() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.playback.Stop()
	return nil
}

// SetVolume sets the output level and returns the clamped value.
func (m *Manager) SetVolume(v float64) (float64, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	return m.playback.SetVolume(v), nil
}

// ToggleShuffle flips shuffle and returns the new setting.
func (m *Manager) ToggleShuffle() (bool, error) {
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	return m.playback.ToggleShuffle(), nil
}

// ToggleRepeat switches repeat-one on or off and returns the new mode.
func (m *Manager) ToggleRepeat() (playback.RepeatMode, error) {
	if err := m.checkOpen(); err != nil {
		return playback.RepeatOff, err
	}
	return m.playback.ToggleRepeat(), nil
}

// AddCurrentToPlaylist appends the now-playing track to the named playlist.
// A rejected track is reported through the result, not as an error.
func (m *Manager) AddCurrentToPlaylist(ctx context.Context, name string) (filter.Result, error) {
	if err := m.checkOpen(); err != nil {
		return filter.Result{}, err
	}
	current, ok := m.playback.CurrentTrack()
	if !ok {
		return filter.Result{}, ErrNothingPlaying
	}

	result := m.filterChain.Execute(ctx, filter.Request{Playlist: name, Origin: filter.OriginCurrent}, current)
	zlog.Info().Msgf("add current: playlist=%s track=%s result=%t code=%s", name, current.Title, result.Accepted, result.Code)
	if !result.Accepted {
		return result, nil
	}
	if err := m.store.AddTrack(name, current.Path, current.Title, current.Duration); err != nil {
		return filter.Result{}, err
	}
	return result, nil
}

// Rejection describes a file turned away by the filter chain.
type Rejection struct {
	Path string
	Code string
}

// DropResult reports what happened to dropped or imported files.
type DropResult struct {
	Accepted []track.Track
	Rejected []Rejection
}

// DropFiles takes files dropped onto the player. With a target playlist each
// accepted file is appended to it. Without one a single file plays now and
// several files become a new queue.
func (m *Manager) DropFiles(ctx context.Context, paths []string, target string) (*DropResult, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if target != "" && !m.store.Exists(target) {
		return nil, errors.Wrapf(playlist.ErrNoSuchPlaylist, "drop into %q", target)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.intakeLocked(ctx, paths, target, filter.OriginDrop)
	if err != nil || target != "" {
		return result, err
	}

	switch len(result.Accepted) {
	case 0:
		return result, nil
	case 1:
		m.stateMgr.SetFilesSource()
		return result, m.playback.PlayFileNow(result.Accepted[0])
	default:
		m.stateMgr.SetFilesSource()
		return result, m.startQueueLocked(result.Accepted)
	}
}

// ImportList appends the paths listed in r to the named playlist, subject to the filter chain.
func (m *Manager) ImportList(ctx context.Context, name string, r io.Reader) (*DropResult, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if !m.store.Exists(name) {
		return nil, errors.Wrapf(playlist.ErrNoSuchPlaylist, "import into %q", name)
	}
	paths, err := store.ReadPathList(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intakeLocked(ctx, paths, name, filter.OriginImport)
}

// intakeLocked runs each path through the filter chain. With a target the
// accepted tracks are stored one by one, so repeats within a batch are caught.
func (m *Manager) intakeLocked(ctx context.Context, paths []string, target string, origin filter.Origin) (*DropResult, error) {
	result := &DropResult{
		Accepted: make([]track.Track, 0, len(paths)),
		Rejected: make([]Rejection, 0),
	}
	req := filter.Request{Playlist: target, Origin: origin}

	for _, path := range paths {
		t := m.trackFor(path)
		check := m.filterChain.Execute(ctx, req, t)
		if !check.Accepted {
			zlog.Info().Msgf("%s rejected: path=%s code=%s", origin, path, check.Code)
			result.Rejected = append(result.Rejected, Rejection{Path: path, Code: check.Code})
			continue
		}
		if target != "" {
			if err := m.store.AddTrack(target, t.Path, t.Title, t.Duration); err != nil {
				return result, err
			}
		}
		result.Accepted = append(result.Accepted, t)
	}

	zlog.Info().Msgf("%s: target=%q accepted=%d rejected=%d", origin, target, len(result.Accepted), len(result.Rejected))
	return result, nil
}

// RenamePlaylist renames a stored playlist and keeps the now-playing source label in step.
func (m *Manager) RenamePlaylist(oldName, newName string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if err := m.store.Rename(oldName, newName); err != nil {
		return err
	}
	m.stateMgr.RenamePlaylistSource(oldName, newName)
	return nil
}

// NowPlaying returns the label for the track handed to the engine, or "".
func (m *Manager) NowPlaying() string {
	current, ok := m.playback.CurrentTrack()
	if !ok {
		return ""
	}
	return current.Title
}

// Status represents the current session status.
type Status struct {
	SessionID     string
	Phase         state.Phase
	Source        state.Source
	PlaybackState playback.State
	CurrentTrack  *track.Track
	CurrentIndex  int
	QueueSize     int
	Shuffle       bool
	Repeat        playback.RepeatMode
	Volume        float64
	Subscribers   int
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	status := &Status{
		SessionID:     m.stateMgr.GetSessionID(),
		Phase:         m.stateMgr.GetPhase(),
		Source:        m.stateMgr.GetSource(),
		PlaybackState: m.playback.State(),
		CurrentIndex:  m.playback.CurrentIndex(),
		QueueSize:     m.playback.QueueLen(),
		Shuffle:       m.playback.Shuffle(),
		Repeat:        m.playback.Repeat(),
		Volume:        m.playback.Volume(),
		Subscribers:   m.notification.SubscriberCount(),
	}
	if current, ok := m.playback.CurrentTrack(); ok {
		status.CurrentTrack = &current
	}
	return status
}

// Queue returns the current queue snapshot.
func (m *Manager) Queue() []track.Track {
	return m.playback.Queue()
}

// RecentlyPlayed returns visited tracks, newest first.
func (m *Manager) RecentlyPlayed() []track.Track {
	return m.playback.RecentlyPlayed()
}

// Subscribe registers a sink for playback notifications and returns its id.
func (m *Manager) Subscribe(sink notification.Sink) string {
	return m.notification.Subscribe(sink)
}

// Unsubscribe removes a notification sink.
func (m *Manager) Unsubscribe(id string) {
	m.notification.Unsubscribe(id)
}

// playbackLoop forwards playback events to subscribers.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			// Restart loop so subscribers keep receiving events
			zlog.Info().Msg("restarting playback loop")
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.playbackLoop()
			}()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	switch event.Type {
	case playback.EventTrackStarted:
		zlog.Info().Msgf("track started: index=%d title=%s", event.Index, event.Track.Title)
	case playback.EventQueueExhausted:
		zlog.Info().Msgf("queue exhausted: source=%s", m.stateMgr.GetSource().Label())
	default:
		zlog.Debug().Msgf("playback event: type=%s index=%d state=%s", event.Type, event.Index, event.State)
	}

	m.notification.Broadcast(notification.Notification{
		SessionID: m.stateMgr.GetSessionID(),
		Event:     event,
	})
}

func (m *Manager) checkOpen() error {
	if m.stateMgr.GetPhase() == state.PhaseTerminated {
		return ErrSessionClosed
	}
	return nil
}

// Close stops playback, the poll loop and event forwarding.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.stateMgr.GetPhase() == state.PhaseTerminated {
		m.mu.Unlock()
		return
	}
	m.stateMgr.SetPhase(state.PhaseTerminated)
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.playback.Close()
	m.notification.Close()
	close(m.done)
	zlog.Info().Msgf("phase changed: phase=TERMINATED session_id=%s", m.stateMgr.GetSessionID())
}
