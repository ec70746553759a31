// Package store provides the JSON-backed playlist store.
//
// The whole document is rewritten after every mutation. A missing file is an
// empty store, and so is a file that cannot be read or parsed.
package store

import (
	"bufio"
	"encoding/json"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mixtape/internal/domain/playlist"
	"github.com/osa030/mixtape/internal/domain/track"
)

// document is the persisted layout: {"playlists": {"name": [track, ...]}}.
type document struct {
	Playlists map[string][]track.Track `json:"playlists"`
}

// Store maps playlist names to ordered track lists.
type Store struct {
	mu        sync.RWMutex
	path      string
	playlists map[string][]track.Track
}

// Open loads the store from path. It never fails: unreadable or malformed
// state resets to an empty store. The file is created on the first write.
func Open(path string) *Store {
	s := &Store{
		path:      path,
		playlists: make(map[string][]track.Track),
	}
	s.load()
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zlog.Warn().Err(err).Msgf("store: unreadable state file, starting empty: path=%s", s.path)
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		zlog.Warn().Err(err).Msgf("store: malformed state file, starting empty: path=%s", s.path)
		return
	}
	if doc.Playlists == nil {
		zlog.Warn().Msgf("store: state file has no playlists object, starting empty: path=%s", s.path)
		return
	}

	for name, tracks := range doc.Playlists {
		if tracks == nil {
			tracks = []track.Track{}
		}
		s.playlists[name] = tracks
	}
	zlog.Debug().Msgf("store: loaded %d playlists from %s", len(s.playlists), s.path)
}

// mutateLocked applies fn to a copy of the playlists and commits the copy
// only once it is on disk, so a failed write leaves memory untouched.
// fn must not modify the track slices in place. Must be called with s.mu held.
func (s *Store) mutateLocked(fn func(next map[string][]track.Track)) error {
	next := maps.Clone(s.playlists)
	fn(next)
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.playlists = next
	return nil
}

// writeLocked rewrites the whole document. Must be called with s.mu held.
func (s *Store) writeLocked(playlists map[string][]track.Track) error {
	data, err := json.MarshalIndent(document{Playlists: playlists}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode playlists")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".playlists-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write state file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close state file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to replace state file")
	}
	return nil
}

// ListPlaylists returns playlist names in alphabetical order.
func (s *Store) ListPlaylists() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.playlists))
	for name := range s.playlists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exists reports whether a playlist exists.
func (s *Store) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.playlists[name]
	return ok
}

// Create creates an empty playlist with a unique, non-blank name.
func (s *Store) Create(name string) error {
	name, err := playlist.NormalizeName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[name]; ok {
		return errors.Wrapf(playlist.ErrDuplicateName, "create %q", name)
	}
	return s.mutateLocked(func(next map[string][]track.Track) {
		next[name] = []track.Track{}
	})
}

// Rename renames a playlist. Renaming a missing playlist is a no-op.
func (s *Store) Rename(oldName, newName string) error {
	newName, err := playlist.NormalizeName(newName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, ok := s.playlists[oldName]
	if !ok {
		return nil
	}
	if _, taken := s.playlists[newName]; taken && newName != oldName {
		return errors.Wrapf(playlist.ErrDuplicateName, "rename %q to %q", oldName, newName)
	}

	return s.mutateLocked(func(next map[string][]track.Track) {
		delete(next, oldName)
		next[newName] = tracks
	})
}

// Delete removes a playlist. Deleting a missing playlist is a no-op.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[name]; !ok {
		return nil
	}
	return s.mutateLocked(func(next map[string][]track.Track) {
		delete(next, name)
	})
}

// Tracks returns a copy of the playlist's tracks (empty if absent).
func (s *Store) Tracks(name string) []track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks := s.playlists[name]
	result := make([]track.Track, len(tracks))
	copy(result, tracks)
	return result
}

// Playlist returns a copy of the named playlist.
func (s *Store) Playlist(name string) (playlist.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks, ok := s.playlists[name]
	if !ok {
		return playlist.Playlist{}, false
	}
	result := make([]track.Track, len(tracks))
	copy(result, tracks)
	return playlist.Playlist{Name: name, Tracks: result}, true
}

// Len returns the number of tracks in the playlist (0 if absent).
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.playlists[name])
}

// AddTrack appends a track. An empty title defaults to the file name stem.
func (s *Store) AddTrack(name, path, title, duration string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, ok := s.playlists[name]
	if !ok {
		return errors.Wrapf(playlist.ErrNoSuchPlaylist, "add track to %q", name)
	}
	return s.mutateLocked(func(next map[string][]track.Track) {
		next[name] = append(slices.Clip(tracks), track.New(path, title, duration))
	})
}

// RemoveTrackAt removes the track at index. Out-of-range indexes are ignored.
func (s *Store) RemoveTrackAt(name string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, ok := s.playlists[name]
	if !ok || index < 0 || index >= len(tracks) {
		return nil
	}
	return s.mutateLocked(func(next map[string][]track.Track) {
		next[name] = slices.Delete(slices.Clone(tracks), index, index+1)
	})
}

// UpdateTrackAt merges the non-nil fields of u into the track at index.
// Missing playlists and out-of-range indexes are ignored.
func (s *Store) UpdateTrackAt(name string, index int, u track.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, ok := s.playlists[name]
	if !ok || index < 0 || index >= len(tracks) {
		return nil
	}
	return s.mutateLocked(func(next map[string][]track.Track) {
		updated := slices.Clone(tracks)
		updated[index] = updated[index].Apply(u)
		next[name] = updated
	})
}

// SortTracks orders the playlist by title, case-insensitively. Ties keep their order.
func (s *Store) SortTracks(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, ok := s.playlists[name]
	if !ok {
		return nil
	}
	return s.mutateLocked(func(next map[string][]track.Track) {
		sorted := slices.Clone(tracks)
		sort.SliceStable(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Title) < strings.ToLower(sorted[j].Title)
		})
		next[name] = sorted
	})
}

// SearchTracks returns the indexes of tracks whose title or path contains query,
// case-insensitively.
func (s *Store) SearchTracks(name, query string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	matches := make([]int, 0)
	if q == "" {
		return matches
	}
	for i, t := range s.playlists[name] {
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Path), q) {
			matches = append(matches, i)
		}
	}
	return matches
}

// ImportLines adds one track per path listed in r and returns how many were added.
func (s *Store) ImportLines(name string, r io.Reader) (int, error) {
	paths, err := ReadPathList(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, ok := s.playlists[name]
	if !ok {
		return 0, errors.Wrapf(playlist.ErrNoSuchPlaylist, "import into %q", name)
	}
	if len(paths) == 0 {
		return 0, nil
	}
	err = s.mutateLocked(func(next map[string][]track.Track) {
		imported := slices.Clip(tracks)
		for _, path := range paths {
			imported = append(imported, track.New(path, "", ""))
		}
		next[name] = imported
	})
	if err != nil {
		return 0, err
	}
	return len(paths), nil
}

// ReadPathList returns the non-blank lines of r, trimmed.
// Lines starting with '#' are skipped, so extended M3U files import cleanly.
func ReadPathList(r io.Reader) ([]string, error) {
	paths := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read import source")
	}
	return paths, nil
}
