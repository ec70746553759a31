package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/osa030/mixtape/internal/app/playback"
	"github.com/osa030/mixtape/internal/app/session"
	"github.com/osa030/mixtape/internal/domain/playlist"
	"github.com/osa030/mixtape/internal/domain/track"
	"github.com/osa030/mixtape/internal/infra/config"
	"github.com/osa030/mixtape/internal/infra/metadata"
	"github.com/osa030/mixtape/internal/infra/store"
)

// openStore opens the playlist store named in the config.
func openStore(cfg *config.Config) *store.Store {
	return store.Open(cfg.Store.Path)
}

// openSession creates a session over the configured store.
func openSession(cfg *config.Config, engine playback.Engine) (*session.Manager, error) {
	manager, err := session.NewManager(cfg, openStore(cfg), engine, metadata.NewReader())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	return manager, nil
}

// requirePlaylist fails when name is not a stored playlist.
func requirePlaylist(st *store.Store, name string) error {
	if !st.Exists(name) {
		return errors.Wrapf(playlist.ErrNoSuchPlaylist, "%q", name)
	}
	return nil
}

// trackIndex converts a 1-based track number into a 0-based index within the playlist.
func trackIndex(st *store.Store, name string, number int) (int, error) {
	if err := requirePlaylist(st, name); err != nil {
		return 0, err
	}
	n := st.Len(name)
	if number < 1 || number > n {
		return 0, errors.Newf("track number %d out of range (playlist has %d tracks)", number, n)
	}
	return number - 1, nil
}

func listPlaylists(w io.Writer, cfg *config.Config) error {
	renderPlaylists(w, openStore(cfg))
	return nil
}

func createPlaylist(w io.Writer, cfg *config.Config, name string) error {
	if err := openStore(cfg).Create(name); err != nil {
		return err
	}
	fmt.Fprintf(w, "Created playlist %q\n", name)
	return nil
}

func renamePlaylist(w io.Writer, cfg *config.Config, oldName, newName string) error {
	st := openStore(cfg)
	if err := requirePlaylist(st, oldName); err != nil {
		return err
	}
	if err := st.Rename(oldName, newName); err != nil {
		return err
	}
	fmt.Fprintf(w, "Renamed %q to %q\n", oldName, newName)
	return nil
}

func deletePlaylist(w io.Writer, cfg *config.Config, name string) error {
	st := openStore(cfg)
	if err := requirePlaylist(st, name); err != nil {
		return err
	}
	if err := st.Delete(name); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted playlist %q\n", name)
	return nil
}

func showTracks(w io.Writer, cfg *config.Config, name string) error {
	st := openStore(cfg)
	if err := requirePlaylist(st, name); err != nil {
		return err
	}
	renderTracks(w, st.Tracks(name), -1)
	return nil
}

// addFiles runs files through the session's filter chain into a playlist.
func addFiles(w io.Writer, cfg *config.Config, name string, paths []string) error {
	manager, err := openSession(cfg, playback.NewMuteEngine())
	if err != nil {
		return err
	}
	defer manager.Close()

	result, err := manager.DropFiles(context.Background(), paths, name)
	if err != nil {
		return err
	}
	renderIntake(w, result)
	return nil
}

func removeTrack(w io.Writer, cfg *config.Config, name string, number int) error {
	st := openStore(cfg)
	index, err := trackIndex(st, name, number)
	if err != nil {
		return err
	}
	removed := st.Tracks(name)[index]
	if err := st.RemoveTrackAt(name, index); err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %q from %q\n", removed.Title, name)
	return nil
}

// updateTrack applies field=value pairs to one track.
func updateTrack(w io.Writer, cfg *config.Config, name string, number int, fields map[string]string) error {
	st := openStore(cfg)
	index, err := trackIndex(st, name, number)
	if err != nil {
		return err
	}

	update, err := track.DecodeUpdate(lo.MapValues(fields, func(v string, _ string) any {
		return v
	}))
	if err != nil {
		return err
	}
	if update.IsEmpty() {
		return errors.New("nothing to update")
	}
	if err := st.UpdateTrackAt(name, index, update); err != nil {
		return err
	}
	renderTracks(w, st.Tracks(name), index)
	return nil
}

func sortPlaylist(w io.Writer, cfg *config.Config, name string) error {
	st := openStore(cfg)
	if err := requirePlaylist(st, name); err != nil {
		return err
	}
	if err := st.SortTracks(name); err != nil {
		return err
	}
	renderTracks(w, st.Tracks(name), -1)
	return nil
}

func searchPlaylist(w io.Writer, cfg *config.Config, name, query string) error {
	st := openStore(cfg)
	if err := requirePlaylist(st, name); err != nil {
		return err
	}
	renderSearch(w, st.Tracks(name), st.SearchTracks(name, query))
	return nil
}

// importList reads a path list from file ("-" for stdin) into a playlist.
func importList(w io.Writer, cfg *config.Config, name, file string) error {
	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", file)
		}
		defer f.Close()
		r = f
	}

	manager, err := openSession(cfg, playback.NewMuteEngine())
	if err != nil {
		return err
	}
	defer manager.Close()

	result, err := manager.ImportList(context.Background(), name, r)
	if err != nil {
		return err
	}
	renderIntake(w, result)
	return nil
}

func listFilters(w io.Writer, cfg *config.Config) error {
	manager, err := openSession(cfg, playback.NewMuteEngine())
	if err != nil {
		return err
	}
	defer manager.Close()

	renderFilters(w, manager.Filters())
	return nil
}
