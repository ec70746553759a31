package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/osa030/mixtape/internal/app/filter"
	"github.com/osa030/mixtape/internal/app/session"
	"github.com/osa030/mixtape/internal/domain/track"
	"github.com/osa030/mixtape/internal/infra/store"
)

// renderPlaylists prints playlist names with their track counts.
func renderPlaylists(w io.Writer, st *store.Store) {
	names := st.ListPlaylists()
	if len(names) == 0 {
		fmt.Fprintln(w, "No playlists yet. Create one with: mixtape create <name>")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Playlist", "Tracks"})
	for _, name := range names {
		t.AppendRow(table.Row{name, st.Len(name)})
	}
	t.Render()
}

// renderTracks prints tracks with a 1-based index. The row at current (0-based) is highlighted.
func renderTracks(w io.Writer, tracks []track.Track, current int) {
	if len(tracks) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "#", "Title", "Duration", "Path"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	for i, trk := range tracks {
		indicator := " "
		colorFunc := fmt.Sprint
		if i == current {
			indicator = "▶"
			colorFunc = text.FgGreen.Sprint
		}
		t.AppendRow(table.Row{
			colorFunc(indicator),
			colorFunc(i + 1),
			colorFunc(trk.Title),
			colorFunc(trk.DisplayDuration()),
			colorFunc(trk.Path),
		})
	}
	t.Render()
}

// renderSearch prints the tracks of a playlist at the matched indexes.
func renderSearch(w io.Writer, tracks []track.Track, matches []int) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "Duration", "Path"})
	for _, i := range matches {
		t.AppendRow(table.Row{i + 1, tracks[i].Title, tracks[i].DisplayDuration(), tracks[i].Path})
	}
	t.Render()
}

// renderIntake summarizes accepted and rejected files.
func renderIntake(w io.Writer, result *session.DropResult) {
	fmt.Fprintf(w, "Accepted %d file(s)\n", len(result.Accepted))
	if len(result.Rejected) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rejected", "Reason"})
	for _, r := range result.Rejected {
		t.AppendRow(table.Row{r.Path, text.FgYellow.Sprint(r.Code)})
	}
	t.Render()
}

// renderFilters prints available filters.
func renderFilters(w io.Writer, filters []filter.Filter) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Filter", "Description", "Codes"})
	for _, f := range filters {
		t.AppendRow(table.Row{f.Name(), f.Description(), strings.Join(f.ReturnCodes(), ", ")})
	}
	t.Render()
}

// renderStatus prints the session status.
func renderStatus(w io.Writer, s *session.Status) {
	now := "(nothing)"
	if s.CurrentTrack != nil {
		now = s.CurrentTrack.Title
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Now playing", now},
		{"State", s.PlaybackState},
		{"Source", s.Source.Label()},
		{"Position", fmt.Sprintf("%d / %d", s.CurrentIndex+1, s.QueueSize)},
		{"Shuffle", onOff(s.Shuffle)},
		{"Repeat", s.Repeat},
		{"Volume", fmt.Sprintf("%.0f%%", s.Volume*100)},
	})
	t.Render()
}
