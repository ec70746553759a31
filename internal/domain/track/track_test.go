package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsTitleToStem(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		title    string
		duration string
		expected Track
	}{
		{
			name:     "title from stem",
			path:     "/x/song.mp3",
			expected: Track{Path: "/x/song.mp3", Title: "song"},
		},
		{
			name:     "explicit title kept",
			path:     "/x/song.mp3",
			title:    "Bohemian Rhapsody",
			duration: "05:55",
			expected: Track{Path: "/x/song.mp3", Title: "Bohemian Rhapsody", Duration: "05:55"},
		},
		{
			name:     "relative path with dots",
			path:     "music/live.at.wembley.mp3",
			expected: Track{Path: "music/live.at.wembley.mp3", Title: "live.at.wembley"},
		},
		{
			name:     "no extension",
			path:     "track2",
			expected: Track{Path: "track2", Title: "track2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.path, tt.title, tt.duration)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTrack_DisplayDuration(t *testing.T) {
	trk := New("/x/a.mp3", "", "")
	assert.Equal(t, UnknownDuration, trk.DisplayDuration())

	trk.Duration = "03:21"
	assert.Equal(t, "03:21", trk.DisplayDuration())
}

func TestTrack_Length(t *testing.T) {
	tests := []struct {
		duration string
		want     time.Duration
		ok       bool
	}{
		{"05:55", 5*time.Minute + 55*time.Second, true},
		{"75:00", 75 * time.Minute, true},
		{"00:00", 0, true},
		{"", 0, false},
		{"--:--", 0, false},
		{"3:75", 0, false},
		{"355", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			trk := Track{Duration: tt.duration}
			got, ok := trk.Length()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrack_Apply(t *testing.T) {
	original := Track{Path: "/x/a.mp3", Title: "a", Duration: "01:00"}
	title := "New Title"

	updated := original.Apply(Update{Title: &title})

	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "/x/a.mp3", updated.Path, "nil fields must not change")
	assert.Equal(t, "01:00", updated.Duration, "nil fields must not change")
	assert.Equal(t, "a", original.Title, "original must be untouched")
}

func TestDecodeUpdate(t *testing.T) {
	u, err := DecodeUpdate(map[string]any{
		"Title":    "Song",
		"duration": "02:30",
		"path":     nil,
	})
	require.NoError(t, err)
	require.NotNil(t, u.Title)
	require.NotNil(t, u.Duration)
	assert.Nil(t, u.Path)
	assert.Equal(t, "Song", *u.Title)
	assert.Equal(t, "02:30", *u.Duration)
	assert.False(t, u.IsEmpty())
}

func TestDecodeUpdate_UnknownField(t *testing.T) {
	_, err := DecodeUpdate(map[string]any{"artist": "Queen"})
	assert.Error(t, err)
}

func TestDecodeUpdate_Empty(t *testing.T) {
	u, err := DecodeUpdate(map[string]any{})
	require.NoError(t, err)
	assert.True(t, u.IsEmpty())
}
