package filter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mixtape/internal/domain/track"
)

// Mock filter recording its calls
type stubFilter struct {
	name    string
	origins []Origin
	result  Result
	calls   int
}

func (f *stubFilter) Name() string                                 { return f.name }
func (f *stubFilter) Description() string                          { return "stub" }
func (f *stubFilter) ReturnCodes() []string                        { return []string{f.result.Code} }
func (f *stubFilter) ValidateConfig(settings map[string]any) error { return nil }

func (f *stubFilter) AppliesTo(origin Origin) bool {
	for _, o := range f.origins {
		if o == origin {
			return true
		}
	}
	return false
}

func (f *stubFilter) Check(ctx context.Context, req Request, t track.Track) Result {
	f.calls++
	return f.result
}

func TestChain_Execute(t *testing.T) {
	first := &stubFilter{name: "first", origins: []Origin{OriginDrop}, result: Accept()}
	second := &stubFilter{name: "second", origins: []Origin{OriginDrop}, result: Reject("nope")}
	third := &stubFilter{name: "third", origins: []Origin{OriginDrop}, result: Accept()}

	chain := NewChain()
	chain.Add(first)
	chain.Add(second)
	chain.Add(third)
	assert.Len(t, chain.Filters(), 3)

	result := chain.Execute(context.Background(), Request{Origin: OriginDrop}, track.New("a.mp3", "", ""))
	assert.False(t, result.Accepted)
	assert.Equal(t, "nope", result.Code)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "chain stops at the first rejection")
}

func TestChain_SkipsFiltersForOtherOrigins(t *testing.T) {
	dropOnly := &stubFilter{name: "drop_only", origins: []Origin{OriginDrop}, result: Reject("nope")}

	chain := NewChain()
	chain.Add(dropOnly)

	result := chain.Execute(context.Background(), Request{Origin: OriginImport}, track.New("a.mp3", "", ""))
	assert.True(t, result.Accepted)
	assert.Equal(t, 0, dropOnly.calls)
}

func TestChain_Empty(t *testing.T) {
	assert.True(t, NewChain().Execute(context.Background(), Request{}, track.Track{}).Accepted)
}

func TestExtensionFilter_Check(t *testing.T) {
	filter := NewExtensionFilter([]string{".mp3", ".OGG"})

	tests := []struct {
		path         string
		wantAccepted bool
	}{
		{"/music/song.mp3", true},
		{"/music/SONG.MP3", true},
		{"/music/song.ogg", true},
		{"/music/song.wav", false},
		{"/music/notes.txt", false},
		{"/music/mp3", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := filter.Check(context.Background(), Request{}, track.New(tt.path, "", ""))
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "unsupported_extension", result.Code)
			}
		})
	}
}

func TestExistsFilter_Check(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(file, []byte("id3"), 0o644))

	filter := &ExistsFilter{}
	ctx := context.Background()

	assert.True(t, filter.Check(ctx, Request{}, track.New(file, "", "")).Accepted)

	result := filter.Check(ctx, Request{}, track.New(filepath.Join(dir, "missing.mp3"), "", ""))
	assert.False(t, result.Accepted)
	assert.Equal(t, "file_not_found", result.Code)

	assert.False(t, filter.Check(ctx, Request{}, track.New(dir, "", "")).Accepted, "directories are rejected")
}

func TestOrigin_String(t *testing.T) {
	assert.Equal(t, "drop", OriginDrop.String())
	assert.Equal(t, "current", OriginCurrent.String())
	assert.Equal(t, "import", OriginImport.String())
	assert.Equal(t, "unknown", Origin(42).String())
}

func TestRegistry(t *testing.T) {
	factory, ok := GetRegistered()["duration_limit_filter"]
	require.True(t, ok)
	assert.Equal(t, "duration_limit_filter", factory().Name())
}
