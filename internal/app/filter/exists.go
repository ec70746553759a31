package filter

import (
	"context"
	"os"

	"github.com/osa030/mixtape/internal/domain/track"
)

// ExistsFilter rejects paths that are missing or are directories.
type ExistsFilter struct{}

func (f *ExistsFilter) Name() string {
	return "exists_filter"
}

func (f *ExistsFilter) Description() string {
	return "Checks that a dropped path is a regular file"
}

func (f *ExistsFilter) ReturnCodes() []string {
	return []string{"file_not_found"}
}

func (f *ExistsFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *ExistsFilter) AppliesTo(origin Origin) bool {
	// Imported lists may name files on media that is not mounted yet
	return origin == OriginDrop
}

func (f *ExistsFilter) Check(ctx context.Context, req Request, t track.Track) Result {
	info, err := os.Stat(t.Path)
	if err != nil || info.IsDir() {
		return Reject("file_not_found")
	}
	return Accept()
}
