package filter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/osa030/mixtape/internal/domain/track"
)

// ExtensionFilter rejects files whose extension is not in the allowed list.
type ExtensionFilter struct {
	extensions []string
}

// NewExtensionFilter creates a new extension filter. Extensions are compared lowercased with the dot.
func NewExtensionFilter(extensions []string) *ExtensionFilter {
	return &ExtensionFilter{
		extensions: lo.Map(extensions, func(ext string, _ int) string {
			return strings.ToLower(ext)
		}),
	}
}

func (f *ExtensionFilter) Name() string {
	return "extension_filter"
}

func (f *ExtensionFilter) Description() string {
	return "Accepts only files with a supported audio extension"
}

func (f *ExtensionFilter) ReturnCodes() []string {
	return []string{"unsupported_extension"}
}

func (f *ExtensionFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *ExtensionFilter) AppliesTo(origin Origin) bool {
	// The current track was already accepted when it was loaded
	return origin != OriginCurrent
}

func (f *ExtensionFilter) Check(ctx context.Context, req Request, t track.Track) Result {
	if lo.Contains(f.extensions, strings.ToLower(filepath.Ext(t.Path))) {
		return Accept()
	}
	return Reject("unsupported_extension")
}
