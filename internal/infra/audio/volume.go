// Package audio provides the playback engine used by the queue controller.
package audio

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrAudioUnavailable = errors.New("audio output is not available in this build")
	ErrNothingLoaded    = errors.New("no file loaded")
)

// DefaultVolume is the level applied before any SetVolume call.
const DefaultVolume = 0.7

// ClampVolume limits v to [0, 1].
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// gain converts a linear level in [0, 1] to a base-2 exponent for effects.Volume.
// Level 0 is reported as silent since log2(0) is -Inf.
func gain(level float64) (exponent float64, silent bool) {
	level = ClampVolume(level)
	if level == 0 {
		return 0, true
	}
	return math.Log2(level), false
}
