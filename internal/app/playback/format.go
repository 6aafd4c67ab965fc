package playback

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// ErrInvalidGeometry is returned by SeekFraction for a zero-width or unknown track bar.
var ErrInvalidGeometry = errors.New("invalid seek bar geometry")

// FormatTime formats seconds as MM:SS.
// It reports false for NaN, infinite, zero or negative input; callers must not
// render anything in that case.
func FormatTime(seconds float64) (string, bool) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return "", false
	}
	// Round once on the total so 59.6s becomes 01:00 rather than 00:60.
	total := int64(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60), true
}

// Progress derives the progress fraction and remaining seconds from a
// position and duration. ok is false when the duration is unusable, in which
// case the caller must leave its progress state untouched.
func Progress(position, duration float64) (fraction, remaining float64, ok bool) {
	if !usableDuration(duration) || math.IsNaN(position) {
		return 0, 0, false
	}
	fraction = clamp01(position / duration)
	remaining = math.Max(duration-position, 0)
	return fraction, remaining, true
}

// SeekFraction translates a pointer x coordinate on a seek bar into a
// fraction in [0,1]. Clicks outside the bar are clamped to its ends.
func SeekFraction(pointerX, left, width float64) (float64, error) {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return 0, errors.Wrapf(ErrInvalidGeometry, "width %v", width)
	}
	if math.IsNaN(pointerX) || math.IsNaN(left) {
		return 0, errors.Wrap(ErrInvalidGeometry, "NaN coordinate")
	}
	return clamp01((pointerX - left) / width), nil
}

func usableDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
