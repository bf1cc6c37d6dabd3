package narration

import "math"

// WordIndex maps elapsed playback time to the active word of the page using
// the duration ratio: floor(elapsed/duration * wordCount), clamped into
// [0, wordCount-1].
//
// This assumes roughly uniform per-word duration. Pages with very uneven
// word lengths or long pauses will drift visibly; that is a known property
// of the ratio estimator, kept until a narration source with per-word
// timestamps exists. Do not "correct" it against punctuation pacing.
func WordIndex(elapsedMs, durationMs float64, wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	if durationMs <= 0 || elapsedMs <= 0 {
		return 0
	}

	idx := int(math.Floor(elapsedMs / durationMs * float64(wordCount)))
	if idx >= wordCount {
		// elapsed == duration lands exactly past the end; clamp to the
		// last word.
		idx = wordCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
