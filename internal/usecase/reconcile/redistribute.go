package reconcile

import (
	"strings"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// redistribute re-fills the segment timings with the canonical transcript's
// words, proportionally to each segment's duration. A segment with zero or
// unknown duration takes an average-sized share, so untimed segments split
// words evenly among themselves while the timed ones stay proportional. The
// last segment absorbs the rounding remainder so no words are ever dropped.
func redistribute(canonical string, segments []entities.TranscriptSegment) []entities.TranscriptSegment {
	words := strings.Fields(canonical)
	out := make([]entities.TranscriptSegment, len(segments))
	copy(out, segments)
	if len(out) == 0 {
		return out
	}

	counts := wordAllocation(words, out)
	pos := 0
	for i := range out {
		out[i].Text = strings.Join(words[pos:pos+counts[i]], " ")
		pos += counts[i]
	}
	return out
}

// wordAllocation decides how many words each segment receives. Untimed
// segments weigh as much as the average timed one; with no timed segments at
// all every weight is equal. The counts always sum to len(words).
func wordAllocation(words []string, segments []entities.TranscriptSegment) []int {
	n := len(segments)
	counts := make([]int, n)

	weights := make([]float64, n)
	total := 0.0
	timed := 0
	for i, seg := range segments {
		if d := seg.Duration(); d > 0 {
			weights[i] = d
			total += d
			timed++
		}
	}

	switch {
	case timed == 0:
		for i := range weights {
			weights[i] = 1
		}
		total = float64(n)
	case timed < n:
		mean := total / float64(timed)
		for i := range weights {
			if weights[i] == 0 {
				weights[i] = mean
				total += mean
			}
		}
	}

	assigned := 0
	for i := 0; i < n-1; i++ {
		counts[i] = int(float64(len(words)) * weights[i] / total)
		assigned += counts[i]
	}
	counts[n-1] = len(words) - assigned
	return counts
}
