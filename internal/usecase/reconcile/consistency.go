package reconcile

import (
	"regexp"
	"strings"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

var (
	labelPrefixPattern = regexp.MustCompile(`(?im)^\s*[\w .-]{1,40}:\s*`)
	nonWordPattern     = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// normalizeText strips leading "Speaker:" style prefixes, punctuation and
// case so two renderings of the same speech compare equal.
func normalizeText(text string) string {
	text = labelPrefixPattern.ReplaceAllString(text, "")
	text = strings.ToLower(text)
	text = nonWordPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// consistent verifies the segment source's embedded text against the
// canonical transcript: every segment must carry text, the total length and
// word-count ratios must fall within the configured bounds, and the first
// and last few words must overlap. Inconsistent text is discarded by the
// caller while its timing is kept.
func (e *Engine) consistent(canonical string, segments []entities.TranscriptSegment) bool {
	// Each segment is normalized on its own so its leading speaker prefix
	// is stripped before concatenation.
	var parts []string
	for _, seg := range segments {
		norm := normalizeText(seg.Text)
		if norm == "" {
			return false
		}
		parts = append(parts, norm)
	}

	canon := normalizeText(canonical)
	joined := strings.Join(parts, " ")
	if canon == "" {
		return false
	}

	if !ratioWithin(float64(len(joined)), float64(len(canon)), e.cfg.MinLengthRatio, e.cfg.MaxLengthRatio) {
		return false
	}

	canonWords := strings.Fields(canon)
	joinedWords := strings.Fields(joined)
	if !ratioWithin(float64(len(joinedWords)), float64(len(canonWords)), e.cfg.MinLengthRatio, e.cfg.MaxLengthRatio) {
		return false
	}

	edge := e.cfg.EdgeWords
	if edge <= 0 {
		edge = 3
	}
	if !wordsOverlap(head(canonWords, edge), head(joinedWords, edge)) {
		return false
	}
	if !wordsOverlap(tail(canonWords, edge), tail(joinedWords, edge)) {
		return false
	}
	return true
}

func ratioWithin(a, b, min, max float64) bool {
	if b == 0 {
		return false
	}
	ratio := a / b
	return ratio >= min && ratio <= max
}

func head(words []string, n int) []string {
	if len(words) < n {
		return words
	}
	return words[:n]
}

func tail(words []string, n int) []string {
	if len(words) < n {
		return words
	}
	return words[len(words)-n:]
}

// wordsOverlap reports whether the two edge windows share at least one word.
func wordsOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[w] = struct{}{}
	}
	for _, w := range b {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
