// Package reconcile merges possibly-inconsistent diarization output with the
// canonical transcript and resolves speaker identity under confidence
// thresholds. The canonical flat transcript is always authoritative: segment
// text that disagrees with it is discarded and its timing re-filled from the
// canonical words.
package reconcile

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// Config holds the reconciliation heuristics. The thresholds are product
// constants without a documented derivation and stay configurable.
type Config struct {
	MinLengthRatio      float64
	MaxLengthRatio      float64
	StrongMatch         float64
	LearningGate        float64
	HighConfidence      float64
	EdgeWords           int
	DiarizationDisabled bool
}

// DefaultConfig returns the shipped thresholds.
func DefaultConfig() Config {
	return Config{
		MinLengthRatio: 0.6,
		MaxLengthRatio: 1.4,
		StrongMatch:    0.70,
		LearningGate:   0.72,
		HighConfidence: 0.80,
		EdgeWords:      3,
	}
}

// Input carries everything known about a finished meeting: the authoritative
// transcript plus zero or more segment sources and identity hypotheses.
type Input struct {
	Transcript         string
	ReconstructedTurns []entities.TranscriptSegment
	Segments           []entities.TranscriptSegment
	Identities         []entities.SpeakerIdentity
	Names              entities.SpeakerNameMap
}

// Result is the display-ready reconciliation outcome. When Segmented is
// false, Turns is empty and Transcript renders flat.
type Result struct {
	Transcript string
	Segmented  bool
	Turns      []entities.SpeakerTurn
	Names      entities.SpeakerNameMap
}

// Engine reconciles transcripts. Stateless apart from configuration.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Reconcile produces speaker-attributed turns from the input. When
// diarization is administratively disabled, every segmentation and identity
// step is skipped and the flat canonical transcript is returned as is.
func (e *Engine) Reconcile(in Input) Result {
	out := Result{
		Transcript: strings.TrimSpace(in.Transcript),
		Names:      in.Names.Clone(),
	}
	if out.Names == nil {
		out.Names = entities.SpeakerNameMap{}
	}

	if e.cfg.DiarizationDisabled {
		return out
	}

	segments := selectSource(in)
	if len(segments) == 0 {
		return out
	}

	if !e.consistent(out.Transcript, segments) {
		segments = redistribute(out.Transcript, segments)
	}

	segments = mergeConsecutive(segments)
	turns, names := e.resolveIdentities(segments, in.Identities, out.Names)

	out.Segmented = true
	out.Turns = turns
	out.Names = names
	return out
}

// selectSource picks the richest available segment source: reconstructed
// speaker turns first, then raw diarization segments, then time-window-only
// identity segments. Segmentation is never fabricated from nothing.
func selectSource(in Input) []entities.TranscriptSegment {
	if len(in.ReconstructedTurns) > 0 {
		return append([]entities.TranscriptSegment(nil), in.ReconstructedTurns...)
	}
	if len(in.Segments) > 0 {
		return append([]entities.TranscriptSegment(nil), in.Segments...)
	}
	var fromIdentities []entities.TranscriptSegment
	for _, id := range in.Identities {
		for _, r := range id.Segments {
			fromIdentities = append(fromIdentities, entities.TranscriptSegment{
				SpeakerLabel: id.Label,
				StartOffset:  r.Start,
				EndOffset:    r.End,
			})
		}
	}
	sort.SliceStable(fromIdentities, func(i, j int) bool {
		return fromIdentities[i].StartOffset < fromIdentities[j].StartOffset
	})
	return fromIdentities
}

// mergeConsecutive folds adjacent segments sharing a speaker label into one
// turn, concatenating text and extending the end timestamp.
func mergeConsecutive(segments []entities.TranscriptSegment) []entities.TranscriptSegment {
	if len(segments) < 2 {
		return segments
	}
	merged := []entities.TranscriptSegment{segments[0]}
	for _, seg := range segments[1:] {
		last := &merged[len(merged)-1]
		if seg.SpeakerLabel == last.SpeakerLabel {
			if seg.Text != "" {
				if last.Text != "" {
					last.Text += " " + seg.Text
				} else {
					last.Text = seg.Text
				}
			}
			if seg.EndOffset > last.EndOffset {
				last.EndOffset = seg.EndOffset
			}
			continue
		}
		merged = append(merged, seg)
	}
	return merged
}

var genericLabelPattern = regexp.MustCompile(`(?i)^speaker[_\s-]?\d+$`)

// humanReadable reports whether a raw diarization label is worth showing as
// a name. Generic speaker_<n> patterns and bare single letters are not.
func humanReadable(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	if genericLabelPattern.MatchString(label) {
		return false
	}
	if len([]rune(label)) == 1 {
		return false
	}
	return true
}
