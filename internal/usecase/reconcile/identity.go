package reconcile

import (
	"fmt"
	"strings"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// resolveIdentities assigns one display name per speaker label. Priority,
// highest first: user-assigned name, strong voice-match alias, strong
// voice-match email local-part, human-readable raw label, positional
// "Speaker <n>" fallback. A similarity at or above the high-confidence
// threshold marks the turn as high confidence.
func (e *Engine) resolveIdentities(
	segments []entities.TranscriptSegment,
	identities []entities.SpeakerIdentity,
	names entities.SpeakerNameMap,
) ([]entities.SpeakerTurn, entities.SpeakerNameMap) {
	labels := distinctLabels(segments)
	best := bestByLabel(identities)

	// Single-speaker shortcut: with exactly one label and exactly one
	// hypothesis, map them directly even without time overlap. Short
	// sessions rarely produce overlapping windows.
	if len(labels) == 1 && len(identities) == 1 {
		best[labels[0]] = identities[0]
	}

	resolved := names.Clone()
	turns := make([]entities.SpeakerTurn, 0, len(segments))
	for _, seg := range segments {
		name, high := e.displayName(seg.SpeakerLabel, labels, best, names)
		if seg.SpeakerLabel != "" {
			resolved[seg.SpeakerLabel] = name
		}
		turns = append(turns, entities.SpeakerTurn{
			SpeakerLabel:   seg.SpeakerLabel,
			DisplayName:    name,
			Text:           seg.Text,
			StartOffset:    seg.StartOffset,
			EndOffset:      seg.EndOffset,
			HighConfidence: high,
		})
	}
	return turns, resolved
}

func (e *Engine) displayName(
	label string,
	labels []string,
	best map[string]entities.SpeakerIdentity,
	names entities.SpeakerNameMap,
) (string, bool) {
	if name, ok := names[label]; ok && name != "" {
		id, hasID := best[label]
		return name, hasID && id.SimilarityScore >= e.cfg.HighConfidence
	}

	if id, ok := best[label]; ok && id.SimilarityScore >= e.cfg.StrongMatch {
		high := id.SimilarityScore >= e.cfg.HighConfidence
		if id.CandidateName != "" {
			return id.CandidateName, high
		}
		if local := emailLocalPart(id.OwnerEmail); local != "" {
			return local, high
		}
	}

	if humanReadable(label) {
		return label, false
	}
	return fmt.Sprintf("Speaker %d", labelIndex(label, labels)+1), false
}

// bestByLabel keeps the highest-similarity hypothesis per label.
func bestByLabel(identities []entities.SpeakerIdentity) map[string]entities.SpeakerIdentity {
	best := make(map[string]entities.SpeakerIdentity)
	for _, id := range identities {
		if cur, ok := best[id.Label]; !ok || id.SimilarityScore > cur.SimilarityScore {
			best[id.Label] = id
		}
	}
	return best
}

// distinctLabels returns labels in order of first appearance.
func distinctLabels(segments []entities.TranscriptSegment) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, seg := range segments {
		if _, ok := seen[seg.SpeakerLabel]; ok {
			continue
		}
		seen[seg.SpeakerLabel] = struct{}{}
		labels = append(labels, seg.SpeakerLabel)
	}
	return labels
}

func labelIndex(label string, labels []string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return 0
}

func emailLocalPart(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	return email[:at]
}
