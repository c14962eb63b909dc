package entities

// TimeRange is a half-open [Start, End) window in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SpeakerIdentity is a voice-print match hypothesis linking a diarized
// speaker label to an enrolled voice. Several hypotheses may compete for the
// same label; the reconciliation engine resolves at most one accepted name
// per label.
type SpeakerIdentity struct {
	Label           string      `json:"label"`
	CandidateName   string      `json:"candidate_name,omitempty"`
	OwnerEmail      string      `json:"owner_email,omitempty"`
	SimilarityScore float64     `json:"similarity_score"` // 0..1
	Segments        []TimeRange `json:"segments,omitempty"`
}

// SpeakerNameMap maps diarized speaker labels to display names. It is the
// only mutable, user-editable, cross-session artifact in the data model.
type SpeakerNameMap map[string]string

// Clone returns a copy so callers can mutate freely.
func (m SpeakerNameMap) Clone() SpeakerNameMap {
	out := make(SpeakerNameMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SpeakerTurn is one display-ready, speaker-attributed turn of the
// reconciled transcript.
type SpeakerTurn struct {
	SpeakerLabel   string  `json:"speaker_label"`
	DisplayName    string  `json:"display_name"`
	Text           string  `json:"text"`
	StartOffset    float64 `json:"start_offset"`
	EndOffset      float64 `json:"end_offset"`
	HighConfidence bool    `json:"high_confidence"`
}

// LearningEvent signals that a user-confirmed rename is trustworthy enough
// to feed back into the voice-profile store.
type LearningEvent struct {
	Label           string  `json:"label"`
	Name            string  `json:"name"`
	OwnerEmail      string  `json:"owner_email,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
}

// LearningCandidates returns the renames trustworthy enough for
// voice-profile feedback: the label must carry an identity hypothesis whose
// similarity clears the learning gate. The gate sits slightly above the
// strong-match threshold so weak matches never teach the profile store.
func LearningCandidates(names SpeakerNameMap, identities []SpeakerIdentity, gate float64) []LearningEvent {
	best := make(map[string]SpeakerIdentity)
	for _, id := range identities {
		if cur, ok := best[id.Label]; !ok || id.SimilarityScore > cur.SimilarityScore {
			best[id.Label] = id
		}
	}

	var events []LearningEvent
	for label, name := range names {
		if name == "" {
			continue
		}
		id, ok := best[label]
		if !ok || id.SimilarityScore < gate {
			continue
		}
		events = append(events, LearningEvent{
			Label:           label,
			Name:            name,
			OwnerEmail:      id.OwnerEmail,
			SimilarityScore: id.SimilarityScore,
		})
	}
	return events
}
