package meeting

import (
	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/usecase/reconcile"
)

// TurnResponse is one speaker-attributed turn of the reconciled transcript
type TurnResponse struct {
	SpeakerLabel   string  `json:"speaker_label"`
	DisplayName    string  `json:"display_name"`
	Text           string  `json:"text"`
	StartOffset    float64 `json:"start_offset"`
	EndOffset      float64 `json:"end_offset"`
	HighConfidence bool    `json:"high_confidence"`
}

// TurnsResponse is the reconciled view of a meeting. When Segmented is false
// the flat transcript is authoritative and Turns is empty.
type TurnsResponse struct {
	Transcript string            `json:"transcript"`
	Segmented  bool              `json:"segmented"`
	Turns      []TurnResponse    `json:"turns,omitempty"`
	Names      map[string]string `json:"names,omitempty"`
}

// FromResult maps a reconciliation result to its response form
func FromResult(r *reconcile.Result) *TurnsResponse {
	out := &TurnsResponse{
		Transcript: r.Transcript,
		Segmented:  r.Segmented,
		Names:      r.Names,
	}
	for _, t := range r.Turns {
		out.Turns = append(out.Turns, TurnResponse{
			SpeakerLabel:   t.SpeakerLabel,
			DisplayName:    t.DisplayName,
			Text:           t.Text,
			StartOffset:    t.StartOffset,
			EndOffset:      t.EndOffset,
			HighConfidence: t.HighConfidence,
		})
	}
	return out
}

// LearningEventResponse signals a rename trusted enough for voice-profile
// feedback
type LearningEventResponse struct {
	Label           string  `json:"label"`
	Name            string  `json:"name"`
	OwnerEmail      string  `json:"owner_email,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
}

// RenameSpeakersResponse returns the stored map plus learning events
type RenameSpeakersResponse struct {
	Names          map[string]string       `json:"names"`
	LearningEvents []LearningEventResponse `json:"learning_events,omitempty"`
}

// FromLearningEvents maps learning events to their response form
func FromLearningEvents(events []entities.LearningEvent) []LearningEventResponse {
	var out []LearningEventResponse
	for _, e := range events {
		out = append(out, LearningEventResponse{
			Label:           e.Label,
			Name:            e.Name,
			OwnerEmail:      e.OwnerEmail,
			SimilarityScore: e.SimilarityScore,
		})
	}
	return out
}
