package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// SpeakerNameRepository persists the per-meeting speaker name map.
// SaveSpeakerNames returns the stored map plus any learning events the
// rename produced (voice-profile feedback for strong identity matches).
type SpeakerNameRepository interface {
	GetSpeakerNames(ctx context.Context, meetingID uuid.UUID) (entities.SpeakerNameMap, error)
	SaveSpeakerNames(ctx context.Context, meetingID uuid.UUID, names entities.SpeakerNameMap) (entities.SpeakerNameMap, []entities.LearningEvent, error)
}
