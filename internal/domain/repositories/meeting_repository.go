package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// MeetingStore persists meeting records. SaveMeeting is an idempotent
// upsert; the store may return a different id than the one on the record
// (promotion from a temporary to a durable id), and callers must adopt the
// returned id for all subsequent calls.
type MeetingStore interface {
	SaveMeeting(ctx context.Context, record *entities.MeetingRecord) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingRecord, error)
}

// StatusPoller reports the state of the remote transcription/diarization job
// for a meeting.
type StatusPoller interface {
	PollStatus(ctx context.Context, meetingID uuid.UUID) (*entities.TranscriptionStatus, error)
}
