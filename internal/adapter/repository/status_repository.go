package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// StatusRepository implements status polling in self-hosted backend mode.
// There is no remote diarization job to poll, so the status mirrors what the
// stored record already carries.
type StatusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{
		db: db,
	}
}

// PollStatus reports the job state derived from the stored record. A
// completed record reports completed regardless of the stored job status so
// reconciliation can proceed on whatever material exists.
func (r *StatusRepository) PollStatus(ctx context.Context, meetingID uuid.UUID) (*entities.TranscriptionStatus, error) {
	var record entities.MeetingRecord
	if err := r.db.WithContext(ctx).Where("id = ?", meetingID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to poll transcription status: %w", err)
	}

	status := record.TranscriptionStatus
	if record.IsCompleted {
		status = entities.TranscriptionCompleted
	}
	return &entities.TranscriptionStatus{
		Status:     status,
		Transcript: record.Transcript,
		Segments:   record.Segments,
		Identities: record.Identities,
	}, nil
}
