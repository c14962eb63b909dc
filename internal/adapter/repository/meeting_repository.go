package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// MeetingRepository implements the meeting store on Postgres via GORM
// (self-hosted backend mode). Saves are idempotent upserts; in this mode the
// temporary id is adopted as the durable id, so no promotion happens.
type MeetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{
		db: db,
	}
}

// SaveMeeting upserts the record and returns the id callers must use for
// subsequent saves.
func (r *MeetingRepository) SaveMeeting(ctx context.Context, record *entities.MeetingRecord) (uuid.UUID, error) {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(record).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to save meeting: %w", err)
	}
	return record.ID, nil
}

// FindByID finds a meeting record by ID
func (r *MeetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingRecord, error) {
	var record entities.MeetingRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to find meeting by ID: %w", err)
	}
	return &record, nil
}
