package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// UsageCountRepository implements the usage idempotency marker on Postgres.
// The marker flip is a single conditional UPDATE, so concurrent callers on
// the same meeting id see exactly one true result.
type UsageCountRepository struct {
	db *gorm.DB
}

// NewUsageCountRepository creates a new usage repository
func NewUsageCountRepository(db *gorm.DB) *UsageCountRepository {
	return &UsageCountRepository{
		db: db,
	}
}

// MarkCountedIfNeeded flips the usage_counted flag and reports whether this
// call was the one that flipped it.
func (r *UsageCountRepository) MarkCountedIfNeeded(ctx context.Context, meetingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.MeetingRecord{}).
		Where("id = ? AND usage_counted = ?", meetingID, false).
		Update("usage_counted", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark meeting counted: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Distinguish "already counted" from "no such meeting".
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.MeetingRecord{}).
		Where("id = ?", meetingID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check meeting existence: %w", err)
	}
	if count == 0 {
		return false, entities.ErrMeetingNotFound
	}
	return false, nil
}

// IncrementUsage adds one billable meeting to the owning user's counter.
func (r *UsageCountRepository) IncrementUsage(ctx context.Context, meetingID uuid.UUID) error {
	var record entities.MeetingRecord
	if err := r.db.WithContext(ctx).Where("id = ?", meetingID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ErrMeetingNotFound
		}
		return fmt.Errorf("failed to find meeting: %w", err)
	}

	if err := r.db.WithContext(ctx).Exec(`
		INSERT INTO usage_counters (user_id, meetings_counted, updated_at)
		VALUES (?, 1, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET meetings_counted = usage_counters.meetings_counted + 1, updated_at = NOW()`,
		record.UserID,
	).Error; err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}
