package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// SpeakerNameRepositoryDB persists the per-meeting speaker name map on the
// meeting record (self-hosted backend mode).
type SpeakerNameRepositoryDB struct {
	db           *gorm.DB
	learningGate float64
}

// NewSpeakerNameRepository creates a new speaker name repository
func NewSpeakerNameRepository(db *gorm.DB, learningGate float64) *SpeakerNameRepositoryDB {
	return &SpeakerNameRepositoryDB{
		db:           db,
		learningGate: learningGate,
	}
}

// GetSpeakerNames returns the stored name map, empty when none was saved.
func (r *SpeakerNameRepositoryDB) GetSpeakerNames(ctx context.Context, meetingID uuid.UUID) (entities.SpeakerNameMap, error) {
	var record entities.MeetingRecord
	if err := r.db.WithContext(ctx).Where("id = ?", meetingID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to find meeting: %w", err)
	}

	names := record.SpeakerNames.Data()
	if names == nil {
		names = entities.SpeakerNameMap{}
	}
	return names, nil
}

// SaveSpeakerNames merges the incoming renames into the stored map and
// returns the resulting map plus voice-profile learning events for renames
// whose identity match clears the learning gate.
func (r *SpeakerNameRepositoryDB) SaveSpeakerNames(ctx context.Context, meetingID uuid.UUID, names entities.SpeakerNameMap) (entities.SpeakerNameMap, []entities.LearningEvent, error) {
	var record entities.MeetingRecord
	if err := r.db.WithContext(ctx).Where("id = ?", meetingID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, entities.ErrMeetingNotFound
		}
		return nil, nil, fmt.Errorf("failed to find meeting: %w", err)
	}

	merged := record.SpeakerNames.Data()
	if merged == nil {
		merged = entities.SpeakerNameMap{}
	}
	for label, name := range names {
		merged[label] = name
	}

	if err := r.db.WithContext(ctx).
		Model(&entities.MeetingRecord{}).
		Where("id = ?", meetingID).
		Update("speaker_names", datatypes.NewJSONType(merged)).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to save speaker names: %w", err)
	}

	events := entities.LearningCandidates(names, record.Identities, r.learningGate)
	return merged, events, nil
}
