package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingRecord is the durable representation of a captured meeting. It is
// created with a temporary id on session start, promoted to a durable id on
// first persist, and is the single source of truth once the session ends.
type MeetingRecord struct {
	ID                  uuid.UUID                          `json:"id" gorm:"type:uuid;primary_key"`
	UserID              uuid.UUID                          `json:"user_id" gorm:"type:uuid;not null;index"`
	Title               string                             `json:"title" gorm:"type:varchar(500)"`
	Folder              string                             `json:"folder" gorm:"type:varchar(255);index"`
	Transcript          string                             `json:"transcript" gorm:"type:text"`
	Protocol            string                             `json:"protocol,omitempty" gorm:"type:text"`
	LanguageTag         string                             `json:"language_tag,omitempty" gorm:"type:varchar(20)"`
	DurationSeconds     int                                `json:"duration_seconds"`
	IsCompleted         bool                               `json:"is_completed" gorm:"default:false"`
	TranscriptionStatus TranscriptionJobStatus             `json:"transcription_status" gorm:"type:varchar(30)"`
	UsageCounted        bool                               `json:"usage_counted" gorm:"default:false"`
	Segments            []TranscriptSegment                `json:"segments,omitempty" gorm:"type:jsonb;serializer:json"`
	Identities          []SpeakerIdentity                  `json:"identities,omitempty" gorm:"type:jsonb;serializer:json"`
	SpeakerNames        datatypes.JSONType[SpeakerNameMap] `json:"speaker_names,omitempty" gorm:"type:jsonb"`
	CreatedAt           time.Time                          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time                          `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MeetingRecord) TableName() string {
	return "meeting_records"
}

// NewMeetingRecord creates a meeting record with a temporary id. The store
// may promote it to a durable id on first persist; callers must adopt the
// returned id for all subsequent saves.
func NewMeetingRecord(userID uuid.UUID, title, folder string) *MeetingRecord {
	return &MeetingRecord{
		ID:                  uuid.New(),
		UserID:              userID,
		Title:               title,
		Folder:              folder,
		TranscriptionStatus: TranscriptionQueued,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
}

// QuotaDecision is the outcome of the external quota check consulted once at
// session start for non-continuation sessions.
type QuotaDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
