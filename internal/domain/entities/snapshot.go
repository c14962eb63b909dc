package entities

import (
	"time"

	"github.com/google/uuid"
)

// CrashSnapshot is a best-effort, ephemeral mirror of a Session used only
// for recovery messaging after an unclean shutdown. It is overwritten
// continuously, discarded on clean session end, and never authoritative:
// when a remote MeetingRecord exists for the same meeting, the record wins.
type CrashSnapshot struct {
	SessionID       uuid.UUID `json:"session_id"`
	MeetingID       uuid.UUID `json:"meeting_id"`
	Title           string    `json:"title"`
	Folder          string    `json:"folder"`
	Status          string    `json:"status"`
	Transcript      string    `json:"transcript"`
	InterimText     string    `json:"interim_text"`
	DurationSeconds int       `json:"duration_seconds"`
	TakenAt         time.Time `json:"taken_at"`
}

// SnapshotOf mirrors the current session state.
func SnapshotOf(s *Session) *CrashSnapshot {
	return &CrashSnapshot{
		SessionID:       s.ID,
		MeetingID:       s.MeetingID,
		Title:           s.Title,
		Folder:          s.Folder,
		Status:          s.PublicStatus(),
		Transcript:      s.Transcript,
		InterimText:     s.InterimText,
		DurationSeconds: s.DurationSeconds,
		TakenAt:         time.Now(),
	}
}
