package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle axis of a capture session. Paused and muted
// are orthogonal flags on top of StatusActive, not statuses of their own:
// mute only silences ingestion, pause additionally suspends the capture
// device and the wake lock.
type SessionStatus string

const (
	StatusIdle       SessionStatus = "idle"
	StatusActive     SessionStatus = "active"
	StatusBlocked    SessionStatus = "blocked" // quota denied, upgrade required
	StatusFinalizing SessionStatus = "finalizing"
	StatusSaved      SessionStatus = "saved"
	StatusFailed     SessionStatus = "failed"
)

// StopReason says why a session left the active state.
type StopReason string

const (
	StopReasonUser        StopReason = "user"
	StopReasonMaxDuration StopReason = "max_duration"
	StopReasonError       StopReason = "error"
)

// Session is the in-memory state of a live capture session. It is owned
// exclusively by the session controller and mutated only through its named
// transition functions.
type Session struct {
	ID              uuid.UUID     `json:"id"`
	MeetingID       uuid.UUID     `json:"meeting_id"`
	UserID          uuid.UUID     `json:"user_id"`
	CreatedAt       time.Time     `json:"created_at"`
	Title           string        `json:"title"`
	Folder          string        `json:"folder"`
	Status          SessionStatus `json:"status"`
	Paused          bool          `json:"paused"`
	Muted           bool          `json:"muted"`
	Transcript      string        `json:"transcript"`
	InterimText     string        `json:"interim_text"`
	DurationSeconds int           `json:"duration_seconds"`
	LanguageTag     string        `json:"language_tag"`
	UsageCounted    bool          `json:"usage_counted"`
	Continuation    bool          `json:"continuation"`
}

// NewSession creates an idle session for the given user.
func NewSession(userID uuid.UUID, title, folder, language string) *Session {
	return &Session{
		ID:          uuid.New(),
		UserID:      userID,
		CreatedAt:   time.Now(),
		Title:       title,
		Folder:      folder,
		Status:      StatusIdle,
		LanguageTag: language,
	}
}

// IsActive reports whether the session is on the active axis (capturing,
// paused or muted).
func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}

// IsTerminal reports whether the session has reached a terminal state.
func (s *Session) IsTerminal() bool {
	return s.Status == StatusSaved || s.Status == StatusFailed
}

// PublicStatus flattens the status axis plus the paused/muted flags into the
// user-facing status vocabulary.
func (s *Session) PublicStatus() string {
	if s.Status != StatusActive {
		return string(s.Status)
	}
	switch {
	case s.Paused:
		return "paused"
	case s.Muted:
		return "muted"
	default:
		return "capturing"
	}
}

// AppendFinal appends finalized text to the accumulated transcript and clears
// the interim text. Transcript text is append-only within a session.
func (s *Session) AppendFinal(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.InterimText = ""
		return
	}
	if s.Transcript == "" {
		s.Transcript = text
	} else {
		s.Transcript += " " + text
	}
	s.InterimText = ""
}

// WordCount returns the number of words in the accumulated transcript.
func (s *Session) WordCount() int {
	return len(strings.Fields(s.Transcript))
}
