package session

import (
	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// SessionResponse is the public view of a capture session
type SessionResponse struct {
	ID              string `json:"id"`
	MeetingID       string `json:"meeting_id"`
	Status          string `json:"status"`
	Title           string `json:"title"`
	Folder          string `json:"folder"`
	Transcript      string `json:"transcript"`
	InterimText     string `json:"interim_text,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	WordCount       int    `json:"word_count"`
	LanguageTag     string `json:"language_tag,omitempty"`
	Continuation    bool   `json:"continuation,omitempty"`
	LastError       string `json:"last_error,omitempty"`
}

// FromEntity maps a session entity to its response form
func FromEntity(s *entities.Session, lastError string) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:              s.ID.String(),
		MeetingID:       s.MeetingID.String(),
		Status:          s.PublicStatus(),
		Title:           s.Title,
		Folder:          s.Folder,
		Transcript:      s.Transcript,
		InterimText:     s.InterimText,
		DurationSeconds: s.DurationSeconds,
		WordCount:       s.WordCount(),
		LanguageTag:     s.LanguageTag,
		Continuation:    s.Continuation,
		LastError:       lastError,
	}
}

// CaptionEvent is one live-caption frame pushed over the websocket feed
type CaptionEvent struct {
	Kind            string `json:"kind"` // "partial" or "final"
	Text            string `json:"text"`
	Transcript      string `json:"transcript,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
}
