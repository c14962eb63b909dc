package session

// StartSessionRequest represents the request to start a capture session
type StartSessionRequest struct {
	UserID       string               `json:"user_id" validate:"required,uuid"`
	Title        string               `json:"title" validate:"omitempty,max=500"`
	Folder       string               `json:"folder" validate:"omitempty,max=255"`
	Language     string               `json:"language" validate:"omitempty,bcp47_language_tag"`
	Continuation *ContinuationRequest `json:"continuation,omitempty"`
}

// ContinuationRequest resumes a prior meeting. Usage already counted for it
// is never billed again.
type ContinuationRequest struct {
	MeetingID    string `json:"meeting_id" validate:"required,uuid"`
	UsageCounted bool   `json:"usage_counted"`
	Transcript   string `json:"transcript,omitempty"`
}

// StopSessionRequest represents the request to stop a session
type StopSessionRequest struct {
	// Force finalizes even when the recording is below the duration or
	// word-count floors.
	Force bool `json:"force"`
}

// UpdateSessionRequest changes the session title or folder mid-capture
type UpdateSessionRequest struct {
	Title  string `json:"title,omitempty" validate:"omitempty,max=500"`
	Folder string `json:"folder,omitempty" validate:"omitempty,max=255"`
}
