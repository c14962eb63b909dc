package entities

import "errors"

var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrSessionNotFound = errors.New("session not found")
)
