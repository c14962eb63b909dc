// Package capture abstracts audio capture backends behind a common device
// interface. A device's stream is owned exclusively by one session
// controller between Acquire and Release.
package capture

import (
	"context"
	"errors"
)

// ErrPermissionDenied means the audio input device could not be opened.
// Fatal to the attempted session start.
var ErrPermissionDenied = errors.New("capture: device permission denied")

// Device is the capture device adapter. SetTrackEnabled(false) suspends the
// audio track without releasing the device (pause semantics); Release tears
// the device down and closes the chunk channel.
type Device interface {
	Acquire(ctx context.Context) error
	Release()
	SetTrackEnabled(enabled bool)
	TrackEnabled() bool
	Chunks() <-chan []byte
	SampleRate() int
}
