package ingest

import (
	"context"
	"errors"
	"strings"
)

// EventKind tags an ingestion event.
type EventKind string

const (
	EventPartialText EventKind = "partial-text"
	EventFinalText   EventKind = "final-text"
	EventError       EventKind = "adapter-error"
	EventEnded       EventKind = "adapter-ended"
)

// Event is the tagged union every ingest adapter emits. Representing the
// callback traffic as plain values keeps the session controller testable
// without a live device.
type Event struct {
	Kind        EventKind
	Text        string
	StartOffset float64 // seconds
	EndOffset   float64 // seconds
	Confidence  float64
	Err         error
}

// Sink receives ingestion events. Adapters deliver events asynchronously,
// never from inside Start or Stop.
type Sink func(Event)

// Start/Stop on an adapter that is already in the target state is a no-op
// signalled by these sentinels; callers treat them as success.
var (
	ErrAlreadyStarted = errors.New("ingest: already started")
	ErrAlreadyStopped = errors.New("ingest: already stopped")
)

// Ingestor is the capability interface shared by the on-device recognizer
// and the remote streaming channel.
type Ingestor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}

// AudioSource is the capture-side feed an ingestor consumes. The channel is
// owned by the capture device adapter and closes when the device is released.
type AudioSource interface {
	Chunks() <-chan []byte
	SampleRate() int
}

// transient error markers observed from recognition services. These are
// recovered by silent restart and never surfaced.
var transientMarkers = []string{
	"no speech",
	"no-speech",
	"aborted",
	"idle timeout",
	"connection reset",
}

// IsTransient reports whether an adapter error is recoverable by restarting
// ingestion. Anything else is fatal and surfaced once.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
