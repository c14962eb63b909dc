// Package polling watches a remote transcription/diarization job until it
// reaches a terminal state. A single poller owns the interval loop; starting
// a new watch for the same meeting cancels the previous one.
package polling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/domain/repositories"
)

// Update is delivered to the watcher callback on every successful poll.
type Update struct {
	MeetingID uuid.UUID
	Status    *entities.TranscriptionStatus
}

// watch is one registered polling loop. The generation distinguishes it from
// a replacement watch for the same meeting, so a replaced loop's cleanup can
// never remove its successor's registration.
type watch struct {
	cancel context.CancelFunc
	gen    uint64
}

// Poller polls the status collaborator on a fixed interval until the job is
// terminal or the watch is cancelled.
type Poller struct {
	mu       sync.Mutex
	source   repositories.StatusPoller
	interval time.Duration
	logger   *zap.Logger
	gen      uint64
	watches  map[uuid.UUID]watch
}

// NewPoller creates a poller over the status source.
func NewPoller(source repositories.StatusPoller, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		source:   source,
		interval: interval,
		logger:   logger,
		watches:  make(map[uuid.UUID]watch),
	}
}

// Watch starts polling the meeting's job status, invoking onUpdate for every
// successful poll. The watch ends when the status turns terminal, the parent
// context is cancelled, or a newer watch for the same meeting replaces it.
// Poll errors are logged and retried on the next tick.
func (p *Poller) Watch(ctx context.Context, meetingID uuid.UUID, onUpdate func(Update)) {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if prev, ok := p.watches[meetingID]; ok {
		prev.cancel()
	}
	p.gen++
	gen := p.gen
	p.watches[meetingID] = watch{cancel: cancel, gen: gen}
	p.mu.Unlock()

	go p.run(ctx, gen, meetingID, onUpdate)
}

// Cancel stops the watch for the meeting, if any.
func (p *Poller) Cancel(meetingID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.watches[meetingID]; ok {
		w.cancel()
		delete(p.watches, meetingID)
	}
}

func (p *Poller) run(ctx context.Context, gen uint64, meetingID uuid.UUID, onUpdate func(Update)) {
	defer func() {
		p.mu.Lock()
		if w, ok := p.watches[meetingID]; ok && w.gen == gen {
			delete(p.watches, meetingID)
		}
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := p.source.PollStatus(ctx, meetingID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("status poll failed",
				zap.String("meeting_id", meetingID.String()),
				zap.Error(err),
			)
			continue
		}

		onUpdate(Update{MeetingID: meetingID, Status: status})
		if status.Terminal() {
			return
		}
	}
}
