// Package autosave writes session state to the meeting store: debounced,
// deduplicated by content hash, and serialized so only one save is ever in
// flight. A failed save never touches the in-memory transcript; the next
// debounce cycle simply retries with the latest state.
package autosave

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/domain/repositories"
	usecaseErrors "github.com/meetscribe/capture-agent/internal/usecase/errors"
)

// Persister debounces meeting saves. Request schedules a save of the given
// record snapshot; Flush persists synchronously with retries (terminal
// save); Cancel drops any pending timer.
type Persister struct {
	mu       sync.Mutex
	store    repositories.MeetingStore
	logger   *zap.Logger
	debounce time.Duration

	timer    *time.Timer
	pending  *entities.MeetingRecord
	inFlight bool
	dirty    bool
	lastHash string
	closed   bool

	// onPromote is invoked when the store returns a different id than the
	// one saved (temporary id promoted to durable).
	onPromote func(uuid.UUID)
}

// NewPersister creates a debounced persister over the meeting store.
func NewPersister(store repositories.MeetingStore, debounce time.Duration, onPromote func(uuid.UUID), logger *zap.Logger) *Persister {
	return &Persister{
		store:     store,
		logger:    logger,
		debounce:  debounce,
		onPromote: onPromote,
	}
}

// contentHash covers the fields whose change warrants a remote write.
func contentHash(record *entities.MeetingRecord) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", record.Transcript, record.Title, record.Folder)
	return hex.EncodeToString(h.Sum(nil))
}

// Request schedules a save of the record snapshot after the debounce
// window. Repeated requests within the window coalesce to the latest state.
func (p *Persister) Request(record entities.MeetingRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.pending = &record
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, p.fire)
}

// fire runs one debounce cycle.
func (p *Persister) fire() {
	p.mu.Lock()
	if p.closed || p.pending == nil {
		p.mu.Unlock()
		return
	}
	if p.inFlight {
		// A save is running; remember that newer state exists and let the
		// completion handler schedule the next cycle.
		p.dirty = true
		p.mu.Unlock()
		return
	}
	record := *p.pending
	hash := contentHash(&record)
	if hash == p.lastHash {
		p.pending = nil
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	id, err := p.store.SaveMeeting(ctx, &record)

	p.mu.Lock()
	p.inFlight = false
	if err != nil {
		// NetworkDegraded: keep state dirty, retry on the next cycle.
		p.logger.Warn("autosave failed, will retry", zap.Error(err))
		p.dirty = true
	} else {
		p.lastHash = hash
		if id != record.ID && p.onPromote != nil && !p.closed {
			defer p.onPromote(id)
		}
	}
	retry := p.dirty && !p.closed
	p.dirty = false
	if retry {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.timer = time.AfterFunc(p.debounce, p.fire)
	}
	p.mu.Unlock()
}

// Flush saves the record synchronously with exponential backoff. Used for
// the terminal persist on session stop.
func (p *Persister) Flush(ctx context.Context, record entities.MeetingRecord) (uuid.UUID, error) {
	p.Cancel()

	var id uuid.UUID
	save := func() error {
		var err error
		id, err = p.store.SaveMeeting(ctx, &record)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 20 * time.Second

	if err := backoff.Retry(save, backoff.WithContext(bo, ctx)); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", usecaseErrors.ErrNetworkDegraded, err)
	}

	p.mu.Lock()
	p.lastHash = contentHash(&record)
	p.mu.Unlock()
	return id, nil
}

// Cancel drops any pending debounce timer.
func (p *Persister) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = nil
}

// Close cancels pending work and drops late id promotions so a finished
// save cannot resurrect a session that already reached a terminal state.
func (p *Persister) Close() {
	p.mu.Lock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = nil
	p.mu.Unlock()
}
