package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// fakeStore records every save and can fail a configurable number of times.
type fakeStore struct {
	mu        sync.Mutex
	saves     []entities.MeetingRecord
	failures  int
	returnID  uuid.UUID
	saveDelay time.Duration
}

func (f *fakeStore) SaveMeeting(ctx context.Context, record *entities.MeetingRecord) (uuid.UUID, error) {
	if f.saveDelay > 0 {
		time.Sleep(f.saveDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return uuid.Nil, errors.New("backend unavailable")
	}
	f.saves = append(f.saves, *record)
	if f.returnID != uuid.Nil {
		return f.returnID, nil
	}
	return record.ID, nil
}

func (f *fakeStore) FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingRecord, error) {
	return nil, entities.ErrMeetingNotFound
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestRequest_CoalescesWithinDebounceWindow(t *testing.T) {
	store := &fakeStore{}
	p := NewPersister(store, 30*time.Millisecond, nil, zap.NewNop())
	defer p.Close()

	record := *entities.NewMeetingRecord(uuid.New(), "standup", "work")
	for i := 0; i < 10; i++ {
		record.Transcript = record.Transcript + " word"
		p.Request(record)
	}

	waitFor(t, func() bool { return store.saveCount() == 1 })
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, store.saveCount(), "rapid requests must coalesce to one save")
	assert.Contains(t, store.saves[0].Transcript, "word word")
}

func TestRequest_UnchangedContentIsNotResaved(t *testing.T) {
	store := &fakeStore{}
	p := NewPersister(store, 10*time.Millisecond, nil, zap.NewNop())
	defer p.Close()

	record := *entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"

	p.Request(record)
	waitFor(t, func() bool { return store.saveCount() == 1 })

	p.Request(record)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.saveCount(), "identical content must not trigger a second save")
}

func TestRequest_RetriesAfterFailure(t *testing.T) {
	store := &fakeStore{failures: 1}
	p := NewPersister(store, 10*time.Millisecond, nil, zap.NewNop())
	defer p.Close()

	record := *entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"
	p.Request(record)

	waitFor(t, func() bool { return store.saveCount() == 1 })
}

func TestRequest_PromotesReturnedID(t *testing.T) {
	durable := uuid.New()
	store := &fakeStore{returnID: durable}

	var mu sync.Mutex
	var promoted uuid.UUID
	p := NewPersister(store, 10*time.Millisecond, func(id uuid.UUID) {
		mu.Lock()
		promoted = id
		mu.Unlock()
	}, zap.NewNop())
	defer p.Close()

	record := *entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"
	p.Request(record)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return promoted == durable
	})
}

func TestFlush_SavesSynchronouslyAndRetries(t *testing.T) {
	store := &fakeStore{failures: 2}
	p := NewPersister(store, time.Hour, nil, zap.NewNop())
	defer p.Close()

	record := *entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"

	id, err := p.Flush(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, record.ID, id)
	assert.Equal(t, 1, store.saveCount())
}

func TestClose_DropsPendingWork(t *testing.T) {
	store := &fakeStore{}
	p := NewPersister(store, 20*time.Millisecond, nil, zap.NewNop())

	record := *entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"
	p.Request(record)
	p.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, store.saveCount(), "close must drop pending saves")
}
