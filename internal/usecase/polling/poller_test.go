package polling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// scriptedSource returns a fixed sequence of statuses, then repeats the last.
type scriptedSource struct {
	mu       sync.Mutex
	script   []*entities.TranscriptionStatus
	errs     []error
	polls    int
	lastCall time.Time
}

func (s *scriptedSource) PollStatus(ctx context.Context, meetingID uuid.UUID) (*entities.TranscriptionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.polls
	s.polls++
	s.lastCall = time.Now()
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	return s.script[i], nil
}

func (s *scriptedSource) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
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

func TestWatch_StopsAtTerminalStatus(t *testing.T) {
	source := &scriptedSource{script: []*entities.TranscriptionStatus{
		{Status: entities.TranscriptionProcessing, Progress: 40},
		{Status: entities.TranscriptionProcessing, Progress: 80},
		{Status: entities.TranscriptionCompleted, Progress: 100},
	}}

	var mu sync.Mutex
	var updates []Update
	p := NewPoller(source, 5*time.Millisecond, zap.NewNop())
	p.Watch(context.Background(), uuid.New(), func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) == 3
	})

	// The watch must end at the terminal status, not keep polling.
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, updates, 3)
	assert.True(t, updates[2].Status.Terminal())
}

func TestWatch_RetriesAfterPollError(t *testing.T) {
	source := &scriptedSource{
		script: []*entities.TranscriptionStatus{
			{Status: entities.TranscriptionCompleted, Progress: 100},
		},
		errs: []error{errors.New("backend unavailable")},
	}

	var mu sync.Mutex
	got := 0
	p := NewPoller(source, 5*time.Millisecond, zap.NewNop())
	p.Watch(context.Background(), uuid.New(), func(u Update) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == 1
	})
	assert.GreaterOrEqual(t, source.pollCount(), 2)
}

func TestCancel_StopsPolling(t *testing.T) {
	source := &scriptedSource{script: []*entities.TranscriptionStatus{
		{Status: entities.TranscriptionProcessing, Progress: 10},
	}}

	meetingID := uuid.New()
	p := NewPoller(source, 5*time.Millisecond, zap.NewNop())
	p.Watch(context.Background(), meetingID, func(u Update) {})

	waitFor(t, func() bool { return source.pollCount() >= 2 })
	p.Cancel(meetingID)

	time.Sleep(20 * time.Millisecond)
	after := source.pollCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, source.pollCount(), "polling must stop after cancel")
}

func TestWatch_ReplacesPreviousWatchForSameMeeting(t *testing.T) {
	source := &scriptedSource{script: []*entities.TranscriptionStatus{
		{Status: entities.TranscriptionProcessing, Progress: 10},
	}}

	meetingID := uuid.New()
	p := NewPoller(source, 5*time.Millisecond, zap.NewNop())

	firstDone := make(chan struct{})
	var once sync.Once
	p.Watch(context.Background(), meetingID, func(u Update) {
		once.Do(func() { close(firstDone) })
	})
	<-firstDone

	p.Watch(context.Background(), meetingID, func(u Update) {})
	p.Cancel(meetingID)

	time.Sleep(20 * time.Millisecond)
	after := source.pollCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, source.pollCount(), "both watches must be stopped")
}

func TestCancel_StopsReplacementAfterReplacedWatchExits(t *testing.T) {
	source := &scriptedSource{script: []*entities.TranscriptionStatus{
		{Status: entities.TranscriptionProcessing, Progress: 10},
	}}

	meetingID := uuid.New()
	p := NewPoller(source, 5*time.Millisecond, zap.NewNop())

	p.Watch(context.Background(), meetingID, func(u Update) {})
	waitFor(t, func() bool { return source.pollCount() >= 1 })
	p.Watch(context.Background(), meetingID, func(u Update) {})

	// Give the replaced loop time to exit; its cleanup must not remove the
	// replacement's registration.
	time.Sleep(25 * time.Millisecond)
	p.Cancel(meetingID)

	time.Sleep(20 * time.Millisecond)
	after := source.pollCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, source.pollCount(), "replacement watch must stop on cancel")
}
