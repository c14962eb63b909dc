// Package session owns the capture session lifecycle. The controller is the
// single writer of session state: every transition goes through a named
// method, serialized by one mutex, so callback traffic from the ingest
// adapter, the duration ticker and the control surface can never race.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/domain/repositories"
	"github.com/meetscribe/capture-agent/internal/infrastructure/capture"
	"github.com/meetscribe/capture-agent/internal/infrastructure/ingest"
	"github.com/meetscribe/capture-agent/internal/infrastructure/snapshot"
	"github.com/meetscribe/capture-agent/internal/infrastructure/wakelock"
	"github.com/meetscribe/capture-agent/internal/usecase/accounting"
	"github.com/meetscribe/capture-agent/internal/usecase/autosave"
	usecaseErrors "github.com/meetscribe/capture-agent/internal/usecase/errors"
)

// Limits are the session lifecycle bounds.
type Limits struct {
	MaxDurationSeconds int
	MinDurationSeconds int
	MinWordCount       int
	AutosaveDebounce   time.Duration
	SnapshotInterval   time.Duration
	RestartDelay       time.Duration
}

// Deps are the collaborators a controller coordinates.
type Deps struct {
	Device    capture.Device
	Ingestor  ingest.Ingestor
	WakeLock  *wakelock.Manager
	Store     repositories.MeetingStore
	Quota     repositories.QuotaChecker
	Gate      *accounting.Gate
	Snapshots snapshot.Store
	Logger    *zap.Logger
}

// Continuation identifies a prior meeting being resumed. Usage for it was
// already counted, so billing is skipped.
type Continuation struct {
	MeetingID    uuid.UUID
	UsageCounted bool
	Transcript   string
}

// StartOptions parameterize a session start.
type StartOptions struct {
	UserID       uuid.UUID
	Title        string
	Folder       string
	Language     string
	Continuation *Continuation
}

// Controller runs one capture session from start to a terminal state. It
// owns the capture device stream and the wake lock exclusively; both are
// released on every exit path.
type Controller struct {
	mu sync.Mutex

	deps      Deps
	limits    Limits
	logger    *zap.Logger
	session   *entities.Session
	persister *autosave.Persister

	tickDone      chan struct{}
	maxFired      bool
	fatalNotified bool
	lastError     string
	lastSnapshot  time.Time
}

// NewController creates a controller ready to start one session.
func NewController(deps Deps, limits Limits) *Controller {
	c := &Controller{
		deps:   deps,
		limits: limits,
		logger: deps.Logger,
	}
	c.persister = autosave.NewPersister(deps.Store, limits.AutosaveDebounce, c.adoptMeetingID, deps.Logger)
	return c
}

// Start acquires the capture device and begins ingestion. Non-continuation
// starts consult the quota collaborator first; a denial blocks the session
// before any capture resource is touched.
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.IsActive() {
		return usecaseErrors.ErrSessionActive
	}
	if c.session != nil && c.session.Status == entities.StatusFinalizing {
		return usecaseErrors.ErrSessionActive
	}

	s := entities.NewSession(opts.UserID, opts.Title, opts.Folder, opts.Language)

	if opts.Continuation != nil {
		s.MeetingID = opts.Continuation.MeetingID
		s.Continuation = true
		s.UsageCounted = opts.Continuation.UsageCounted
		s.Transcript = opts.Continuation.Transcript
		if opts.Continuation.UsageCounted {
			c.deps.Gate.MarkAlreadyCounted(s.MeetingID)
		}
	} else {
		decision, err := c.deps.Quota.CanCreateSession(ctx, opts.UserID)
		if err != nil {
			return fmt.Errorf("failed to check quota: %w", err)
		}
		if !decision.Allowed {
			s.Status = entities.StatusBlocked
			c.session = s
			c.logger.Info("session blocked by quota",
				zap.String("user_id", opts.UserID.String()),
				zap.String("reason", decision.Reason),
			)
			return usecaseErrors.ErrQuotaExceeded
		}
		// Temporary meeting id; the store promotes it to a durable one on
		// first persist.
		s.MeetingID = uuid.New()
	}

	if err := c.deps.Device.Acquire(ctx); err != nil {
		if errors.Is(err, capture.ErrPermissionDenied) {
			return usecaseErrors.ErrPermissionDenied
		}
		return fmt.Errorf("failed to acquire capture device: %w", err)
	}

	if err := c.deps.WakeLock.Acquire(ctx); err != nil {
		// The session can run without the display awake; log and move on.
		c.logger.Warn("wake lock acquire failed", zap.Error(err))
	}

	if err := c.deps.Ingestor.Start(ctx); err != nil && !errors.Is(err, ingest.ErrAlreadyStarted) {
		c.deps.Device.Release()
		c.deps.WakeLock.Release()
		return fmt.Errorf("failed to start ingestion: %w", err)
	}

	s.Status = entities.StatusActive
	c.session = s
	c.maxFired = false
	c.fatalNotified = false
	c.lastError = ""
	c.lastSnapshot = time.Now()

	c.tickDone = make(chan struct{})
	go c.runTicker(c.tickDone)

	c.logger.Info("session started",
		zap.String("session_id", s.ID.String()),
		zap.String("meeting_id", s.MeetingID.String()),
		zap.Bool("continuation", s.Continuation),
	)
	return nil
}

// Mute stops ingestion and disables the audio track so muted speech is
// dropped at the device instead of buffering toward the recognizer. The
// device stays acquired and the wake lock stays held. Idempotent.
func (c *Controller) Mute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || !c.session.IsActive() {
		return usecaseErrors.ErrNoActiveSession
	}
	if c.session.Muted {
		return nil
	}
	if err := c.deps.Ingestor.Stop(ctx); err != nil && !errors.Is(err, ingest.ErrAlreadyStopped) {
		return fmt.Errorf("failed to stop ingestion: %w", err)
	}
	c.deps.Device.SetTrackEnabled(false)
	c.session.Muted = true
	c.session.InterimText = ""
	return nil
}

// Unmute restarts ingestion. Idempotent; paused sessions keep the track
// disabled and stay silent until resumed.
func (c *Controller) Unmute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || !c.session.IsActive() {
		return usecaseErrors.ErrNoActiveSession
	}
	if !c.session.Muted {
		return nil
	}
	c.session.Muted = false
	if c.session.Paused {
		return nil
	}
	c.deps.Device.SetTrackEnabled(true)
	if err := c.startIngestionLocked(ctx); err != nil {
		return err
	}
	return nil
}

// Pause mutes ingestion and additionally suspends the audio track and
// releases the wake lock. Idempotent.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || !c.session.IsActive() {
		return usecaseErrors.ErrNoActiveSession
	}
	if c.session.Paused {
		return nil
	}
	if err := c.deps.Ingestor.Stop(ctx); err != nil && !errors.Is(err, ingest.ErrAlreadyStopped) {
		return fmt.Errorf("failed to stop ingestion: %w", err)
	}
	c.deps.Device.SetTrackEnabled(false)
	c.deps.WakeLock.Release()
	c.session.Paused = true
	c.session.InterimText = ""
	return nil
}

// Resume re-enables the audio track, reacquires the wake lock and restarts
// ingestion if it is not already running. Idempotent.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || !c.session.IsActive() {
		return usecaseErrors.ErrNoActiveSession
	}
	if !c.session.Paused {
		return nil
	}
	if err := c.deps.WakeLock.Acquire(ctx); err != nil {
		c.logger.Warn("wake lock reacquire failed", zap.Error(err))
	}
	c.session.Paused = false
	if c.session.Muted {
		return nil
	}
	c.deps.Device.SetTrackEnabled(true)
	return c.startIngestionLocked(ctx)
}

// startIngestionLocked starts the ingestor if it is not running, with one
// retry after a short delay: the recognition service may still be tearing
// down from the preceding stop.
func (c *Controller) startIngestionLocked(ctx context.Context) error {
	if c.deps.Ingestor.Running() {
		return nil
	}
	err := c.deps.Ingestor.Start(ctx)
	if err == nil || errors.Is(err, ingest.ErrAlreadyStarted) {
		return nil
	}

	delay := c.limits.RestartDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	time.Sleep(delay)
	if err := c.deps.Ingestor.Start(ctx); err != nil && !errors.Is(err, ingest.ErrAlreadyStarted) {
		return fmt.Errorf("failed to restart ingestion: %w", err)
	}
	return nil
}

// Stop finalizes the session. The capture device and wake lock are released
// on every path through this method, including persist failure. User stops
// below the duration or word floors return a validation error and leave the
// session capturing unless force is set; maxDuration and error stops always
// finalize.
func (c *Controller) Stop(ctx context.Context, reason entities.StopReason, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(ctx, reason, force)
}

func (c *Controller) stopLocked(ctx context.Context, reason entities.StopReason, force bool) error {
	s := c.session
	if s == nil || !s.IsActive() {
		if s != nil && s.IsTerminal() {
			return usecaseErrors.ErrSessionFinalized
		}
		return usecaseErrors.ErrNoActiveSession
	}

	// Validation runs before any teardown so "continue capturing" really
	// continues: nothing has been released yet.
	if reason == entities.StopReasonUser && !force {
		if s.DurationSeconds < c.limits.MinDurationSeconds {
			return usecaseErrors.ErrTooShort
		}
		if s.WordCount() < c.limits.MinWordCount {
			return usecaseErrors.ErrTooFewWords
		}
	}

	s.Status = entities.StatusFinalizing
	c.logger.Info("session finalizing",
		zap.String("session_id", s.ID.String()),
		zap.String("reason", string(reason)),
		zap.Int("duration_seconds", s.DurationSeconds),
	)

	if c.tickDone != nil {
		close(c.tickDone)
		c.tickDone = nil
	}
	c.persister.Cancel()

	if err := c.deps.Ingestor.Stop(ctx); err != nil && !errors.Is(err, ingest.ErrAlreadyStopped) {
		c.logger.Warn("ingestion stop failed during finalize", zap.Error(err))
	}
	c.deps.Device.Release()
	c.deps.WakeLock.Release()

	record := c.recordLocked()
	record.IsCompleted = true

	id, err := c.persister.Flush(ctx, record)
	if err != nil {
		// The in-memory transcript survives; the session is failed but its
		// text is still retrievable through Status.
		s.Status = entities.StatusFailed
		c.persister.Close()
		return fmt.Errorf("terminal persist failed: %w", err)
	}
	if id != uuid.Nil && id != s.MeetingID {
		s.MeetingID = id
	}

	if err := c.deps.Gate.CountOnce(ctx, s.MeetingID); err != nil {
		// Accounting failures never undo a saved meeting.
		c.logger.Warn("usage accounting failed", zap.Error(err))
	} else {
		s.UsageCounted = true
	}

	if err := c.deps.Snapshots.Delete(ctx, s.ID); err != nil {
		c.logger.Warn("snapshot delete failed", zap.Error(err))
	}

	s.Status = entities.StatusSaved
	c.persister.Close()
	c.logger.Info("session saved",
		zap.String("session_id", s.ID.String()),
		zap.String("meeting_id", s.MeetingID.String()),
		zap.Int("words", s.WordCount()),
	)
	return nil
}

// HandleEvent consumes one ingestion event. Transient adapter errors are
// recovered by silent restart; fatal ones are surfaced once and not retried.
func (c *Controller) HandleEvent(ev ingest.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || !s.IsActive() {
		return
	}

	switch ev.Kind {
	case ingest.EventPartialText:
		if !s.Muted && !s.Paused {
			s.InterimText = ev.Text
		}
	case ingest.EventFinalText:
		if s.Muted || s.Paused {
			return
		}
		s.AppendFinal(ev.Text)
		c.persister.Request(c.recordLocked())
	case ingest.EventError:
		if ingest.IsTransient(ev.Err) {
			c.logger.Debug("transient ingestion error, restarting", zap.Error(ev.Err))
			c.scheduleRestartLocked()
			return
		}
		if !c.fatalNotified {
			c.fatalNotified = true
			c.lastError = usecaseErrors.ErrIngestionFatal.Error()
			c.logger.Error("ingestion failed", zap.Error(ev.Err))
		}
	case ingest.EventEnded:
		// The recognition service ended on its own while we still want it.
		if !s.Muted && !s.Paused {
			c.scheduleRestartLocked()
		}
	}
}

// scheduleRestartLocked restarts ingestion after the restart delay, off the
// event path so the adapter's own teardown can finish first.
func (c *Controller) scheduleRestartLocked() {
	delay := c.limits.RestartDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		s := c.session
		if s == nil || !s.IsActive() || s.Muted || s.Paused {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.startIngestionLocked(ctx); err != nil && !c.fatalNotified {
			c.fatalNotified = true
			c.lastError = usecaseErrors.ErrIngestionFatal.Error()
			c.logger.Error("ingestion restart failed", zap.Error(err))
		}
	})
}

// EnsureLive re-verifies the wake lock and ingestion after a background or
// foreground transition and recovers them if lost, without touching the
// session status.
func (c *Controller) EnsureLive(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || !s.IsActive() || s.Paused {
		return nil
	}
	if err := c.deps.WakeLock.EnsureHeld(ctx); err != nil {
		c.logger.Warn("wake lock recovery failed", zap.Error(err))
	}
	if s.Muted {
		return nil
	}
	return c.startIngestionLocked(ctx)
}

// UpdateDetails changes the session title and folder and schedules a save.
func (c *Controller) UpdateDetails(title, folder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.IsTerminal() {
		return usecaseErrors.ErrNoActiveSession
	}
	if title != "" {
		s.Title = title
	}
	if folder != "" {
		s.Folder = folder
	}
	c.persister.Request(c.recordLocked())
	return nil
}

// Status returns a copy of the current session state, or nil when no session
// was ever started.
func (c *Controller) Status() *entities.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// LastError returns the deduplicated user-facing error, empty when none.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// recordLocked builds the meeting record snapshot for persistence.
func (c *Controller) recordLocked() entities.MeetingRecord {
	s := c.session
	return entities.MeetingRecord{
		ID:                  s.MeetingID,
		UserID:              s.UserID,
		Title:               s.Title,
		Folder:              s.Folder,
		Transcript:          s.Transcript,
		LanguageTag:         s.LanguageTag,
		DurationSeconds:     s.DurationSeconds,
		TranscriptionStatus: entities.TranscriptionQueued,
		UsageCounted:        s.UsageCounted,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           time.Now(),
	}
}

// adoptMeetingID switches to the durable id the store assigned on first
// persist. All subsequent saves and accounting calls use it.
func (c *Controller) adoptMeetingID(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil || s.IsTerminal() || id == uuid.Nil || id == s.MeetingID {
		return
	}
	c.logger.Info("meeting id promoted",
		zap.String("from", s.MeetingID.String()),
		zap.String("to", id.String()),
	)
	s.MeetingID = id
}

// runTicker drives the 1s duration timer until the session stops.
func (c *Controller) runTicker(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick advances elapsed time by one second while capturing. At the hard
// ceiling it forces stop(maxDuration) exactly once.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || !s.IsActive() || s.Paused {
		return
	}
	s.DurationSeconds++

	if c.limits.SnapshotInterval > 0 && time.Since(c.lastSnapshot) >= c.limits.SnapshotInterval {
		c.lastSnapshot = time.Now()
		snap := entities.SnapshotOf(s)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.deps.Snapshots.Save(ctx, snap); err != nil {
				c.logger.Debug("crash snapshot save failed", zap.Error(err))
			}
		}()
	}

	if s.DurationSeconds >= c.limits.MaxDurationSeconds && !c.maxFired {
		c.maxFired = true
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.stopLocked(ctx, entities.StopReasonMaxDuration, true); err != nil {
			c.logger.Error("max duration stop failed", zap.Error(err))
		}
	}
}
