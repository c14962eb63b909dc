package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
	usecaseErrors "github.com/meetscribe/capture-agent/internal/usecase/errors"
)

// Manager enforces the single-active-session invariant: at most one session
// may be capturing or paused at a time, because the capture device stream is
// owned exclusively by one controller. Terminal sessions stay addressable for
// status reads until replaced.
type Manager struct {
	mu      sync.Mutex
	build   func() *Controller
	current *Controller
	byID    map[uuid.UUID]*Controller
}

// NewManager creates a session manager. build constructs a fresh controller
// with per-session collaborators.
func NewManager(build func() *Controller) *Manager {
	return &Manager{
		build: build,
		byID:  make(map[uuid.UUID]*Controller),
	}
}

// Start creates and starts a new session. Fails with ErrSessionActive while
// another session is live.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (*entities.Session, error) {
	m.mu.Lock()
	if m.current != nil {
		if s := m.current.Status(); s != nil && !s.IsTerminal() && s.Status != entities.StatusBlocked {
			m.mu.Unlock()
			return nil, usecaseErrors.ErrSessionActive
		}
	}
	ctrl := m.build()
	m.current = ctrl
	m.mu.Unlock()

	if err := ctrl.Start(ctx, opts); err != nil {
		// Blocked sessions keep their controller so the status is readable.
		if s := ctrl.Status(); s != nil {
			m.mu.Lock()
			m.byID[s.ID] = ctrl
			m.mu.Unlock()
		}
		return ctrl.Status(), err
	}

	s := ctrl.Status()
	m.mu.Lock()
	m.byID[s.ID] = ctrl
	m.mu.Unlock()
	return s, nil
}

// Get returns the controller for the given session id.
func (m *Manager) Get(sessionID uuid.UUID) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.byID[sessionID]
	if !ok {
		return nil, entities.ErrSessionNotFound
	}
	return ctrl, nil
}

// Current returns the most recently started controller, nil when none.
func (m *Manager) Current() *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Shutdown force-stops the live session, if any. Used on process exit so the
// capture device and wake lock are never leaked.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	ctrl := m.current
	m.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	if s := ctrl.Status(); s == nil || !s.IsActive() {
		return nil
	}
	return ctrl.Stop(ctx, entities.StopReasonError, true)
}
