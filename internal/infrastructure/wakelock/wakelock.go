// Package wakelock manages the host sleep-inhibition resource tied 1:1 to
// "actively capturing". The lock is owned exclusively by the current session
// controller and must be released on every termination path.
package wakelock

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Lock is a single sleep-inhibition handle.
type Lock interface {
	Acquire(ctx context.Context) error
	Release() error
	Held() bool
}

// Manager wraps a Lock with auto-reacquire semantics: the OS may revoke the
// inhibitor at any time (suspend, session change), so holders re-verify
// through EnsureHeld instead of trusting the original acquire.
type Manager struct {
	mu     sync.Mutex
	lock   Lock
	logger *zap.Logger
	wanted bool
}

// NewManager creates a wake lock manager over the given lock.
func NewManager(lock Lock, logger *zap.Logger) *Manager {
	return &Manager{lock: lock, logger: logger}
}

// Acquire takes the lock and records the intent to hold it.
func (m *Manager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wanted = true
	if m.lock.Held() {
		return nil
	}
	if err := m.lock.Acquire(ctx); err != nil {
		return fmt.Errorf("failed to acquire wake lock: %w", err)
	}
	return nil
}

// Release drops the lock and clears the intent.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wanted = false
	if err := m.lock.Release(); err != nil {
		m.logger.Warn("wake lock release failed", zap.Error(err))
	}
}

// EnsureHeld re-acquires the lock if it was wanted but silently lost.
// Called on foreground transitions and resume.
func (m *Manager) EnsureHeld(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.wanted || m.lock.Held() {
		return nil
	}
	m.logger.Info("wake lock lost, reacquiring")
	if err := m.lock.Acquire(ctx); err != nil {
		return fmt.Errorf("failed to reacquire wake lock: %w", err)
	}
	return nil
}

// Held reports whether the lock is currently held.
func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lock.Held()
}

// inhibitLock holds the display awake through a platform inhibitor process
// (systemd-inhibit on Linux, caffeinate on macOS).
type inhibitLock struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewInhibitLock creates the platform exec-backed lock.
func NewInhibitLock() Lock {
	return &inhibitLock{}
}

func inhibitCommand() (string, []string) {
	if runtime.GOOS == "darwin" {
		return "caffeinate", []string{"-d", "-i"}
	}
	return "systemd-inhibit", []string{"--what=idle:sleep", "--who=capture-agent", "--why=live meeting capture", "sleep", "infinity"}
}

func (l *inhibitLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd != nil && l.cmd.ProcessState == nil {
		return nil
	}
	name, args := inhibitCommand()
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start inhibitor: %w", err)
	}
	l.cmd = cmd
	go cmd.Wait() // reap; Held() inspects ProcessState
	return nil
}

func (l *inhibitLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd == nil || l.cmd.Process == nil {
		return nil
	}
	err := l.cmd.Process.Kill()
	l.cmd = nil
	if err != nil {
		return fmt.Errorf("failed to stop inhibitor: %w", err)
	}
	return nil
}

func (l *inhibitLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil && l.cmd.ProcessState == nil
}

// NoopLock is used in development and tests.
type NoopLock struct {
	mu   sync.Mutex
	held bool
}

func (l *NoopLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = true
	return nil
}

func (l *NoopLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

func (l *NoopLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
