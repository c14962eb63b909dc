// Package accounting guarantees a meeting increments the user's usage
// counter at most once, even under retries and concurrent triggers.
package accounting

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/repositories"
)

// Gate is the at-most-once accounting guard. The in-memory latch is set
// before the remote call completes, so a retry arriving while the first call
// is still in flight cannot double-count. The race is prevented
// structurally, not detected after the fact.
type Gate struct {
	mu      sync.Mutex
	latched map[uuid.UUID]bool
	usage   repositories.UsageRepository
	logger  *zap.Logger
}

// NewGate creates an accounting gate over the usage repository.
func NewGate(usage repositories.UsageRepository, logger *zap.Logger) *Gate {
	return &Gate{
		latched: make(map[uuid.UUID]bool),
		usage:   usage,
		logger:  logger,
	}
}

// MarkAlreadyCounted primes the latch for continuation sessions whose
// meeting was billed in a previous session.
func (g *Gate) MarkAlreadyCounted(meetingID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latched[meetingID] = true
}

// CountOnce flips the remote idempotency marker and, when this caller won,
// increments usage. Calls after the first are no-ops. On a failed remote
// call the latch is cleared so the next trigger retries.
func (g *Gate) CountOnce(ctx context.Context, meetingID uuid.UUID) error {
	g.mu.Lock()
	if g.latched[meetingID] {
		g.mu.Unlock()
		return nil
	}
	g.latched[meetingID] = true
	g.mu.Unlock()

	wasNew, err := g.usage.MarkCountedIfNeeded(ctx, meetingID)
	if err != nil {
		g.mu.Lock()
		delete(g.latched, meetingID)
		g.mu.Unlock()
		return fmt.Errorf("failed to mark meeting counted: %w", err)
	}
	if !wasNew {
		return nil
	}

	if err := g.usage.IncrementUsage(ctx, meetingID); err != nil {
		// The marker is flipped remotely; do not clear the latch, a retry
		// would observe wasNew=false anyway.
		g.logger.Warn("usage increment failed after marking",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}
