package repositories

import (
	"context"

	"github.com/google/uuid"
)

// UsageRepository is the remote idempotency marker behind usage accounting.
// MarkCountedIfNeeded returns true exactly once per meeting id across all
// callers; IncrementUsage adds the billable unit to the owning user.
type UsageRepository interface {
	MarkCountedIfNeeded(ctx context.Context, meetingID uuid.UUID) (bool, error)
	IncrementUsage(ctx context.Context, meetingID uuid.UUID) error
}
