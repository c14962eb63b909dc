package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// QuotaChecker decides whether a user may start a new (non-continuation)
// capture session. Plan enforcement itself is an external collaborator.
type QuotaChecker interface {
	CanCreateSession(ctx context.Context, userID uuid.UUID) (entities.QuotaDecision, error)
}
