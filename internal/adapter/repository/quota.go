package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// UnlimitedQuota allows every session start. Self-hosted deployments have no
// plan enforcement, so the quota collaborator degenerates to a constant.
type UnlimitedQuota struct{}

// CanCreateSession always allows.
func (UnlimitedQuota) CanCreateSession(ctx context.Context, userID uuid.UUID) (entities.QuotaDecision, error) {
	return entities.QuotaDecision{Allowed: true}, nil
}
