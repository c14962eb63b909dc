// Package snapshot stores ephemeral crash-recovery mirrors of live session
// state. Snapshots are a pure side-channel: best effort, continuously
// overwritten, discarded on clean session end, and never authoritative over
// the remote meeting record.
package snapshot

import (
	"context"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// Store persists crash snapshots keyed by session id.
type Store interface {
	Save(ctx context.Context, snap *entities.CrashSnapshot) error
	Load(ctx context.Context, sessionID uuid.UUID) (*entities.CrashSnapshot, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
}
