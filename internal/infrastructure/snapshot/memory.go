package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// MemoryStore is an in-memory snapshot store with expiration, used in
// development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[uuid.UUID]*memoryItem
}

type memoryItem struct {
	snap       entities.CrashSnapshot
	expireTime time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		ttl:   ttl,
		items: make(map[uuid.UUID]*memoryItem),
	}

	// Start cleanup goroutine to remove expired items
	go store.cleanupExpired()

	return store
}

// Save overwrites the snapshot for the session.
func (ms *MemoryStore) Save(ctx context.Context, snap *entities.CrashSnapshot) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.items[snap.SessionID] = &memoryItem{
		snap:       *snap,
		expireTime: time.Now().Add(ms.ttl),
	}
	return nil
}

// Load retrieves the snapshot for a session, or nil when none exists.
func (ms *MemoryStore) Load(ctx context.Context, sessionID uuid.UUID) (*entities.CrashSnapshot, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	item, exists := ms.items[sessionID]
	if !exists || time.Now().After(item.expireTime) {
		return nil, nil
	}
	snap := item.snap
	return &snap, nil
}

// Delete removes the snapshot.
func (ms *MemoryStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.items, sessionID)
	return nil
}

// cleanupExpired periodically removes expired items
func (ms *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ms.mu.Lock()
		now := time.Now()
		for key, item := range ms.items {
			if now.After(item.expireTime) {
				delete(ms.items, key)
			}
		}
		ms.mu.Unlock()
	}
}
