package ports

import (
	"context"
	"time"

	"github.com/aretw0/awaken/pkg/domain"
)

// FlowStore defines the interface for persisting flow snapshots.
// Snapshots let adapters answer status queries; live timers are never stored.
type FlowStore interface {
	// Save persists the record for a given flow ID.
	Save(ctx context.Context, flowID string, record *domain.FlowRecord) error

	// Load retrieves the record for a given flow ID.
	// Returns domain.ErrSessionNotFound if the flow does not exist.
	Load(ctx context.Context, flowID string) (*domain.FlowRecord, error)

	// Delete removes the record for a given flow ID.
	Delete(ctx context.Context, flowID string) error

	// List returns the IDs of stored flows.
	List(ctx context.Context) ([]string, error)
}

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates record writes across replicas sharing a store.
// Timelines stay process-local; the lock only fences snapshot writes.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The returned UnlockFunc must be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
