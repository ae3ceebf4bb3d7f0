// Package memory provides an in-process FlowStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/awaken/pkg/domain"
)

// Store implements ports.FlowStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.FlowRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.FlowRecord),
	}
}

// Save keeps a copy of record so later mutations by the caller are not observed.
func (s *Store) Save(ctx context.Context, flowID string, record *domain.FlowRecord) error {
	cp := record.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[flowID] = cp
	return nil
}

// Load returns a copy of the stored record.
func (s *Store) Load(ctx context.Context, flowID string) (*domain.FlowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[flowID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return record.Snapshot(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, flowID)
	return nil
}

// List returns stored flow IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
