package idempotency

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository with in-memory storage.
// Expired records are dropped by DeleteOlderThan; see StartCleanup.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory idempotency repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Get implements Repository.
func (r *InMemoryRepository) Get(ctx context.Context, key string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := *rec
	return &cp, nil
}

// Store implements Repository.
func (r *InMemoryRepository) Store(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.Key]; exists {
		return ErrKeyExists
	}
	cp := *record
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.now()
	}
	r.records[cp.Key] = &cp
	return nil
}

// DeleteOlderThan removes records created before now minus age.
// Returns the number of records deleted.
func (r *InMemoryRepository) DeleteOlderThan(age time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-age)
	deleted := 0
	for key, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted
}

// Len returns the number of stored records.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
