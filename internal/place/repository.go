// Package place provides the place model, cuisine helpers, and repositories
// for the points of interest shown on the map.
package place

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Common errors for place operations.
var (
	ErrPlaceNotFound = errors.New("place not found")
	ErrMissingOSMID  = errors.New("osm_id is required for upsert")
)

// DefaultListLimit is the number of places loaded when no limit is given.
const DefaultListLimit = 1000

// UpsertResult tracks statistics for batch upsert operations.
type UpsertResult struct {
	Inserted int // Rows that did not exist before
	Updated  int // Rows matched on osm_id and overwritten
}

// Repository defines the interface for place data operations.
type Repository interface {
	// List returns up to limit places in a stable order.
	// A non-positive limit falls back to DefaultListLimit.
	List(ctx context.Context, limit int) ([]*Place, error)

	// GetByID retrieves a place by its ID.
	// Returns ErrPlaceNotFound if no such place exists.
	GetByID(ctx context.Context, id string) (*Place, error)

	// UpsertBatch inserts or updates places keyed on OSMID.
	UpsertBatch(ctx context.Context, places []*Place) (*UpsertResult, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for development and tests. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	places map[string]*Place // ID -> Place
	osm    map[string]string // OSMID -> ID
	order  []string          // insertion order of IDs
}

// NewInMemoryRepository creates a new in-memory place repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		places: make(map[string]*Place),
		osm:    make(map[string]string),
	}
}

// Add stores places as-is, assigning IDs to those without one.
func (r *InMemoryRepository) Add(places ...*Place) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range places {
		placeCopy := *p
		if placeCopy.ID == "" {
			placeCopy.ID = uuid.New().String()
		}
		if _, exists := r.places[placeCopy.ID]; !exists {
			r.order = append(r.order, placeCopy.ID)
		}
		r.places[placeCopy.ID] = &placeCopy
		if placeCopy.OSMID != "" {
			r.osm[placeCopy.OSMID] = placeCopy.ID
		}
	}
}

// List returns up to limit places in insertion order.
func (r *InMemoryRepository) List(ctx context.Context, limit int) ([]*Place, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.order)
	if n > limit {
		n = limit
	}
	out := make([]*Place, 0, n)
	for _, id := range r.order[:n] {
		placeCopy := *r.places[id]
		out = append(out, &placeCopy)
	}
	return out, nil
}

// GetByID retrieves a place by its ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.places[id]
	if !ok {
		return nil, ErrPlaceNotFound
	}
	placeCopy := *p
	return &placeCopy, nil
}

// UpsertBatch inserts or updates places keyed on OSMID.
func (r *InMemoryRepository) UpsertBatch(ctx context.Context, places []*Place) (*UpsertResult, error) {
	for _, p := range places {
		if p.OSMID == "" {
			return nil, ErrMissingOSMID
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := &UpsertResult{}
	for _, p := range places {
		placeCopy := *p
		if existingID, ok := r.osm[p.OSMID]; ok {
			placeCopy.ID = existingID
			r.places[existingID] = &placeCopy
			result.Updated++
			continue
		}
		if placeCopy.ID == "" {
			placeCopy.ID = uuid.New().String()
		}
		r.places[placeCopy.ID] = &placeCopy
		r.osm[placeCopy.OSMID] = placeCopy.ID
		r.order = append(r.order, placeCopy.ID)
		result.Inserted++
	}
	return result, nil
}
