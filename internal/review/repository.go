package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultListAllLimit caps ListAll when no limit is given.
const DefaultListAllLimit = 5000

// Repository defines the interface for review data operations.
type Repository interface {
	// ListByPlace returns up to limit reviews for one place, newest first.
	// A limit <= 0 returns every review of the place.
	ListByPlace(ctx context.Context, placeID string, limit int) ([]*Review, error)

	// ListAll returns up to limit reviews across all places, newest first.
	ListAll(ctx context.Context, limit int) ([]*Review, error)

	// Create persists a validated submission and returns the stored record
	// with its assigned ID and creation time.
	Create(ctx context.Context, n NewReview) (*Review, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	reviews []*Review
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory review repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{now: time.Now}
}

// SetClock overrides the time source used for CreatedAt. Intended for tests.
func (r *InMemoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Add stores reviews as-is. Missing IDs and timestamps are filled in.
func (r *InMemoryRepository) Add(reviews ...*Review) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rv := range reviews {
		reviewCopy := *rv
		if reviewCopy.ID == "" {
			reviewCopy.ID = uuid.New().String()
		}
		if reviewCopy.CreatedAt.IsZero() {
			reviewCopy.CreatedAt = r.now().UTC()
		}
		r.reviews = append(r.reviews, &reviewCopy)
	}
}

// ListByPlace returns up to limit reviews for placeID, newest first.
func (r *InMemoryRepository) ListByPlace(ctx context.Context, placeID string, limit int) ([]*Review, error) {
	return r.list(limit, func(rv *Review) bool { return rv.PlaceID == placeID }), nil
}

// ListAll returns up to limit reviews, newest first.
func (r *InMemoryRepository) ListAll(ctx context.Context, limit int) ([]*Review, error) {
	if limit <= 0 {
		limit = DefaultListAllLimit
	}
	return r.list(limit, func(*Review) bool { return true }), nil
}

func (r *InMemoryRepository) list(limit int, keep func(*Review) bool) []*Review {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Review, 0)
	for _, rv := range r.reviews {
		if keep(rv) {
			reviewCopy := *rv
			out = append(out, &reviewCopy)
		}
	}
	SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Create validates and stores a new review.
func (r *InMemoryRepository) Create(ctx context.Context, n NewReview) (*Review, error) {
	valid, err := n.Validate()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rv := valid.Build(uuid.New().String(), r.now().UTC())
	r.reviews = append(r.reviews, rv)

	reviewCopy := *rv
	return &reviewCopy, nil
}

// SortNewestFirst orders reviews by CreatedAt descending. Equal timestamps keep
// their relative order.
func SortNewestFirst(reviews []*Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
}
