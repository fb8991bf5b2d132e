// Package session owns the loaded place cache and occasion statistics the
// ranking engine reads from. A Session replaces snapshots atomically so a
// ranking call always sees one consistent view of places and reviews.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/vibemap/internal/place"
	"github.com/onnwee/vibemap/internal/ranking"
	"github.com/onnwee/vibemap/internal/review"
	"github.com/onnwee/vibemap/internal/tracing"
)

// eventSnapshotSwapped is recorded on the active span whenever a new
// snapshot is published.
const eventSnapshotSwapped = "snapshot_swapped"

// ErrNotLoaded is returned when an operation needs data before the first
// successful Load.
var ErrNotLoaded = errors.New("session data not loaded")

// Defaults applied by New.
const (
	DefaultPlacesLimit  = 2000
	DefaultReviewsLimit = 5000
	DefaultLoadTimeout  = 15 * time.Second
	RecentReviewLimit   = 10
)

// Config configures a Session.
type Config struct {
	PlacesLimit  int
	ReviewsLimit int
	LoadTimeout  time.Duration
	Logger       *slog.Logger
	Metrics      *Metrics // optional
}

// Status summarizes the loaded data.
type Status struct {
	Places   int       `json:"places"`
	Reviews  int       `json:"reviews"`
	Located  int       `json:"located"`
	LoadedAt time.Time `json:"loaded_at"`
}

// PlaceDetail is a place with its recent reviews and per-occasion summary.
type PlaceDetail struct {
	Place       *place.Place              `json:"place"`
	ReviewCount int                       `json:"review_count"`
	Recent      []*review.Review          `json:"recent"`
	BestFor     []ranking.OccasionSummary `json:"best_for"`
}

// snapshot is immutable once published.
type snapshot struct {
	places   []*place.Place
	byID     map[string]*place.Place
	reviews  []*review.Review // newest first
	stats    ranking.StatsMap
	cuisines []string
	located  int
	loadedAt time.Time
}

func newSnapshot(places []*place.Place, reviews []*review.Review, loadedAt time.Time) *snapshot {
	byID := make(map[string]*place.Place, len(places))
	for _, p := range places {
		byID[p.ID] = p
	}
	return &snapshot{
		places:   places,
		byID:     byID,
		reviews:  reviews,
		stats:    ranking.Aggregate(reviews),
		cuisines: place.DistinctCuisines(places),
		located:  place.CountLocated(places),
		loadedAt: loadedAt,
	}
}

// withReview returns a copy of s with rv prepended and stats re-aggregated.
// A review already in s is not added twice.
func (s *snapshot) withReview(rv *review.Review) *snapshot {
	for _, existing := range s.reviews {
		if existing.ID == rv.ID {
			return s
		}
	}
	reviews := make([]*review.Review, 0, len(s.reviews)+1)
	reviews = append(reviews, rv)
	reviews = append(reviews, s.reviews...)

	next := *s
	next.reviews = reviews
	next.stats = ranking.Aggregate(reviews)
	return &next
}

// Session holds the current snapshot and routes reads and writes through the
// repositories. It is safe for concurrent use.
type Session struct {
	config  Config
	places  place.Repository
	reviews review.Repository
	engine  *ranking.Engine

	// loadMu serializes Load. While a load is in flight, reviews submitted
	// through the session are kept in pending so the swap cannot drop them.
	loadMu sync.Mutex

	mu      sync.RWMutex
	snap    *snapshot
	loading bool
	pending []*review.Review
}

// New creates a Session. Nothing is loaded until Load is called.
func New(places place.Repository, reviews review.Repository, engine *ranking.Engine, config Config) *Session {
	if config.PlacesLimit <= 0 {
		config.PlacesLimit = DefaultPlacesLimit
	}
	if config.ReviewsLimit <= 0 {
		config.ReviewsLimit = DefaultReviewsLimit
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = DefaultLoadTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if engine == nil {
		engine = ranking.NewEngine(nil, nil)
	}
	return &Session{
		config:  config,
		places:  places,
		reviews: reviews,
		engine:  engine,
	}
}

// Load fetches places and reviews, aggregates them and swaps in the new
// snapshot. Reviews submitted while the lists are read are merged in before
// the swap. On failure the previous snapshot stays in place.
func (s *Session) Load(ctx context.Context) (err error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.config.LoadTimeout)
	defer cancel()

	ctx, endSpan := tracing.StartSpan(ctx, "session.load")
	defer func() { endSpan(err) }()

	defer func() {
		if s.config.Metrics == nil {
			return
		}
		s.config.Metrics.IncRefreshTotal()
		s.config.Metrics.ObserveRefreshDuration(time.Since(start).Seconds())
		if err != nil {
			s.config.Metrics.IncRefreshErrors()
		}
	}()

	s.mu.Lock()
	s.loading = true
	s.pending = nil
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.pending = nil
		s.mu.Unlock()
	}()

	places, err := s.places.List(ctx, s.config.PlacesLimit)
	if err != nil {
		return fmt.Errorf("failed to load places: %w", err)
	}
	reviews, err := s.reviews.ListAll(ctx, s.config.ReviewsLimit)
	if err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}

	snap, merged := s.swap(places, reviews)

	tracing.AddEvent(ctx, eventSnapshotSwapped,
		attribute.Int("places.count", len(snap.places)),
		attribute.Int("reviews.count", len(snap.reviews)),
		attribute.Int("reviews.merged", merged),
	)

	if s.config.Metrics != nil {
		s.config.Metrics.SetLastRefreshTimestamp(float64(snap.loadedAt.Unix()))
		s.config.Metrics.SetLoaded(len(snap.places), len(snap.reviews))
	}

	s.config.Logger.Info("session loaded",
		"places", len(snap.places),
		"reviews", len(snap.reviews),
		"merged_reviews", merged,
		"located", snap.located,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// swap publishes a snapshot of the listed data plus the reviews submitted
// since the load began. Returns the snapshot and how many pending reviews
// were missing from the listed reviews.
func (s *Session) swap(places []*place.Place, listed []*review.Review) (*snapshot, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, merged := mergeReviews(listed, s.pending)
	snap := newSnapshot(places, reviews, time.Now().UTC())
	s.snap = snap
	return snap, merged
}

// mergeReviews adds the pending reviews absent from listed and returns the
// result newest first.
func mergeReviews(listed, pending []*review.Review) ([]*review.Review, int) {
	seen := make(map[string]struct{}, len(listed))
	for _, rv := range listed {
		seen[rv.ID] = struct{}{}
	}
	out := listed
	merged := 0
	for _, rv := range pending {
		if _, ok := seen[rv.ID]; ok {
			continue
		}
		seen[rv.ID] = struct{}{}
		out = append(out, rv)
		merged++
	}
	review.SortNewestFirst(out)
	return out, merged
}

// Loaded reports whether a snapshot is available.
func (s *Session) Loaded() bool {
	return s.current() != nil
}

func (s *Session) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Status returns counts for the loaded snapshot.
func (s *Session) Status() (Status, error) {
	snap := s.current()
	if snap == nil {
		return Status{}, ErrNotLoaded
	}
	return Status{
		Places:   len(snap.places),
		Reviews:  len(snap.reviews),
		Located:  snap.located,
		LoadedAt: snap.loadedAt,
	}, nil
}

// Places returns the loaded places in cache order. Callers must not modify
// the returned places.
func (s *Session) Places() ([]*place.Place, error) {
	snap := s.current()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	out := make([]*place.Place, len(snap.places))
	copy(out, snap.places)
	return out, nil
}

// Cuisines returns the sorted distinct cuisines across loaded places.
func (s *Session) Cuisines() ([]string, error) {
	snap := s.current()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	out := make([]string, len(snap.cuisines))
	copy(out, snap.cuisines)
	return out, nil
}

// Rank runs the ranking engine against the current snapshot.
func (s *Session) Rank(filter ranking.FilterState) (*ranking.Outcome, error) {
	snap := s.current()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	outcome := s.engine.Rank(snap.places, snap.stats, filter)
	if s.config.Metrics != nil {
		s.config.Metrics.IncRankingOutcome(string(outcome.Mode), string(outcome.Reason))
	}
	return outcome, nil
}

// PlaceDetail returns a place with its newest reviews and best-for summary.
// Places outside the loaded cache are looked up in the repository.
func (s *Session) PlaceDetail(ctx context.Context, id string) (*PlaceDetail, error) {
	p, err := s.lookupPlace(ctx, id)
	if err != nil {
		return nil, err
	}

	// The summary covers every review of the place; only Recent is capped.
	reviews, err := s.reviews.ListByPlace(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews for place: %w", err)
	}

	recent := reviews
	if len(recent) > RecentReviewLimit {
		recent = recent[:RecentReviewLimit]
	}

	return &PlaceDetail{
		Place:       p,
		ReviewCount: len(reviews),
		Recent:      recent,
		BestFor:     ranking.Summarize(reviews),
	}, nil
}

func (s *Session) lookupPlace(ctx context.Context, id string) (*place.Place, error) {
	if snap := s.current(); snap != nil {
		if p, ok := snap.byID[id]; ok {
			return p, nil
		}
	}
	return s.places.GetByID(ctx, id)
}

// SubmitReview stores a review and folds it into the current snapshot.
// Returns review.ErrUnknownPlace when the place does not exist.
func (s *Session) SubmitReview(ctx context.Context, n review.NewReview) (*review.Review, error) {
	if _, err := s.lookupPlace(ctx, n.PlaceID); err != nil {
		if errors.Is(err, place.ErrPlaceNotFound) {
			return nil, review.ErrUnknownPlace
		}
		return nil, err
	}

	rv, err := s.reviews.Create(ctx, n)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.loading {
		s.pending = append(s.pending, rv)
	}
	total := -1
	if s.snap != nil {
		s.snap = s.snap.withReview(rv)
		total = len(s.snap.reviews)
	}
	s.mu.Unlock()

	if total >= 0 {
		tracing.AddEvent(ctx, eventSnapshotSwapped,
			attribute.Int("reviews.count", total),
			attribute.String("review.occasion", rv.Occasion),
		)
	}

	if s.config.Metrics != nil {
		s.config.Metrics.IncReviewsSubmitted()
		if total >= 0 {
			s.config.Metrics.SetReviews(total)
		}
	}

	s.config.Logger.Info("review submitted",
		"review_id", rv.ID,
		"place_id", rv.PlaceID,
		"occasion", rv.Occasion)
	return rv, nil
}
