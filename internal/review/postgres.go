package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onnwee/vibemap/internal/tracing"
)

// PostgresRepository implements Repository on top of PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// foreignKeyViolation is the SQLSTATE raised when place_id references no place.
const foreignKeyViolation = "23503"

const selectReviewColumns = `id, place_id, occasion, food, value, vibe, go_to_order, note, created_at`

// ListByPlace returns up to limit reviews for one place, newest first.
// A limit <= 0 returns every review. An unparseable place ID yields an
// empty list.
func (r *PostgresRepository) ListByPlace(ctx context.Context, placeID string, limit int) (reviews []*Review, err error) {
	if _, parseErr := uuid.Parse(placeID); parseErr != nil {
		return []*Review{}, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "reviews", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + selectReviewColumns + ` FROM reviews
		WHERE place_id = $1
		ORDER BY created_at DESC, id ASC`
	args := []any{placeID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews for place: %w", err)
	}
	defer rows.Close()
	return scanReviews(rows)
}

// ListAll returns up to limit reviews across all places, newest first.
func (r *PostgresRepository) ListAll(ctx context.Context, limit int) (reviews []*Review, err error) {
	if limit <= 0 {
		limit = DefaultListAllLimit
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "reviews", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + selectReviewColumns + ` FROM reviews
		ORDER BY created_at DESC, id ASC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()
	return scanReviews(rows)
}

// Create validates and inserts a new review. The database assigns created_at.
func (r *PostgresRepository) Create(ctx context.Context, n NewReview) (rv *Review, err error) {
	valid, err := n.Validate()
	if err != nil {
		return nil, err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "reviews", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	id := uuid.New().String()
	query := `
		INSERT INTO reviews (id, place_id, occasion, food, value, vibe, go_to_order, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + selectReviewColumns
	rv, err = scanReview(r.db.QueryRowContext(ctx, query,
		id,
		valid.PlaceID,
		valid.Occasion,
		*valid.Food,
		*valid.Value,
		*valid.Vibe,
		nullString(valid.GoToOrder),
		nullString(valid.Note),
	))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return nil, ErrUnknownPlace
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}

	r.logger.DebugContext(ctx, "review created",
		"review_id", rv.ID,
		"place_id", rv.PlaceID,
		"occasion", rv.Occasion)
	return rv, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviews(rows *sql.Rows) ([]*Review, error) {
	reviews := make([]*Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

func scanReview(row rowScanner) (*Review, error) {
	var (
		rv        Review
		goToOrder sql.NullString
		note      sql.NullString
	)
	if err := row.Scan(&rv.ID, &rv.PlaceID, &rv.Occasion, &rv.Food, &rv.Value, &rv.Vibe, &goToOrder, &note, &rv.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}
	if goToOrder.Valid {
		rv.GoToOrder = &goToOrder.String
	}
	if note.Valid {
		rv.Note = &note.String
	}
	rv.CreatedAt = rv.CreatedAt.UTC()
	return &rv, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
