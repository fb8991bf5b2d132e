package place

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

const selectPlaceColumns = `id, osm_id, name, lat, lng, cuisine, address`

// List returns up to limit places ordered by creation time, then ID.
func (r *PostgresRepository) List(ctx context.Context, limit int) (places []*Place, err error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + selectPlaceColumns + ` FROM places ORDER BY created_at ASC, id ASC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	places = make([]*Place, 0, limit)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}
	return places, nil
}

// GetByID retrieves a place by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (p *Place, err error) {
	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return nil, ErrPlaceNotFound
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + selectPlaceColumns + ` FROM places WHERE id = $1`
	p, err = scanPlace(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertBatch inserts or updates places keyed on osm_id in a single statement.
// Uses unnest over parallel arrays so one round trip covers the whole batch.
func (r *PostgresRepository) UpsertBatch(ctx context.Context, places []*Place) (result *UpsertResult, err error) {
	if len(places) == 0 {
		return &UpsertResult{}, nil
	}

	ids := make([]string, len(places))
	osmIDs := make([]string, len(places))
	names := make([]sql.NullString, len(places))
	lats := make([]sql.NullFloat64, len(places))
	lngs := make([]sql.NullFloat64, len(places))
	cuisines := make([]sql.NullString, len(places))
	addresses := make([]sql.NullString, len(places))

	for i, p := range places {
		if p.OSMID == "" {
			return nil, ErrMissingOSMID
		}
		ids[i] = p.ID
		if ids[i] == "" {
			ids[i] = uuid.New().String()
		}
		osmIDs[i] = p.OSMID
		names[i] = nullString(p.Name)
		lats[i] = nullFloat(p.Lat)
		lngs[i] = nullFloat(p.Lng)
		cuisines[i] = nullString(p.Cuisine)
		addresses[i] = nullString(p.Address)
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO places (id, osm_id, name, lat, lng, cuisine, address)
		SELECT * FROM unnest(
			$1::uuid[], $2::text[], $3::text[], $4::float8[], $5::float8[], $6::text[], $7::text[]
		)
		ON CONFLICT (osm_id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			cuisine = EXCLUDED.cuisine,
			address = EXCLUDED.address,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`
	rows, err := r.db.QueryContext(ctx, query,
		pq.Array(ids),
		pq.Array(osmIDs),
		pq.Array(names),
		pq.Array(lats),
		pq.Array(lngs),
		pq.Array(cuisines),
		pq.Array(addresses),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert places: %w", err)
	}
	defer rows.Close()

	result = &UpsertResult{}
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return nil, fmt.Errorf("failed to scan upsert result: %w", err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate upsert results: %w", err)
	}

	r.logger.DebugContext(ctx, "upserted place batch",
		"inserted", result.Inserted,
		"updated", result.Updated)
	return result, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (*Place, error) {
	var (
		p       Place
		osmID   sql.NullString
		name    sql.NullString
		lat     sql.NullFloat64
		lng     sql.NullFloat64
		cuisine sql.NullString
		address sql.NullString
	)
	if err := row.Scan(&p.ID, &osmID, &name, &lat, &lng, &cuisine, &address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan place: %w", err)
	}
	p.OSMID = osmID.String
	p.Name = stringPtr(name)
	p.Lat = floatPtr(lat)
	p.Lng = floatPtr(lng)
	p.Cuisine = stringPtr(cuisine)
	p.Address = stringPtr(address)
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
