// Package analytic holds the predicate-queryable copy of every deficient item.
// Rows are upserted as whole documents with the filterable columns lifted out.
package analytic

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"propcheck/internal/deficiency/models"
	"propcheck/pkg/platform/sentinel"
	"propcheck/pkg/platform/tx"
)

// PostgresStore persists deficient items in the deficient_items table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed analytic store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertQuery = `
	INSERT INTO deficient_items (
		id, property_id, inspection_id, item_id, state, archive, document, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		property_id = EXCLUDED.property_id,
		inspection_id = EXCLUDED.inspection_id,
		item_id = EXCLUDED.item_id,
		state = EXCLUDED.state,
		archive = EXCLUDED.archive,
		document = EXCLUDED.document,
		updated_at = EXCLUDED.updated_at
`

func (s *PostgresStore) Upsert(ctx context.Context, di *models.DeficientItem) error {
	doc, err := json.Marshal(di)
	if err != nil {
		return fmt.Errorf("marshal deficient item: %w", err)
	}
	_, err = tx.ExecutorFor(ctx, s.db).ExecContext(ctx, upsertQuery,
		di.ID, di.Property, di.Inspection, di.Item, di.State, di.Archive, doc, di.CreatedAt, di.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert deficient item: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.DeficientItem, error) {
	var doc []byte
	err := tx.ExecutorFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT document FROM deficient_items WHERE id = $1`, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find deficient item by id: %w", err)
	}
	return decode(doc)
}

// FindAllByInspection returns the active deficient items of an inspection.
func (s *PostgresStore) FindAllByInspection(ctx context.Context, inspectionID string) ([]*models.DeficientItem, error) {
	return s.query(ctx, "find deficient items by inspection",
		`SELECT document FROM deficient_items
		WHERE inspection_id = $1 AND NOT archive
		ORDER BY id`, inspectionID)
}

// FindByStates returns the active deficient items of a property whose state
// is one of states.
func (s *PostgresStore) FindByStates(ctx context.Context, propertyID string, states []string) ([]*models.DeficientItem, error) {
	if len(states) == 0 {
		return nil, nil
	}
	return s.query(ctx, "find deficient items by state",
		`SELECT document FROM deficient_items
		WHERE property_id = $1 AND state = ANY($2) AND NOT archive
		ORDER BY id`, propertyID, pq.Array(states))
}

// ListPropertiesWithStates returns the properties holding at least one active
// deficient item in one of states.
func (s *PostgresStore) ListPropertiesWithStates(ctx context.Context, states []string) ([]string, error) {
	if len(states) == 0 {
		return nil, nil
	}
	rows, err := tx.ExecutorFor(ctx, s.db).QueryContext(ctx,
		`SELECT DISTINCT property_id FROM deficient_items
		WHERE state = ANY($1) AND NOT archive
		ORDER BY property_id`, pq.Array(states))
	if err != nil {
		return nil, fmt.Errorf("list properties by state: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan property id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]*models.DeficientItem, error) {
	rows, err := tx.ExecutorFor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []*models.DeficientItem
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		di, err := decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, di)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func decode(doc []byte) (*models.DeficientItem, error) {
	var di models.DeficientItem
	if err := json.Unmarshal(doc, &di); err != nil {
		return nil, fmt.Errorf("unmarshal deficient item: %w", err)
	}
	return &di, nil
}
