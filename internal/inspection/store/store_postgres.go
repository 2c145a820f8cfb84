// Package store reads inspections for reconciliation and property rollups.
// It also persists them, so the worker can keep a local copy of the
// documents carried by write events.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"propcheck/internal/inspection/models"
	"propcheck/pkg/platform/sentinel"
	"propcheck/pkg/platform/tx"
)

// PostgresStore keeps inspections in the inspections table with the template
// as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `SELECT id, property_id, inspection_completed, creation_date, updated_last_date, score, template FROM inspections`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Inspection, error) {
	row := tx.ExecutorFor(ctx, s.db).QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	insp, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find inspection by id: %w", err)
	}
	return insp, nil
}

// FindAllByProperty returns a property's inspections, newest first.
func (s *PostgresStore) FindAllByProperty(ctx context.Context, propertyID string) ([]*models.Inspection, error) {
	rows, err := tx.ExecutorFor(ctx, s.db).QueryContext(ctx,
		selectColumns+` WHERE property_id = $1 ORDER BY creation_date DESC, id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("find inspections by property: %w", err)
	}
	defer rows.Close()

	var out []*models.Inspection
	for rows.Next() {
		insp, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		out = append(out, insp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inspections: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, insp *models.Inspection) error {
	var template []byte
	if insp.Template != nil {
		var err error
		if template, err = json.Marshal(insp.Template); err != nil {
			return fmt.Errorf("marshal inspection template: %w", err)
		}
	}
	_, err := tx.ExecutorFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO inspections (id, property_id, inspection_completed, creation_date, updated_last_date, score, template)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			property_id = EXCLUDED.property_id,
			inspection_completed = EXCLUDED.inspection_completed,
			creation_date = EXCLUDED.creation_date,
			updated_last_date = EXCLUDED.updated_last_date,
			score = EXCLUDED.score,
			template = EXCLUDED.template`,
		insp.ID, insp.Property, insp.InspectionCompleted, insp.CreationDate, insp.UpdatedLastDate, insp.Score, template,
	)
	if err != nil {
		return fmt.Errorf("save inspection: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := tx.ExecutorFor(ctx, s.db).ExecContext(ctx, `DELETE FROM inspections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Inspection, error) {
	var (
		insp     models.Inspection
		template []byte
	)
	if err := row.Scan(&insp.ID, &insp.Property, &insp.InspectionCompleted,
		&insp.CreationDate, &insp.UpdatedLastDate, &insp.Score, &template); err != nil {
		return nil, err
	}
	if len(template) > 0 {
		insp.Template = &models.Template{}
		if err := json.Unmarshal(template, insp.Template); err != nil {
			return nil, fmt.Errorf("unmarshal inspection template: %w", err)
		}
	}
	return &insp, nil
}
