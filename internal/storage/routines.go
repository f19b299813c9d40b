package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// SaveRoutine inserts or replaces a routine.
func (db *DB) SaveRoutine(ctx context.Context, r models.Routine) error {
	doc, err := models.EncodeRoutine(r)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO routines (id, name, schema_version, doc)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, schema_version = EXCLUDED.schema_version,
			doc = EXCLUDED.doc, updated_at = NOW()`,
		r.ID, r.Name, models.SchemaVersion, doc)
	if err != nil {
		return fmt.Errorf("saving routine: %w", err)
	}
	return nil
}

// GetRoutine retrieves a routine by id.
func (db *DB) GetRoutine(ctx context.Context, id string) (models.Routine, error) {
	var doc []byte
	err := db.Pool.QueryRow(ctx, `SELECT doc FROM routines WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		return models.Routine{}, notFound(err, "routine", id)
	}
	return models.DecodeRoutine(doc)
}

// ListRoutines returns every routine ordered by name.
func (db *DB) ListRoutines(ctx context.Context) ([]models.Routine, error) {
	rows, err := db.Pool.Query(ctx, `SELECT doc FROM routines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	var result []models.Routine
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		r, err := models.DecodeRoutine(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteRoutine removes a routine.
func (db *DB) DeleteRoutine(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM routines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("routine %s: %w", id, ErrNotFound)
	}
	return nil
}
