package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// ErrNotFinished is returned when archiving a workout that is still in progress.
var ErrNotFinished = errors.New("workout is still in progress")

// SaveWorkout archives a finished workout, replacing any previous version
// with the same id.
func (db *DB) SaveWorkout(ctx context.Context, w models.Workout) error {
	if w.InProgress() {
		return fmt.Errorf("saving workout %s: %w", w.ID, ErrNotFinished)
	}
	doc, err := models.EncodeWorkout(w)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, name, started_at, ended_at, routine_id, schema_version, doc)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, started_at = EXCLUDED.started_at, ended_at = EXCLUDED.ended_at,
			routine_id = EXCLUDED.routine_id, schema_version = EXCLUDED.schema_version,
			doc = EXCLUDED.doc, updated_at = NOW()`,
		w.ID, w.Name, w.StartedAt, *w.EndedAt, w.RoutineID, models.SchemaVersion, doc)
	if err != nil {
		return fmt.Errorf("saving workout: %w", err)
	}
	return nil
}

// InsertWorkouts batch-inserts finished workouts, skipping ids that already
// exist. Returns the number inserted.
func (db *DB) InsertWorkouts(ctx context.Context, workouts []models.Workout) (int64, error) {
	if len(workouts) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workouts (id, name, started_at, ended_at, routine_id, schema_version, doc) VALUES `
	args := make([]any, 0, len(workouts)*7)
	valueStrings := make([]string, 0, len(workouts))

	for i, w := range workouts {
		if w.InProgress() {
			return 0, fmt.Errorf("inserting workout %s: %w", w.ID, ErrNotFinished)
		}
		doc, err := models.EncodeWorkout(w)
		if err != nil {
			return 0, err
		}
		base := i * 7
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,NULLIF($%d, ''),$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, w.ID, w.Name, w.StartedAt, *w.EndedAt, w.RoutineID, models.SchemaVersion, doc)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workouts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetWorkout retrieves a single archived workout.
func (db *DB) GetWorkout(ctx context.Context, id string) (models.Workout, error) {
	var doc []byte
	err := db.Pool.QueryRow(ctx, `SELECT doc FROM workouts WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		return models.Workout{}, notFound(err, "workout", id)
	}
	return models.DecodeWorkout(doc)
}

// ListWorkouts retrieves archived workouts started in [start, end), newest first.
func (db *DB) ListWorkouts(ctx context.Context, start, end time.Time) ([]models.Workout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT doc FROM workouts
		 WHERE started_at >= $1 AND started_at < $2
		 ORDER BY started_at DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanWorkoutDocs(rows)
}

// LatestWorkout returns the most recently started archived workout, used to
// repeat the previous session.
func (db *DB) LatestWorkout(ctx context.Context) (models.Workout, error) {
	var doc []byte
	err := db.Pool.QueryRow(ctx, `SELECT doc FROM workouts ORDER BY started_at DESC LIMIT 1`).Scan(&doc)
	if err != nil {
		return models.Workout{}, notFound(err, "workout", "latest")
	}
	return models.DecodeWorkout(doc)
}

// DeleteWorkout removes an archived workout.
func (db *DB) DeleteWorkout(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	return nil
}

// QueryCompletedExercises returns one record per exercise of every archived
// workout started in [after, before), oldest first. Each record carries only
// FINISHED sets plus the owning workout's bodyweight and start time.
func (db *DB) QueryCompletedExercises(ctx context.Context, after, before time.Time) ([]models.CompletedExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT doc FROM workouts
		 WHERE started_at >= $1 AND started_at < $2
		 ORDER BY started_at ASC`,
		after, before)
	if err != nil {
		return nil, fmt.Errorf("querying completed exercises: %w", err)
	}
	defer rows.Close()

	workouts, err := scanWorkoutDocs(rows)
	if err != nil {
		return nil, err
	}
	var result []models.CompletedExercise
	for _, w := range workouts {
		result = append(result, models.CompletedExercises(w)...)
	}
	return result, nil
}

func scanWorkoutDocs(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.Workout, error) {
	var result []models.Workout
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		w, err := models.DecodeWorkout(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
