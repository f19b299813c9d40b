package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
)

// Store persists imported workouts, skipping ids it already holds.
type Store interface {
	InsertWorkouts(ctx context.Context, workouts []models.Workout) (int64, error)
}

// BodyweightSource supplies the bodyweight recorded on imported workouts.
type BodyweightSource interface {
	LastBodyweight(ctx context.Context) float64
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	catalog    Catalog
	store      Store
	bodyweight BodyweightSource
	log        *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider. bodyweight
// may be nil, in which case imported workouts carry zero bodyweight.
func NewProvider(cat Catalog, store Store, bodyweight BodyweightSource, log *slog.Logger) *Provider {
	return &Provider{catalog: cat, store: store, bodyweight: bodyweight, log: log}
}

// Ingest parses a CSV export and archives its sessions as finished workouts.
// Re-importing an export leaves already archived sessions untouched.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	var bw float64
	if p.bodyweight != nil {
		bw = p.bodyweight.LastBodyweight(ctx)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	workouts, err := Convert(sessions, p.catalog, bw, result)
	if err != nil {
		return nil, err
	}

	inserted, err := p.store.InsertWorkouts(ctx, workouts)
	if err != nil {
		return nil, fmt.Errorf("inserting workouts: %w", err)
	}
	result.WorkoutsInserted = inserted
	result.WorkoutsSkipped = int64(len(workouts)) - inserted
	result.Message = fmt.Sprintf("%d of %d sessions imported", inserted, len(sessions))

	if len(result.UnknownExercises) > 0 {
		p.log.Warn("alpha import: unknown exercises", "names", result.UnknownExercises)
	}
	p.log.Info("alpha import complete",
		"sessions", len(sessions),
		"inserted", inserted,
		"sets", result.SetsImported,
		"rejected", result.SetsRejected,
	)
	return result, nil
}
