package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/trends"
	"github.com/claude/liftlog/internal/workout"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in-process)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Trends(ctx context.Context) ([]trends.Trend, error)
	ExerciseMetrics(ctx context.Context, metaID string, start, end time.Time) (trends.ExerciseProgress, error)
	ListWorkouts(ctx context.Context, start, end time.Time) ([]models.Workout, error)
	WorkoutReport(ctx context.Context, id string) (workout.Report, error)
	Exercises(ctx context.Context) ([]catalog.Meta, error)
}

// WorkoutStore is the archive subset Local reads from.
type WorkoutStore interface {
	GetWorkout(ctx context.Context, id string) (models.Workout, error)
	ListWorkouts(ctx context.Context, start, end time.Time) ([]models.Workout, error)
}

// Progress computes trends and exercise metrics.
type Progress interface {
	Trends(ctx context.Context) ([]trends.Trend, error)
	ExerciseMetrics(ctx context.Context, metaID string, after, before time.Time) (trends.ExerciseProgress, error)
}

// Local serves MCP requests from the in-process archive and engines.
type Local struct {
	Workouts WorkoutStore
	Progress Progress
	Engine   *workout.Engine
	Catalog  *catalog.Catalog
}

// Compile-time checks.
var (
	_ DataSource = (*Local)(nil)
	_ DataSource = (*HTTPClient)(nil)
)

func (l *Local) Trends(ctx context.Context) ([]trends.Trend, error) {
	return l.Progress.Trends(ctx)
}

func (l *Local) ExerciseMetrics(ctx context.Context, metaID string, start, end time.Time) (trends.ExerciseProgress, error) {
	return l.Progress.ExerciseMetrics(ctx, metaID, start, end)
}

func (l *Local) ListWorkouts(ctx context.Context, start, end time.Time) ([]models.Workout, error) {
	return l.Workouts.ListWorkouts(ctx, start, end)
}

func (l *Local) WorkoutReport(ctx context.Context, id string) (workout.Report, error) {
	w, err := l.Workouts.GetWorkout(ctx, id)
	if err != nil {
		return workout.Report{}, err
	}
	return l.Engine.Report(w)
}

func (l *Local) Exercises(context.Context) ([]catalog.Meta, error) {
	return l.Catalog.All(), nil
}
