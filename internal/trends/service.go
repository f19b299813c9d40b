package trends

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
)

// DefaultLookbackMonths is how far back trends look for completions.
const DefaultLookbackMonths = 3

// CompletionSource returns finished sets of archived workouts started in
// [after, before).
type CompletionSource interface {
	QueryCompletedExercises(ctx context.Context, after, before time.Time) ([]models.CompletedExercise, error)
}

// Service computes trends and per-exercise metrics from stored completions.
type Service struct {
	source   CompletionSource
	catalog  Catalog
	log      *slog.Logger
	now      func() time.Time
	lookback int
	limits   []func(*Options)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLookbackMonths overrides DefaultLookbackMonths. Zero keeps the default.
func WithLookbackMonths(months int) ServiceOption {
	return func(s *Service) {
		if months > 0 {
			s.lookback = months
		}
	}
}

// WithLimits overrides the selection limits. Zero values keep the defaults.
func WithLimits(limit, perTypeLimit int) ServiceOption {
	return func(s *Service) {
		s.limits = append(s.limits, func(o *Options) {
			if limit > 0 {
				o.Limit = limit
			}
			if perTypeLimit > 0 {
				o.PerTypeLimit = perTypeLimit
			}
		})
	}
}

// WithWeightOffset replaces DefaultWeightOffset. Zero is a valid offset.
func WithWeightOffset(offset float64) ServiceOption {
	return func(s *Service) {
		s.limits = append(s.limits, func(o *Options) { o.WeightOffset = offset })
	}
}

// WithServiceClock replaces time.Now.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a trend service.
func NewService(source CompletionSource, cat Catalog, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		source:   source,
		catalog:  cat,
		log:      logger,
		now:      time.Now,
		lookback: DefaultLookbackMonths,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Trends returns the ranked trends for the lookback window ending now.
func (s *Service) Trends(ctx context.Context) ([]Trend, error) {
	now := s.now()
	records, err := s.source.QueryCompletedExercises(ctx, now.AddDate(0, -s.lookback, 0), now)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}

	opts := DefaultOptions(now)
	for _, apply := range s.limits {
		apply(&opts)
	}
	opts.OnSkip = func(metaID string, def metrics.Definition) {
		s.log.Warn("trend skipped, topline has no values", "meta_id", metaID, "metric", def.Type)
	}
	ranked, err := Rank(records, s.catalog, opts)
	if err != nil {
		return nil, err
	}
	s.log.Debug("trends ranked", "completions", len(records), "trends", len(ranked))
	return ranked, nil
}

// ExerciseProgress is every applicable metric of a single exercise.
type ExerciseProgress struct {
	Exercise catalog.Meta     `json:"exercise"`
	Metrics  []metrics.Metric `json:"metrics"`
}

// ExerciseMetrics computes all metrics applicable to metaID over completions
// in [after, before).
func (s *Service) ExerciseMetrics(ctx context.Context, metaID string, after, before time.Time) (ExerciseProgress, error) {
	meta, err := s.catalog.Lookup(metaID)
	if err != nil {
		return ExerciseProgress{}, err
	}
	records, err := s.source.QueryCompletedExercises(ctx, after, before)
	if err != nil {
		return ExerciseProgress{}, fmt.Errorf("querying completions: %w", err)
	}

	var own []models.CompletedExercise
	for _, r := range records {
		if r.MetaID == metaID {
			own = append(own, r)
		}
	}
	return ExerciseProgress{
		Exercise: meta,
		Metrics:  metrics.ComputeAll(own, meta.DifficultyType),
	}, nil
}
