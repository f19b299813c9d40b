// Package trends selects and ranks a small number of progress trends across
// exercises of different difficulty types.
package trends

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
)

// Bucket groups trends whose topline metrics share a unit.
type Bucket string

const (
	BucketWeight     Bucket = "weight"
	BucketBodyweight Bucket = "bodyweight"
	BucketTime       Bucket = "time"
	BucketRest       Bucket = "rest"
)

// DefaultWeightOffset is added to the first value of weight-bucket trends
// before computing their relative delta. It is an empirical tunable.
const DefaultWeightOffset = 50

// Catalog resolves exercise metadata.
type Catalog interface {
	Lookup(metaID string) (catalog.Meta, error)
}

// Options controls eligibility and selection.
type Options struct {
	Now             time.Time
	MinSpan         time.Duration
	MinDistinctDays int
	RecentWindow    time.Duration
	PerTypeLimit    int
	Limit           int
	WeightOffset    float64
	// OnSkip, if set, is called for an eligible exercise whose topline
	// metric has no values.
	OnSkip func(metaID string, def metrics.Definition)
}

// DefaultOptions returns the standard thresholds evaluated at now.
func DefaultOptions(now time.Time) Options {
	return Options{
		Now:             now,
		MinSpan:         14 * 24 * time.Hour,
		MinDistinctDays: 4,
		RecentWindow:    14 * 24 * time.Hour,
		PerTypeLimit:    5,
		Limit:           5,
		WeightOffset:    DefaultWeightOffset,
	}
}

// Trend is one ranked progress summary.
type Trend struct {
	Title         string         `json:"title"`
	MetaID        string         `json:"meta_id"`
	ExerciseName  string         `json:"exercise_name"`
	Bucket        Bucket         `json:"bucket"`
	Metric        metrics.Metric `json:"metric"`
	RelativeDelta float64        `json:"relative_delta"`
}

// Eligible reports whether the completions of a single exercise carry enough
// history to form a trend: a long enough span, enough distinct days, and
// recent activity.
func Eligible(records []models.CompletedExercise, opts Options) bool {
	if len(records) == 0 {
		return false
	}
	days := make(map[time.Time]struct{}, len(records))
	first, last := records[0].WorkoutStartedAt, records[0].WorkoutStartedAt
	for _, r := range records {
		days[calendarDay(r.WorkoutStartedAt)] = struct{}{}
		if r.WorkoutStartedAt.Before(first) {
			first = r.WorkoutStartedAt
		}
		if r.WorkoutStartedAt.After(last) {
			last = r.WorkoutStartedAt
		}
	}
	if calendarDay(last).Sub(calendarDay(first)) < opts.MinSpan {
		return false
	}
	if len(days) < opts.MinDistinctDays {
		return false
	}
	return !last.Before(opts.Now.Add(-opts.RecentWindow))
}

// Rank turns completions from a lookback window into at most opts.Limit
// trends. Exercises are grouped by metaID, filtered by Eligible, reduced to
// their topline metric, capped per bucket, and finally ranked across buckets
// by relative delta.
func Rank(records []models.CompletedExercise, cat Catalog, opts Options) ([]Trend, error) {
	groups := make(map[string][]models.CompletedExercise)
	var order []string
	for _, r := range records {
		if _, ok := groups[r.MetaID]; !ok {
			order = append(order, r.MetaID)
		}
		groups[r.MetaID] = append(groups[r.MetaID], r)
	}

	byBucket := make(map[Bucket][]Trend)
	for _, metaID := range order {
		group := groups[metaID]
		if !Eligible(group, opts) {
			continue
		}
		meta, err := cat.Lookup(metaID)
		if err != nil {
			return nil, fmt.Errorf("ranking trends: %w", err)
		}
		def := metrics.Topline(meta.DifficultyType)
		m, err := metrics.Compute(group, def)
		if errors.Is(err, metrics.ErrEmptySeries) {
			// Eligible by date but the topline yields nothing, e.g. no rest recorded.
			if opts.OnSkip != nil {
				opts.OnSkip(metaID, def)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("computing %s trend: %w", metaID, err)
		}

		b := bucketFor(meta.DifficultyType)
		byBucket[b] = append(byBucket[b], Trend{
			Title:        fmt.Sprintf("%s - %s", meta.Name, m.Type),
			MetaID:       metaID,
			ExerciseName: meta.Name,
			Bucket:       b,
			Metric:       m,
		})
	}

	var candidates []Trend
	for _, b := range []Bucket{BucketWeight, BucketBodyweight, BucketTime, BucketRest} {
		ts := byBucket[b]
		slices.SortFunc(ts, func(x, y Trend) int {
			return compare(x, y, x.Metric.Delta, y.Metric.Delta)
		})
		if opts.PerTypeLimit > 0 && len(ts) > opts.PerTypeLimit {
			ts = ts[:opts.PerTypeLimit]
		}
		candidates = append(candidates, ts...)
	}

	for i := range candidates {
		t := &candidates[i]
		var offset float64
		if t.Bucket == BucketWeight {
			offset = opts.WeightOffset
		}
		t.RelativeDelta = safeDivide(t.Metric.Delta, t.Metric.First+offset)
	}
	slices.SortFunc(candidates, func(x, y Trend) int {
		return compare(x, y, x.RelativeDelta, y.RelativeDelta)
	})
	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}
	return candidates, nil
}

// compare orders two trends on the supplied values: zero sorts last,
// improvements before regressions, larger magnitude first, more recent data
// first, then title.
func compare(x, y Trend, xv, yv float64) int {
	if xz, yz := xv == 0, yv == 0; xz != yz {
		if xz {
			return 1
		}
		return -1
	}
	if xi, yi := x.Metric.HasImproved, y.Metric.HasImproved; xi != yi {
		if xi {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(math.Abs(yv), math.Abs(xv)); c != 0 {
		return c
	}
	if c := y.Metric.LastTimestamp().Compare(x.Metric.LastTimestamp()); c != 0 {
		return c
	}
	return cmp.Compare(x.Title, y.Title)
}

func bucketFor(t models.DifficultyType) Bucket {
	switch t {
	case models.DifficultyWeight, models.DifficultyWeightedBodyweight:
		return BucketWeight
	case models.DifficultyBodyweight:
		return BucketBodyweight
	case models.DifficultyTime:
		return BucketTime
	default:
		return BucketRest
	}
}

func safeDivide(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	v := n / d
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// calendarDay maps t to midnight UTC of its local calendar date, so that day
// differences are exact multiples of 24h regardless of DST.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
