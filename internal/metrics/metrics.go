// Package metrics turns the completion history of one exercise into
// single-number progress series such as estimated one-rep max or average rest.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// ErrEmptySeries is returned by Compute when no record produced a value.
var ErrEmptySeries = errors.New("metric has no data points")

// Type names a metric as shown to the user.
type Type string

const (
	TypeOneRepMax         Type = "Estimated 1RM"
	TypeAverageWeight     Type = "Average Weight"
	TypeAverageAssistance Type = "Average Assistance"
	TypeAverageReps       Type = "Average Reps"
	TypeAverageDuration   Type = "Average Duration"
	TypeAverageRest       Type = "Average Rest"
)

// Format tells presentation layers how to render metric values.
type Format string

const (
	FormatWeight   Format = "weight"
	FormatReps     Format = "reps"
	FormatDuration Format = "duration"
)

// Definition describes how to derive one value per completed exercise and
// how to judge whether a change between two values is an improvement.
type Definition struct {
	Type        Type
	Format      Format
	Generate    func(models.CompletedExercise) (float64, bool)
	HasImproved func(first, last float64) bool
}

// Point is one value of a series, stamped with the day of the workout.
type Point struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Metric is a computed series plus its derived statistics. It is never persisted.
type Metric struct {
	Type        Type    `json:"metric_type"`
	Points      []Point `json:"points"`
	First       float64 `json:"first"`
	Last        float64 `json:"last"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Delta       float64 `json:"delta"`
	HasImproved bool    `json:"has_improved"`
	Format      Format  `json:"format"`
}

// LastTimestamp returns the timestamp of the most recent point.
func (m Metric) LastTimestamp() time.Time {
	if len(m.Points) == 0 {
		return time.Time{}
	}
	return m.Points[len(m.Points)-1].Timestamp
}

// Compute evaluates def over records. Records whose generator yields no
// value are dropped; the remaining points are ordered by day, oldest first.
func Compute(records []models.CompletedExercise, def Definition) (Metric, error) {
	points := make([]Point, 0, len(records))
	for _, r := range records {
		v, ok := def.Generate(r)
		if !ok {
			continue
		}
		points = append(points, Point{Value: v, Timestamp: Day(r.WorkoutStartedAt)})
	}
	if len(points) == 0 {
		return Metric{}, fmt.Errorf("%s: %w", def.Type, ErrEmptySeries)
	}
	slices.SortStableFunc(points, func(a, b Point) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	m := Metric{
		Type:   def.Type,
		Points: points,
		First:  points[0].Value,
		Last:   points[len(points)-1].Value,
		High:   points[0].Value,
		Low:    points[0].Value,
		Format: def.Format,
	}
	for _, p := range points[1:] {
		m.High = max(m.High, p.Value)
		m.Low = min(m.Low, p.Value)
	}
	m.Delta = round1(m.Last - m.First)
	m.HasImproved = def.HasImproved(m.First, m.Last)
	return m, nil
}

// ComputeAll evaluates every definition applicable to t, skipping those
// without data.
func ComputeAll(records []models.CompletedExercise, t models.DifficultyType) []Metric {
	var out []Metric
	for _, def := range DefinitionsFor(t) {
		m, err := Compute(records, def)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
