package metrics

import (
	"math"

	"github.com/claude/liftlog/internal/models"
)

var (
	OneRepMax = Definition{
		Type:        TypeOneRepMax,
		Format:      FormatWeight,
		Generate:    estimatedOneRepMax,
		HasImproved: higherIsBetter,
	}
	AverageWeight = Definition{
		Type:        TypeAverageWeight,
		Format:      FormatWeight,
		Generate:    averageOf(addedWeight),
		HasImproved: higherIsBetter,
	}
	AverageAssistance = Definition{
		Type:        TypeAverageAssistance,
		Format:      FormatWeight,
		Generate:    averageOf(assistanceWeight),
		HasImproved: lowerIsBetter,
	}
	AverageReps = Definition{
		Type:        TypeAverageReps,
		Format:      FormatReps,
		Generate:    averageOf(reps),
		HasImproved: higherIsBetter,
	}
	AverageDuration = Definition{
		Type:        TypeAverageDuration,
		Format:      FormatDuration,
		Generate:    averageOf(duration),
		HasImproved: higherIsBetter,
	}
	// AverageRest applies to every difficulty type and is the topline
	// fallback for types without a better signal.
	AverageRest = Definition{
		Type:        TypeAverageRest,
		Format:      FormatDuration,
		Generate:    averageRest,
		HasImproved: lowerIsBetter,
	}
)

type applicable struct {
	topline Definition
	all     []Definition
}

var byDifficulty = map[models.DifficultyType]applicable{
	models.DifficultyWeight: {
		topline: OneRepMax,
		all:     []Definition{OneRepMax, AverageWeight, AverageReps, AverageRest},
	},
	models.DifficultyWeightedBodyweight: {
		topline: OneRepMax,
		all:     []Definition{OneRepMax, AverageWeight, AverageReps, AverageRest},
	},
	models.DifficultyBodyweight: {
		topline: AverageReps,
		all:     []Definition{AverageReps, AverageRest},
	},
	models.DifficultyAssistedBodyweight: {
		topline: AverageRest,
		all:     []Definition{AverageAssistance, AverageReps, AverageRest},
	},
	models.DifficultyTime: {
		topline: AverageDuration,
		all:     []Definition{AverageDuration, AverageRest},
	},
}

// DefinitionsFor lists the metrics that make sense for a difficulty type.
func DefinitionsFor(t models.DifficultyType) []Definition {
	a, ok := byDifficulty[t]
	if !ok {
		return []Definition{AverageRest}
	}
	return a.all
}

// Topline returns the single metric used to rank trends for a difficulty type.
func Topline(t models.DifficultyType) Definition {
	a, ok := byDifficulty[t]
	if !ok {
		return AverageRest
	}
	return a.topline
}

// Brzycki estimates a one-repetition maximum from a sub-maximal set. The
// formula diverges at 37 reps, so longer sets count as the weight itself.
// A set without reps has no estimate.
func Brzycki(weight float64, reps int) (float64, bool) {
	if reps < 1 {
		return 0, false
	}
	if reps >= 37 {
		return weight, true
	}
	return weight * 36 / float64(37-reps), true
}

// estimatedOneRepMax takes the best Brzycki estimate over the sets. For
// weighted bodyweight work the bodyweight is added before the formula and
// removed after, so the value tracks added-load capacity only.
func estimatedOneRepMax(ce models.CompletedExercise) (float64, bool) {
	best, found := 0.0, false
	for _, s := range ce.Sets {
		var est float64
		var ok bool
		switch d := s.Difficulty.(type) {
		case models.Weight:
			est, ok = Brzycki(d.Weight, d.Reps)
		case models.WeightedBodyweight:
			est, ok = Brzycki(ce.Bodyweight+d.Weight, d.Reps)
			est -= ce.Bodyweight
		}
		if ok && (!found || est > best) {
			best, found = est, true
		}
	}
	if !found {
		return 0, false
	}
	return round1(best), true
}

func averageOf(field func(models.Difficulty) (float64, bool)) func(models.CompletedExercise) (float64, bool) {
	return func(ce models.CompletedExercise) (float64, bool) {
		var sum float64
		var n int
		for _, s := range ce.Sets {
			if s.Difficulty == nil {
				continue
			}
			v, ok := field(s.Difficulty)
			if !ok {
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			return 0, false
		}
		return round1(sum / float64(n)), true
	}
}

func addedWeight(d models.Difficulty) (float64, bool) {
	switch d := d.(type) {
	case models.Weight:
		return d.Weight, true
	case models.WeightedBodyweight:
		return d.Weight, true
	}
	return 0, false
}

func assistanceWeight(d models.Difficulty) (float64, bool) {
	if d, ok := d.(models.AssistedBodyweight); ok {
		return d.AssistanceWeight, true
	}
	return 0, false
}

func reps(d models.Difficulty) (float64, bool) {
	if d.Type() == models.DifficultyTime {
		return 0, false
	}
	return float64(d.RepCount()), true
}

func duration(d models.Difficulty) (float64, bool) {
	if d.Type() != models.DifficultyTime {
		return 0, false
	}
	return float64(d.Seconds()), true
}

// averageRest is the mean rest, in whole seconds, over sets that recorded
// both ends of their rest period.
func averageRest(ce models.CompletedExercise) (float64, bool) {
	var total int64
	var n int64
	for _, s := range ce.Sets {
		if s.RestStartedAt == nil || s.RestEndedAt == nil {
			continue
		}
		total += int64(s.RestEndedAt.Sub(*s.RestStartedAt).Seconds())
		n++
	}
	if n == 0 {
		return 0, false
	}
	return math.Round(float64(total) / float64(n)), true
}

func higherIsBetter(first, last float64) bool { return last > first }
func lowerIsBetter(first, last float64) bool  { return last < first }
