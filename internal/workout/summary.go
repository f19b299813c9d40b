package workout

import (
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// Summary holds the aggregate totals of a workout's finished sets.
type Summary struct {
	Exercises         int     `json:"exercises"`
	FinishedSets      int     `json:"finished_sets"`
	TotalReps         int     `json:"total_reps"`
	TotalWeightLifted float64 `json:"total_weight_lifted"`
	TotalDurationSec  int     `json:"total_duration_sec"`
	ElapsedSec        int     `json:"elapsed_sec"`
}

// Summarize reduces the FINISHED sets of a workout into totals. Each
// exercise's contribution is decided by its catalog difficulty type, so an
// unknown metaID fails the whole summary.
func (e *Engine) Summarize(w models.Workout) (Summary, error) {
	var sum Summary
	for _, ex := range w.Exercises {
		meta, err := e.catalog.Lookup(ex.MetaID)
		if err != nil {
			return Summary{}, fmt.Errorf("summarizing workout %s: %w", w.ID, err)
		}

		finished := 0
		for _, s := range ex.Sets {
			if s.Status != models.StatusFinished {
				continue
			}
			if s.Difficulty == nil || s.Difficulty.Type() != meta.DifficultyType {
				return Summary{}, fmt.Errorf("summarizing workout %s: set %s: %w", w.ID, s.ID, ErrDifficultyMismatch)
			}
			finished++
			sum.TotalReps += s.Difficulty.RepCount()
			sum.TotalWeightLifted += s.Difficulty.Volume(w.Bodyweight)
			sum.TotalDurationSec += s.Difficulty.Seconds()
		}
		if finished > 0 {
			sum.Exercises++
			sum.FinishedSets += finished
		}
	}

	end := e.now()
	if w.EndedAt != nil {
		end = *w.EndedAt
	}
	if elapsed := end.Sub(w.StartedAt); elapsed > 0 {
		sum.ElapsedSec = int(elapsed.Seconds())
	}
	return sum, nil
}

// Report pairs a workout with its summary.
type Report struct {
	Workout models.Workout `json:"workout"`
	Summary Summary        `json:"summary"`
}

// Report summarizes w and pairs the result with it.
func (e *Engine) Report(w models.Workout) (Report, error) {
	sum, err := e.Summarize(w)
	if err != nil {
		return Report{}, err
	}
	return Report{Workout: w, Summary: sum}, nil
}
