package workout

import (
	"github.com/claude/liftlog/internal/models"
)

// DefaultWorkoutName is used by Quickstart when no name is given.
const DefaultWorkoutName = "Quick Workout"

// Quickstart creates an empty in-progress workout.
func (e *Engine) Quickstart(name string, bodyweight float64) models.Workout {
	if name == "" {
		name = DefaultWorkoutName
	}
	return models.Workout{
		ID:         e.newID(),
		Name:       name,
		Bodyweight: bodyweight,
		Exercises:  []models.Exercise{},
		StartedAt:  e.now(),
	}
}

// FromRoutine starts a workout from a routine template. Exercises and sets
// get fresh ids; catalog ids and difficulty values are kept.
func (e *Engine) FromRoutine(r models.Routine, bodyweight float64) models.Workout {
	return models.Workout{
		ID:         e.newID(),
		Name:       r.Name,
		Bodyweight: bodyweight,
		Exercises:  e.freshExercises(r.Exercises),
		StartedAt:  e.now(),
		RoutineID:  r.ID,
	}
}

// Repeat starts a new workout shaped like a previous one.
func (e *Engine) Repeat(prev models.Workout, bodyweight float64) models.Workout {
	return models.Workout{
		ID:         e.newID(),
		Name:       prev.Name,
		Bodyweight: bodyweight,
		Exercises:  e.freshExercises(prev.Exercises),
		StartedAt:  e.now(),
		RoutineID:  prev.RoutineID,
	}
}

// ToRoutine saves the shape of a workout as a reusable routine.
func (e *Engine) ToRoutine(w models.Workout, name string) models.Routine {
	if name == "" {
		name = w.Name
	}
	return models.Routine{
		ID:        e.newID(),
		Name:      name,
		Exercises: e.freshExercises(w.Exercises),
	}
}

// freshExercises deep-copies exercises with new ids and every set reset to
// UNSTARTED. Exercises without sets are skipped.
func (e *Engine) freshExercises(src []models.Exercise) []models.Exercise {
	out := make([]models.Exercise, 0, len(src))
	for _, ex := range src {
		if len(ex.Sets) == 0 {
			continue
		}
		sets := make([]models.Set, 0, len(ex.Sets))
		for _, s := range ex.Sets {
			sets = append(sets, models.Set{
				ID:         e.newID(),
				Status:     models.StatusUnstarted,
				Difficulty: s.Difficulty,
				RestSec:    ex.RestSec,
			})
		}
		out = append(out, models.Exercise{
			ID:      e.newID(),
			MetaID:  ex.MetaID,
			Sets:    sets,
			RestSec: ex.RestSec,
			Note:    ex.Note,
		})
	}
	return out
}
