// Package workout implements the live-session state machine: set lifecycle
// transitions, workout-level mutations and summaries.
//
// Every operation takes a models.Workout snapshot and returns a new one. The
// input snapshot is never modified, so callers may keep it for undo or diffing
// and are responsible for persisting the returned value.
package workout

import (
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

var (
	ErrInvalidTransition  = errors.New("invalid set transition")
	ErrSetNotFound        = errors.New("set not found")
	ErrExerciseNotFound   = errors.New("exercise not found")
	ErrInvalidOrder       = errors.New("invalid exercise order")
	ErrDifficultyMismatch = errors.New("difficulty does not match exercise type")
	ErrInvalidValue       = errors.New("invalid value")
)

const (
	// DefaultRestSec is the rest period given to newly added exercises.
	DefaultRestSec = 90
	// DefaultSetCount is the number of sets a newly added exercise starts with.
	DefaultSetCount = 3
)

// Catalog resolves exercise metadata.
type Catalog interface {
	Lookup(metaID string) (catalog.Meta, error)
}

// Engine applies workout mutations. It holds no workout state of its own;
// the clock and id generator are injected so results are reproducible in tests.
type Engine struct {
	catalog Catalog
	now     func() time.Time
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates an Engine backed by the given catalog.
func NewEngine(cat Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Activity describes what the live session should show next.
type Activity struct {
	Finished      bool             `json:"finished"`
	ExerciseIndex int              `json:"exercise_index"`
	SetIndex      int              `json:"set_index"`
	ExerciseID    string           `json:"exercise_id,omitempty"`
	SetID         string           `json:"set_id,omitempty"`
	Status        models.SetStatus `json:"status,omitempty"`
}

// Current returns the first UNSTARTED or RESTING set, scanning exercises in
// order and sets in order within each exercise. When there is none the
// activity is Finished.
func Current(w models.Workout) Activity {
	for ei, ex := range w.Exercises {
		for si, s := range ex.Sets {
			if s.Status == models.StatusUnstarted || s.Status == models.StatusResting {
				return Activity{
					ExerciseIndex: ei,
					SetIndex:      si,
					ExerciseID:    ex.ID,
					SetID:         s.ID,
					Status:        s.Status,
				}
			}
		}
	}
	return Activity{Finished: true, ExerciseIndex: -1, SetIndex: -1}
}

// FinishSet completes a set. An UNSTARTED set goes straight to FINISHED
// without touching rest fields; a RESTING set gets its rest end stamped.
func (e *Engine) FinishSet(w models.Workout, setID string) (models.Workout, error) {
	return e.updateSet(w, setID, func(s *models.Set) error {
		switch s.Status {
		case models.StatusUnstarted:
			s.Status = models.StatusFinished
		case models.StatusResting:
			now := e.now()
			s.Status = models.StatusFinished
			s.RestEndedAt = &now
		default:
			return fmt.Errorf("%w: finish from %s", ErrInvalidTransition, s.Status)
		}
		return nil
	})
}

// RestSet starts the rest timer of an UNSTARTED set.
func (e *Engine) RestSet(w models.Workout, setID string) (models.Workout, error) {
	return e.updateSet(w, setID, func(s *models.Set) error {
		if s.Status != models.StatusUnstarted {
			return fmt.Errorf("%w: rest from %s", ErrInvalidTransition, s.Status)
		}
		now := e.now()
		s.Status = models.StatusResting
		s.RestStartedAt = &now
		return nil
	})
}

// UnstartSet resets a set to UNSTARTED and clears its rest stamps (undo).
func (e *Engine) UnstartSet(w models.Workout, setID string) (models.Workout, error) {
	if err := requireInProgress(w); err != nil {
		return models.Workout{}, err
	}
	return e.updateSet(w, setID, func(s *models.Set) error {
		s.Status = models.StatusUnstarted
		s.RestStartedAt = nil
		s.RestEndedAt = nil
		return nil
	})
}

// SetSetDifficulty replaces the difficulty values of a set. The new value
// must be of the same variant as the current one.
func (e *Engine) SetSetDifficulty(w models.Workout, setID string, d models.Difficulty) (models.Workout, error) {
	if d == nil {
		return models.Workout{}, fmt.Errorf("%w: difficulty is required", ErrInvalidValue)
	}
	return e.updateSet(w, setID, func(s *models.Set) error {
		if s.Difficulty != nil && s.Difficulty.Type() != d.Type() {
			return fmt.Errorf("%w: set is %s, got %s", ErrDifficultyMismatch, s.Difficulty.Type(), d.Type())
		}
		s.Difficulty = d
		return nil
	})
}

// DeleteSet removes a set. When it was the exercise's last set the exercise
// is removed as well, since an exercise without sets is not a valid state.
func (e *Engine) DeleteSet(w models.Workout, setID string) (models.Workout, error) {
	ei, si, ok := findSet(w, setID)
	if !ok {
		return models.Workout{}, fmt.Errorf("%w: %s", ErrSetNotFound, setID)
	}
	out := w.Clone()
	ex := &out.Exercises[ei]
	ex.Sets = append(ex.Sets[:si], ex.Sets[si+1:]...)
	if len(ex.Sets) == 0 {
		out.Exercises = append(out.Exercises[:ei], out.Exercises[ei+1:]...)
	}
	return out, nil
}

// DuplicateLastSet appends a new UNSTARTED set to the exercise, copying the
// difficulty of its last set and the exercise's current rest duration.
func (e *Engine) DuplicateLastSet(w models.Workout, exerciseID string) (models.Workout, error) {
	if err := requireInProgress(w); err != nil {
		return models.Workout{}, err
	}
	return e.updateExercise(w, exerciseID, func(ex *models.Exercise) error {
		if len(ex.Sets) == 0 {
			return fmt.Errorf("%w: exercise %s has no sets", ErrSetNotFound, ex.ID)
		}
		last := ex.Sets[len(ex.Sets)-1]
		ex.Sets = append(ex.Sets, models.Set{
			ID:         e.newID(),
			Status:     models.StatusUnstarted,
			Difficulty: last.Difficulty,
			RestSec:    ex.RestSec,
		})
		return nil
	})
}

// AddExercise appends a catalog exercise with default sets for its
// difficulty type.
func (e *Engine) AddExercise(w models.Workout, metaID string) (models.Workout, error) {
	if err := requireInProgress(w); err != nil {
		return models.Workout{}, err
	}
	meta, err := e.catalog.Lookup(metaID)
	if err != nil {
		return models.Workout{}, err
	}
	d, err := models.DefaultDifficulty(meta.DifficultyType)
	if err != nil {
		return models.Workout{}, fmt.Errorf("exercise %s: %w", metaID, err)
	}

	ex := models.Exercise{
		ID:      e.newID(),
		MetaID:  meta.ID,
		RestSec: DefaultRestSec,
	}
	for range DefaultSetCount {
		ex.Sets = append(ex.Sets, models.Set{
			ID:         e.newID(),
			Status:     models.StatusUnstarted,
			Difficulty: d,
			RestSec:    DefaultRestSec,
		})
	}

	out := w.Clone()
	out.Exercises = append(out.Exercises, ex)
	return out, nil
}

// RemoveExercise removes an exercise and all of its sets.
func (e *Engine) RemoveExercise(w models.Workout, exerciseID string) (models.Workout, error) {
	idx := findExercise(w, exerciseID)
	if idx < 0 {
		return models.Workout{}, fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}
	out := w.Clone()
	out.Exercises = append(out.Exercises[:idx], out.Exercises[idx+1:]...)
	return out, nil
}

// SetExerciseRest changes the rest duration of an exercise. The change is
// applied to every set that is not FINISHED yet; completed history is left alone.
func (e *Engine) SetExerciseRest(w models.Workout, exerciseID string, restSec int) (models.Workout, error) {
	if restSec < 0 {
		return models.Workout{}, fmt.Errorf("%w: rest duration %d", ErrInvalidValue, restSec)
	}
	return e.updateExercise(w, exerciseID, func(ex *models.Exercise) error {
		ex.RestSec = restSec
		for i := range ex.Sets {
			if ex.Sets[i].Status != models.StatusFinished {
				ex.Sets[i].RestSec = restSec
			}
		}
		return nil
	})
}

// SetExerciseNote replaces the free-text note of an exercise.
func (e *Engine) SetExerciseNote(w models.Workout, exerciseID, note string) (models.Workout, error) {
	return e.updateExercise(w, exerciseID, func(ex *models.Exercise) error {
		ex.Note = note
		return nil
	})
}

// ReorderExercises puts the exercises in the order given by exerciseIDs,
// which must be a permutation of the workout's exercise ids.
//
// If the reorder changes which set is current and the previously current set
// was RESTING, that set is finished so its rest timer does not dangle.
func (e *Engine) ReorderExercises(w models.Workout, exerciseIDs []string) (models.Workout, error) {
	if len(exerciseIDs) != len(w.Exercises) {
		return models.Workout{}, fmt.Errorf("%w: got %d ids for %d exercises", ErrInvalidOrder, len(exerciseIDs), len(w.Exercises))
	}
	byID := make(map[string]models.Exercise, len(w.Exercises))
	for _, ex := range w.Exercises {
		byID[ex.ID] = ex
	}

	out := w.Clone()
	out.Exercises = out.Exercises[:0:0]
	seen := make(map[string]bool, len(exerciseIDs))
	for _, id := range exerciseIDs {
		ex, ok := byID[id]
		if !ok || seen[id] {
			return models.Workout{}, fmt.Errorf("%w: unexpected or repeated id %q", ErrInvalidOrder, id)
		}
		seen[id] = true
		out.Exercises = append(out.Exercises, ex.Clone())
	}

	before := Current(w)
	after := Current(out)
	if before.Finished || before.Status != models.StatusResting {
		return out, nil
	}
	if !after.Finished && after.SetID == before.SetID {
		return out, nil
	}
	return e.FinishSet(out, before.SetID)
}

// Finish completes the workout: UNSTARTED sets are dropped, RESTING sets are
// finished, exercises left without sets are dropped and EndedAt is stamped.
// Finishing an already finished workout returns it unchanged.
func (e *Engine) Finish(w models.Workout) models.Workout {
	if !w.InProgress() {
		return w.Clone()
	}

	now := e.now()
	out := w.Clone()
	exercises := out.Exercises[:0]
	for _, ex := range out.Exercises {
		sets := ex.Sets[:0]
		for _, s := range ex.Sets {
			switch s.Status {
			case models.StatusUnstarted:
				continue
			case models.StatusResting:
				end := now
				s.Status = models.StatusFinished
				s.RestEndedAt = &end
			}
			sets = append(sets, s)
		}
		if len(sets) == 0 {
			continue
		}
		ex.Sets = sets
		exercises = append(exercises, ex)
	}
	out.Exercises = exercises
	out.EndedAt = &now
	return out
}

// Rename changes the workout name.
func (e *Engine) Rename(w models.Workout, name string) models.Workout {
	out := w.Clone()
	out.Name = name
	return out
}

// SetBodyweight records the lifter's bodyweight for the workout.
func (e *Engine) SetBodyweight(w models.Workout, bodyweight float64) (models.Workout, error) {
	if bodyweight < 0 {
		return models.Workout{}, fmt.Errorf("%w: bodyweight %v", ErrInvalidValue, bodyweight)
	}
	out := w.Clone()
	out.Bodyweight = bodyweight
	return out, nil
}

func (e *Engine) updateSet(w models.Workout, setID string, fn func(*models.Set) error) (models.Workout, error) {
	ei, si, ok := findSet(w, setID)
	if !ok {
		return models.Workout{}, fmt.Errorf("%w: %s", ErrSetNotFound, setID)
	}
	out := w.Clone()
	if err := fn(&out.Exercises[ei].Sets[si]); err != nil {
		return models.Workout{}, err
	}
	return out, nil
}

func (e *Engine) updateExercise(w models.Workout, exerciseID string, fn func(*models.Exercise) error) (models.Workout, error) {
	idx := findExercise(w, exerciseID)
	if idx < 0 {
		return models.Workout{}, fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}
	out := w.Clone()
	if err := fn(&out.Exercises[idx]); err != nil {
		return models.Workout{}, err
	}
	return out, nil
}

// requireInProgress rejects changes that would put unfinished sets into a
// finished workout.
func requireInProgress(w models.Workout) error {
	if !w.InProgress() {
		return fmt.Errorf("%w: workout %s is finished", ErrInvalidTransition, w.ID)
	}
	return nil
}

func findSet(w models.Workout, setID string) (int, int, bool) {
	for ei, ex := range w.Exercises {
		for si, s := range ex.Sets {
			if s.ID == setID {
				return ei, si, true
			}
		}
	}
	return -1, -1, false
}

func findExercise(w models.Workout, exerciseID string) int {
	for i, ex := range w.Exercises {
		if ex.ID == exerciseID {
			return i
		}
	}
	return -1
}
