package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SetStatus is the lifecycle state of a set.
type SetStatus string

const (
	StatusUnstarted SetStatus = "UNSTARTED"
	StatusResting   SetStatus = "RESTING"
	StatusFinished  SetStatus = "FINISHED"
)

// Set is one performed (or planned) set of an exercise.
type Set struct {
	ID            string
	Status        SetStatus
	Difficulty    Difficulty
	RestSec       int
	RestStartedAt *time.Time
	RestEndedAt   *time.Time
}

// Exercise is one catalog exercise performed within a workout. MetaID
// references the exercise catalog; catalog data is never embedded.
type Exercise struct {
	ID      string `json:"id"`
	MetaID  string `json:"meta_id"`
	Sets    []Set  `json:"sets"`
	RestSec int    `json:"rest_sec"`
	Note    string `json:"note,omitempty"`
}

// Workout is a training session. EndedAt is nil while the workout is in progress.
type Workout struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Bodyweight float64    `json:"bodyweight"`
	Exercises  []Exercise `json:"exercises"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	RoutineID  string     `json:"routine_id,omitempty"`
}

// InProgress reports whether the workout has not been finished yet.
func (w Workout) InProgress() bool {
	return w.EndedAt == nil
}

// Routine is a reusable workout template.
type Routine struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
}

// CompletedExercise is one exercise of a finished workout, carrying only its
// FINISHED sets plus the context of the owning workout.
type CompletedExercise struct {
	WorkoutID        string    `json:"workout_id"`
	ExerciseID       string    `json:"exercise_id"`
	MetaID           string    `json:"meta_id"`
	Sets             []Set     `json:"sets"`
	RestSec          int       `json:"rest_sec"`
	Note             string    `json:"note,omitempty"`
	Bodyweight       float64   `json:"bodyweight"`
	WorkoutStartedAt time.Time `json:"workout_started_at"`
}

// CompletedExercises flattens a workout into completed-exercise records.
// Only FINISHED sets are kept; exercises without any are omitted.
func CompletedExercises(w Workout) []CompletedExercise {
	var out []CompletedExercise
	for _, ex := range w.Exercises {
		var sets []Set
		for _, s := range ex.Sets {
			if s.Status == StatusFinished {
				sets = append(sets, s.Clone())
			}
		}
		if len(sets) == 0 {
			continue
		}
		out = append(out, CompletedExercise{
			WorkoutID:        w.ID,
			ExerciseID:       ex.ID,
			MetaID:           ex.MetaID,
			Sets:             sets,
			RestSec:          ex.RestSec,
			Note:             ex.Note,
			Bodyweight:       w.Bodyweight,
			WorkoutStartedAt: w.StartedAt,
		})
	}
	return out
}

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	s.RestStartedAt = cloneTime(s.RestStartedAt)
	s.RestEndedAt = cloneTime(s.RestEndedAt)
	return s
}

// Clone returns a deep copy of the exercise and its sets.
func (e Exercise) Clone() Exercise {
	sets := make([]Set, len(e.Sets))
	for i, s := range e.Sets {
		sets[i] = s.Clone()
	}
	e.Sets = sets
	return e
}

// Clone returns a deep copy of the workout. Mutation engines operate on
// clones so that callers' snapshots are never modified.
func (w Workout) Clone() Workout {
	exercises := make([]Exercise, len(w.Exercises))
	for i, ex := range w.Exercises {
		exercises[i] = ex.Clone()
	}
	w.Exercises = exercises
	w.EndedAt = cloneTime(w.EndedAt)
	return w
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

type setJSON struct {
	ID            string          `json:"id"`
	Status        SetStatus       `json:"status"`
	Difficulty    json.RawMessage `json:"difficulty"`
	RestSec       int             `json:"rest_sec"`
	RestStartedAt *time.Time      `json:"rest_started_at,omitempty"`
	RestEndedAt   *time.Time      `json:"rest_ended_at,omitempty"`
}

// MarshalJSON writes the difficulty as an object tagged with its variant:
// {"type":"WEIGHT","weight":100,"reps":10}.
func (s Set) MarshalJSON() ([]byte, error) {
	d, err := MarshalDifficulty(s.Difficulty)
	if err != nil {
		return nil, err
	}
	return json.Marshal(setJSON{
		ID:            s.ID,
		Status:        s.Status,
		Difficulty:    d,
		RestSec:       s.RestSec,
		RestStartedAt: s.RestStartedAt,
		RestEndedAt:   s.RestEndedAt,
	})
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var raw setJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := UnmarshalDifficulty(raw.Difficulty)
	if err != nil {
		return fmt.Errorf("set %s: %w", raw.ID, err)
	}
	*s = Set{
		ID:            raw.ID,
		Status:        raw.Status,
		Difficulty:    d,
		RestSec:       raw.RestSec,
		RestStartedAt: raw.RestStartedAt,
		RestEndedAt:   raw.RestEndedAt,
	}
	return nil
}

// MarshalDifficulty encodes d tagged with its variant.
func MarshalDifficulty(d Difficulty) (json.RawMessage, error) {
	if d == nil {
		return json.RawMessage("null"), nil
	}
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding difficulty: %w", err)
	}
	tag, err := json.Marshal(d.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// UnmarshalDifficulty decodes a tagged difficulty. A null or empty input
// yields a nil Difficulty.
func UnmarshalDifficulty(data json.RawMessage) (Difficulty, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var tag struct {
		Type DifficultyType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("reading difficulty tag: %w", err)
	}
	return DecodeDifficulty(tag.Type, data)
}
