package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the version written by EncodeWorkout and EncodeRoutine.
//
// Version history:
//
//	1: the difficulty type was stored once per exercise ("difficulty_type")
//	   and set difficulties were untagged objects.
//	2: every set difficulty carries its own "type" tag.
const SchemaVersion = 2

// ErrUnsupportedSchema is returned when a document was written by a newer
// (or unknown) schema version.
var ErrUnsupportedSchema = errors.New("unsupported schema version")

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Workout       json.RawMessage `json:"workout,omitempty"`
	Routine       json.RawMessage `json:"routine,omitempty"`
}

// EncodeWorkout serializes a workout into a versioned document.
func EncodeWorkout(w Workout) ([]byte, error) {
	body, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encoding workout %s: %w", w.ID, err)
	}
	return json.Marshal(envelope{SchemaVersion: SchemaVersion, Workout: body})
}

// DecodeWorkout reads a document produced by EncodeWorkout, migrating older
// schema versions on the fly.
func DecodeWorkout(data []byte) (Workout, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Workout{}, fmt.Errorf("decoding workout envelope: %w", err)
	}
	if len(env.Workout) == 0 {
		return Workout{}, errors.New("decoding workout: document has no workout")
	}

	switch env.SchemaVersion {
	case 1:
		return migrateV1Workout(env.Workout)
	case SchemaVersion:
		var w Workout
		if err := json.Unmarshal(env.Workout, &w); err != nil {
			return Workout{}, fmt.Errorf("decoding workout: %w", err)
		}
		return w, nil
	default:
		return Workout{}, fmt.Errorf("decoding workout: %w: %d", ErrUnsupportedSchema, env.SchemaVersion)
	}
}

// EncodeRoutine serializes a routine into a versioned document.
func EncodeRoutine(r Routine) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding routine %s: %w", r.ID, err)
	}
	return json.Marshal(envelope{SchemaVersion: SchemaVersion, Routine: body})
}

// DecodeRoutine reads a document produced by EncodeRoutine.
func DecodeRoutine(data []byte) (Routine, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Routine{}, fmt.Errorf("decoding routine envelope: %w", err)
	}
	if len(env.Routine) == 0 {
		return Routine{}, errors.New("decoding routine: document has no routine")
	}

	switch env.SchemaVersion {
	case 1:
		var r v1Routine
		if err := json.Unmarshal(env.Routine, &r); err != nil {
			return Routine{}, fmt.Errorf("decoding v1 routine: %w", err)
		}
		exercises, err := migrateV1Exercises(r.Exercises)
		if err != nil {
			return Routine{}, err
		}
		return Routine{ID: r.ID, Name: r.Name, Exercises: exercises}, nil
	case SchemaVersion:
		var r Routine
		if err := json.Unmarshal(env.Routine, &r); err != nil {
			return Routine{}, fmt.Errorf("decoding routine: %w", err)
		}
		return r, nil
	default:
		return Routine{}, fmt.Errorf("decoding routine: %w: %d", ErrUnsupportedSchema, env.SchemaVersion)
	}
}

type v1Set struct {
	ID            string          `json:"id"`
	Status        SetStatus       `json:"status"`
	Difficulty    json.RawMessage `json:"difficulty"`
	RestSec       int             `json:"rest_sec"`
	RestStartedAt *time.Time      `json:"rest_started_at,omitempty"`
	RestEndedAt   *time.Time      `json:"rest_ended_at,omitempty"`
}

type v1Exercise struct {
	ID             string         `json:"id"`
	MetaID         string         `json:"meta_id"`
	DifficultyType DifficultyType `json:"difficulty_type"`
	Sets           []v1Set        `json:"sets"`
	RestSec        int            `json:"rest_sec"`
	Note           string         `json:"note,omitempty"`
}

type v1Workout struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Bodyweight float64      `json:"bodyweight"`
	Exercises  []v1Exercise `json:"exercises"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    *time.Time   `json:"ended_at,omitempty"`
	RoutineID  string       `json:"routine_id,omitempty"`
}

type v1Routine struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Exercises []v1Exercise `json:"exercises"`
}

func migrateV1Workout(data []byte) (Workout, error) {
	var old v1Workout
	if err := json.Unmarshal(data, &old); err != nil {
		return Workout{}, fmt.Errorf("decoding v1 workout: %w", err)
	}
	exercises, err := migrateV1Exercises(old.Exercises)
	if err != nil {
		return Workout{}, fmt.Errorf("migrating workout %s: %w", old.ID, err)
	}
	return Workout{
		ID:         old.ID,
		Name:       old.Name,
		Bodyweight: old.Bodyweight,
		Exercises:  exercises,
		StartedAt:  old.StartedAt,
		EndedAt:    old.EndedAt,
		RoutineID:  old.RoutineID,
	}, nil
}

func migrateV1Exercises(old []v1Exercise) ([]Exercise, error) {
	exercises := make([]Exercise, 0, len(old))
	for _, ex := range old {
		sets := make([]Set, 0, len(ex.Sets))
		for _, s := range ex.Sets {
			d, err := DecodeDifficulty(ex.DifficultyType, s.Difficulty)
			if err != nil {
				return nil, fmt.Errorf("exercise %s set %s: %w", ex.ID, s.ID, err)
			}
			sets = append(sets, Set{
				ID:            s.ID,
				Status:        s.Status,
				Difficulty:    d,
				RestSec:       s.RestSec,
				RestStartedAt: s.RestStartedAt,
				RestEndedAt:   s.RestEndedAt,
			})
		}
		exercises = append(exercises, Exercise{
			ID:      ex.ID,
			MetaID:  ex.MetaID,
			Sets:    sets,
			RestSec: ex.RestSec,
			Note:    ex.Note,
		})
	}
	return exercises, nil
}
