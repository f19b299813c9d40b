package models

import (
	"encoding/json"
	"fmt"
)

// DifficultyType classifies how the effort of an exercise is measured.
type DifficultyType string

const (
	DifficultyBodyweight         DifficultyType = "BODYWEIGHT"
	DifficultyWeight             DifficultyType = "WEIGHT"
	DifficultyWeightedBodyweight DifficultyType = "WEIGHTED_BODYWEIGHT"
	DifficultyAssistedBodyweight DifficultyType = "ASSISTED_BODYWEIGHT"
	DifficultyTime               DifficultyType = "TIME"
)

// DifficultyTypes lists every known difficulty type in display order.
var DifficultyTypes = []DifficultyType{
	DifficultyBodyweight,
	DifficultyWeight,
	DifficultyWeightedBodyweight,
	DifficultyAssistedBodyweight,
	DifficultyTime,
}

// Valid reports whether t is one of the known difficulty types.
func (t DifficultyType) Valid() bool {
	_, ok := variants[t]
	return ok
}

// Difficulty records how hard a single set was. It is a closed union:
// the only implementations are the variant types in this file.
type Difficulty interface {
	Type() DifficultyType
	// RepCount is the number of repetitions, zero for timed sets.
	RepCount() int
	// Volume is the load moved by the set, given the lifter's bodyweight.
	Volume(bodyweight float64) float64
	// Seconds is the duration of a timed set, zero otherwise.
	Seconds() int

	sealed()
}

// Bodyweight is a set performed with bodyweight only.
type Bodyweight struct {
	Reps int `json:"reps"`
}

// Weight is a set performed with an external load.
type Weight struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// WeightedBodyweight is a bodyweight set with Weight added on top (dip belt, vest).
type WeightedBodyweight struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// AssistedBodyweight is a bodyweight set where AssistanceWeight is taken off
// (band, assisted machine).
type AssistedBodyweight struct {
	AssistanceWeight float64 `json:"assistance_weight"`
	Reps             int     `json:"reps"`
}

// Time is a timed hold or interval.
type Time struct {
	DurationSec int `json:"duration_sec"`
}

func (Bodyweight) Type() DifficultyType         { return DifficultyBodyweight }
func (Weight) Type() DifficultyType             { return DifficultyWeight }
func (WeightedBodyweight) Type() DifficultyType { return DifficultyWeightedBodyweight }
func (AssistedBodyweight) Type() DifficultyType { return DifficultyAssistedBodyweight }
func (Time) Type() DifficultyType               { return DifficultyTime }

func (d Bodyweight) RepCount() int         { return d.Reps }
func (d Weight) RepCount() int             { return d.Reps }
func (d WeightedBodyweight) RepCount() int { return d.Reps }
func (d AssistedBodyweight) RepCount() int { return d.Reps }
func (Time) RepCount() int                 { return 0 }

func (d Bodyweight) Volume(bodyweight float64) float64 {
	return bodyweight * float64(d.Reps)
}

func (d Weight) Volume(float64) float64 {
	return d.Weight * float64(d.Reps)
}

func (d WeightedBodyweight) Volume(bodyweight float64) float64 {
	return (bodyweight + d.Weight) * float64(d.Reps)
}

// Volume never goes negative, even when the assistance exceeds the bodyweight.
func (d AssistedBodyweight) Volume(bodyweight float64) float64 {
	load := bodyweight - d.AssistanceWeight
	if load < 0 {
		load = 0
	}
	return load * float64(d.Reps)
}

func (Time) Volume(float64) float64 { return 0 }

func (Bodyweight) Seconds() int         { return 0 }
func (Weight) Seconds() int             { return 0 }
func (WeightedBodyweight) Seconds() int { return 0 }
func (AssistedBodyweight) Seconds() int { return 0 }
func (d Time) Seconds() int             { return d.DurationSec }

func (Bodyweight) sealed()         {}
func (Weight) sealed()             {}
func (WeightedBodyweight) sealed() {}
func (AssistedBodyweight) sealed() {}
func (Time) sealed()               {}

// variant holds the per-type constructors used when decoding and when
// generating new sets. Adding a difficulty type means adding a variant
// type above and one entry here.
type variant struct {
	defaultValue Difficulty
	decode       func(data []byte) (Difficulty, error)
}

var variants = map[DifficultyType]variant{
	DifficultyBodyweight: {
		defaultValue: Bodyweight{Reps: 10},
		decode:       decodeAs[Bodyweight],
	},
	DifficultyWeight: {
		defaultValue: Weight{Weight: 20, Reps: 10},
		decode:       decodeAs[Weight],
	},
	DifficultyWeightedBodyweight: {
		defaultValue: WeightedBodyweight{Weight: 5, Reps: 8},
		decode:       decodeAs[WeightedBodyweight],
	},
	DifficultyAssistedBodyweight: {
		defaultValue: AssistedBodyweight{AssistanceWeight: 20, Reps: 8},
		decode:       decodeAs[AssistedBodyweight],
	},
	DifficultyTime: {
		defaultValue: Time{DurationSec: 60},
		decode:       decodeAs[Time],
	},
}

func decodeAs[T Difficulty](data []byte) (Difficulty, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DefaultDifficulty returns the starting values for a new set of the given type.
func DefaultDifficulty(t DifficultyType) (Difficulty, error) {
	v, ok := variants[t]
	if !ok {
		return nil, fmt.Errorf("unknown difficulty type %q", t)
	}
	return v.defaultValue, nil
}

// DecodeDifficulty decodes the untagged JSON body of a difficulty of type t.
func DecodeDifficulty(t DifficultyType, data []byte) (Difficulty, error) {
	v, ok := variants[t]
	if !ok {
		return nil, fmt.Errorf("unknown difficulty type %q", t)
	}
	d, err := v.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s difficulty: %w", t, err)
	}
	return d, nil
}
