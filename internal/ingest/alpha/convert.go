package alpha

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// namespace derives import ids. Ids depend only on the session date and
// name, so importing the same export twice yields the same workouts.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://alphaprogression.com/export"))

var errUnsupported = errors.New("set does not fit exercise type")

// Catalog resolves export exercise names.
type Catalog interface {
	FindByName(name string) (catalog.Meta, error)
}

// workoutID returns the deterministic id of an imported session.
func workoutID(s Session) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(s.Date.Format("2006-01-02T15:04")+"|"+s.Name))
}

// Convert turns parsed sessions into finished workouts. Warmups are
// dropped, exercises missing from the catalog are reported in res, and sets
// whose load cannot be expressed by the catalog's difficulty type are
// counted as rejected. Sessions left without exercises are omitted.
func Convert(sessions []Session, cat Catalog, bodyweight float64, res *ingest.Result) ([]models.Workout, error) {
	var out []models.Workout
	for _, s := range sessions {
		id := workoutID(s)
		ended := s.Date.Add(s.Duration)
		w := models.Workout{
			ID:         id.String(),
			Name:       s.Name,
			Bodyweight: bodyweight,
			StartedAt:  s.Date,
			EndedAt:    &ended,
		}

		for _, ex := range s.Exercises {
			meta, err := cat.FindByName(ex.Name)
			if errors.Is(err, catalog.ErrUnknownExercise) {
				res.AddUnknown(ex.Name)
				for _, set := range ex.Sets {
					res.SetsReceived++
					if set.IsWarmup {
						res.WarmupsSkipped++
					} else {
						res.SetsRejected++
					}
				}
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolving %q: %w", ex.Name, err)
			}

			exID := uuid.NewSHA1(id, []byte("exercise/"+strconv.Itoa(ex.Number)))
			converted := models.Exercise{
				ID:     exID.String(),
				MetaID: meta.ID,
				Note:   ex.Equipment,
			}
			for _, set := range ex.Sets {
				res.SetsReceived++
				if set.IsWarmup {
					res.WarmupsSkipped++
					continue
				}
				d, err := difficultyFor(meta.DifficultyType, set)
				if err != nil {
					res.SetsRejected++
					continue
				}
				converted.Sets = append(converted.Sets, models.Set{
					ID:         uuid.NewSHA1(exID, []byte("set/"+strconv.Itoa(set.Number))).String(),
					Status:     models.StatusFinished,
					Difficulty: d,
				})
				res.SetsImported++
			}
			if len(converted.Sets) > 0 {
				w.Exercises = append(w.Exercises, converted)
			}
		}

		if len(w.Exercises) > 0 {
			out = append(out, w)
		}
	}
	return out, nil
}

// difficultyFor maps an exported set onto the catalog's difficulty type.
func difficultyFor(t models.DifficultyType, s Set) (models.Difficulty, error) {
	switch t {
	case models.DifficultyWeight:
		return models.Weight{Weight: s.WeightKg, Reps: s.Reps}, nil
	case models.DifficultyBodyweight:
		if s.WeightKg != 0 {
			return nil, fmt.Errorf("%w: %s with %.1f kg", errUnsupported, t, s.WeightKg)
		}
		return models.Bodyweight{Reps: s.Reps}, nil
	case models.DifficultyWeightedBodyweight:
		return models.WeightedBodyweight{Weight: s.WeightKg, Reps: s.Reps}, nil
	case models.DifficultyAssistedBodyweight:
		return models.AssistedBodyweight{AssistanceWeight: s.WeightKg, Reps: s.Reps}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupported, t)
	}
}
