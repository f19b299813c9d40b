package server

import (
	"encoding/json"
	"net/http"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/workout"
	"github.com/go-chi/chi/v5"
)

const (
	startQuickstart = "quickstart"
	startRoutine    = "routine"
	startRepeat     = "repeat"
)

type startRequest struct {
	Mode       string  `json:"mode"`
	Name       string  `json:"name"`
	RoutineID  string  `json:"routine_id"`
	WorkoutID  string  `json:"workout_id"`
	Bodyweight float64 `json:"bodyweight"`
}

// activeResponse is the live-workout view: the snapshot plus what to do next.
type activeResponse struct {
	Workout models.Workout   `json:"workout"`
	Current workout.Activity `json:"current"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeActive(w http.ResponseWriter, status int, wo models.Workout) {
	writeJSON(w, status, activeResponse{Workout: wo, Current: workout.Current(wo)})
}

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	wo, ok := s.session.Active()
	if !ok {
		s.writeError(w, session.ErrNoActiveWorkout)
		return
	}
	writeActive(w, http.StatusOK, wo)
}

func (s *Server) handleStartActive(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := s.session.Active(); ok {
		s.writeError(w, session.ErrWorkoutInProgress)
		return
	}

	var wo models.Workout
	switch req.Mode {
	case startQuickstart, "":
		wo = s.engine.Quickstart(req.Name, req.Bodyweight)
	case startRoutine:
		routine, err := s.archive.GetRoutine(r.Context(), req.RoutineID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		wo = s.engine.FromRoutine(routine, req.Bodyweight)
	case startRepeat:
		var prev models.Workout
		var err error
		if req.WorkoutID == "" {
			prev, err = s.archive.LatestWorkout(r.Context())
		} else {
			prev, err = s.archive.GetWorkout(r.Context(), req.WorkoutID)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		wo = s.engine.Repeat(prev, req.Bodyweight)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be quickstart, routine or repeat"})
		return
	}

	started, err := s.session.Start(r.Context(), wo)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("workout started", "workout_id", started.ID, "mode", req.Mode, "user", userInfoFromContext(r).Login)
	writeActive(w, http.StatusCreated, started)
}

type updateRequest struct {
	Name       *string  `json:"name"`
	Bodyweight *float64 `json:"bodyweight"`
}

func (s *Server) handleUpdateActive(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		if req.Name != nil {
			wo = s.engine.Rename(wo, *req.Name)
		}
		if req.Bodyweight != nil {
			return s.engine.SetBodyweight(wo, *req.Bodyweight)
		}
		return wo, nil
	})
}

func (s *Server) handleDiscardActive(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Discard(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinishActive(w http.ResponseWriter, r *http.Request) {
	finished, err := s.session.Finish(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.engine.Report(finished)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleActiveSummary(w http.ResponseWriter, r *http.Request) {
	wo, ok := s.session.Active()
	if !ok {
		s.writeError(w, session.ErrNoActiveWorkout)
		return
	}
	sum, err := s.engine.Summarize(wo)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleActiveCurrent(w http.ResponseWriter, r *http.Request) {
	wo, ok := s.session.Active()
	if !ok {
		s.writeError(w, session.ErrNoActiveWorkout)
		return
	}
	writeJSON(w, http.StatusOK, workout.Current(wo))
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MetaID string `json:"meta_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		return s.engine.AddExercise(wo, req.MetaID)
	})
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIDs []string `json:"exercise_ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		return s.engine.ReorderExercises(wo, req.ExerciseIDs)
	})
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exerciseID")
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		return s.engine.RemoveExercise(wo, id)
	})
}

func (s *Server) handleDuplicateSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exerciseID")
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		return s.engine.DuplicateLastSet(wo, id)
	})
}

func (s *Server) handleExerciseRest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exerciseID")
	var req struct {
		RestSec int `json:"rest_sec"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		return s.engine.SetExerciseRest(wo, id, req.RestSec)
	})
}

func (s *Server) handleExerciseNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exerciseID")
	var req struct {
		Note string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		return s.engine.SetExerciseNote(wo, id, req.Note)
	})
}

// handleSetTransition adapts a set-level engine operation to a handler.
func (s *Server) handleSetTransition(op func(models.Workout, string) (models.Workout, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "setID")
		s.apply(w, func(wo models.Workout) (models.Workout, error) {
			return op(wo, id)
		})
	}
}

func (s *Server) handleSetDifficulty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "setID")
	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	d, err := models.UnmarshalDifficulty(raw)
	if err != nil || d == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a tagged difficulty is required"})
		return
	}
	s.apply(w, func(wo models.Workout) (models.Workout, error) {
		return s.engine.SetSetDifficulty(wo, id, d)
	})
}

// apply runs a mutation against the active workout and writes the result.
func (s *Server) apply(w http.ResponseWriter, fn func(models.Workout) (models.Workout, error)) {
	wo, err := s.session.Apply(fn)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeActive(w, http.StatusOK, wo)
}
