package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/workout"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	result, err := s.alpha.Ingest(r.Context(), r.Body)
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.archive.ListRoutines(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

type routineRequest struct {
	Name          string            `json:"name"`
	FromWorkoutID string            `json:"from_workout_id"`
	Exercises     []models.Exercise `json:"exercises"`
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var req routineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var source models.Workout
	if req.FromWorkoutID != "" {
		var err error
		source, err = s.archive.GetWorkout(r.Context(), req.FromWorkoutID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if req.Name == "" {
			req.Name = source.Name
		}
	} else {
		if req.Name == "" || len(req.Exercises) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and exercises are required"})
			return
		}
		for _, ex := range req.Exercises {
			meta, err := s.catalog.Lookup(ex.MetaID)
			if err != nil {
				s.writeError(w, err)
				return
			}
			for _, set := range ex.Sets {
				if set.Difficulty == nil || set.Difficulty.Type() != meta.DifficultyType {
					s.writeError(w, fmt.Errorf("exercise %s: %w", ex.MetaID, workout.ErrDifficultyMismatch))
					return
				}
			}
		}
		source = models.Workout{Exercises: req.Exercises}
	}

	routine := s.engine.ToRoutine(source, req.Name)
	if err := s.archive.SaveRoutine(r.Context(), routine); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, routine)
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	routine, err := s.archive.GetRoutine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	if err := s.archive.DeleteRoutine(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	workouts, err := s.archive.ListWorkouts(r.Context(), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	wo, err := s.archive.GetWorkout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wo)
}

func (s *Server) handleWorkoutSummary(w http.ResponseWriter, r *http.Request) {
	wo, err := s.archive.GetWorkout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.engine.Report(wo)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	if err := s.archive.DeleteWorkout(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExerciseMetrics(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, 3)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	progress, err := s.progress.ExerciseMetrics(r.Context(), chi.URLParam(r, "metaID"), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	ranked, err := s.progress.Trends(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, session.ErrNoActiveWorkout),
		errors.Is(err, workout.ErrSetNotFound),
		errors.Is(err, workout.ErrExerciseNotFound):
		return http.StatusNotFound
	case errors.Is(err, workout.ErrInvalidTransition),
		errors.Is(err, session.ErrWorkoutInProgress):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrUnknownExercise),
		errors.Is(err, workout.ErrDifficultyMismatch),
		errors.Is(err, workout.ErrInvalidOrder),
		errors.Is(err, workout.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads the start and end query parameters (RFC 3339 or
// YYYY-MM-DD). A missing end is now; a missing start is months before end.
func parseTimeRange(r *http.Request, months int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}

	if startStr == "" {
		start = end.AddDate(0, -months, 0)
		return
	}
	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return
}
