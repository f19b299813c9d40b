package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/trends"
	"github.com/claude/liftlog/internal/workout"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestHTTPClientExerciseMetrics verifies the path, the time range params and
// the decoded response.
func TestHTTPClientExerciseMetrics(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/bench_press/metrics": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("start"); got != start.Format(time.RFC3339) {
				t.Errorf("start=%q", got)
			}
			if got := r.URL.Query().Get("end"); got != end.Format(time.RFC3339) {
				t.Errorf("end=%q", got)
			}
			writeTestJSON(t, w, trends.ExerciseProgress{Exercise: catalog.Meta{ID: "bench_press", Name: "Bench Press"}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL + "/")
	got, err := client.ExerciseMetrics(context.Background(), "bench_press", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if got.Exercise.Name != "Bench Press" {
		t.Errorf("exercise = %+v", got.Exercise)
	}
}

// TestHTTPClientWorkouts verifies workouts decode with tagged difficulties intact.
func TestHTTPClientWorkouts(t *testing.T) {
	ended := time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC)
	sent := []models.Workout{{
		ID:        "w1",
		Name:      "Push",
		StartedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		EndedAt:   &ended,
		Exercises: []models.Exercise{{
			ID:     "e1",
			MetaID: "bench_press",
			Sets:   []models.Set{{ID: "s1", Status: models.StatusFinished, Difficulty: models.Weight{Weight: 100, Reps: 5}}},
		}},
	}}

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, sent)
		},
	})
	defer ts.Close()

	got, err := NewHTTPClient(ts.URL).ListWorkouts(context.Background(), time.Time{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d workouts, want 1", len(got))
	}
	d, ok := got[0].Exercises[0].Sets[0].Difficulty.(models.Weight)
	if !ok || d.Weight != 100 || d.Reps != 5 {
		t.Errorf("difficulty = %#v", got[0].Exercises[0].Sets[0].Difficulty)
	}
}

// TestHTTPClientReportAndTrends verifies the summary and trends endpoints.
func TestHTTPClientReportAndTrends(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts/w1/summary": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, workout.Report{Summary: workout.Summary{FinishedSets: 3, TotalReps: 15}})
		},
		"/api/v1/trends": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []trends.Trend{{Title: "Bench Press Estimated 1RM", MetaID: "bench_press"}})
		},
		"/api/v1/catalog": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []catalog.Meta{{ID: "plank", Name: "Plank", DifficultyType: models.DifficultyTime}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	report, err := client.WorkoutReport(context.Background(), "w1")
	if err != nil {
		t.Fatal(err)
	}
	if report.Summary.FinishedSets != 3 || report.Summary.TotalReps != 15 {
		t.Errorf("summary = %+v", report.Summary)
	}

	ranked, err := client.Trends(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 1 || ranked[0].MetaID != "bench_press" {
		t.Errorf("trends = %+v", ranked)
	}

	exercises, err := client.Exercises(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(exercises) != 1 || exercises[0].DifficultyType != models.DifficultyTime {
		t.Errorf("exercises = %+v", exercises)
	}
}

// TestHTTPClientError verifies that non-200 responses return an error.
func TestHTTPClientError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/trends": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	if _, err := NewHTTPClient(ts.URL).Trends(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
