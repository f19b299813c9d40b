package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	return timeRange(startStr, endStr, 0, 7)
}

// timeRange parses start and end. A missing end is now; a missing start
// lies months and days before end.
func timeRange(startStr, endStr string, months, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, -months, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// resolveExercise accepts a catalog id or a display name.
func resolveExercise(exercises []catalog.Meta, ref string) (catalog.Meta, bool) {
	for _, m := range exercises {
		if m.ID == ref {
			return m, true
		}
	}
	for _, m := range exercises {
		if strings.EqualFold(m.Name, strings.TrimSpace(ref)) {
			return m, true
		}
	}
	return catalog.Meta{}, false
}

// --- Tool definitions ---

var toolGetTrends = mcp.NewTool("get_trends",
	mcp.WithDescription("Rank the exercises trained over the last months by relative progress. Each trend carries its headline metric (estimated 1RM, average reps, average duration or average rest) with the full series and whether it improved."),
)

var toolGetExerciseMetrics = mcp.NewTool("get_exercise_metrics",
	mcp.WithDescription("Progress metrics for one exercise: per-workout series with first/last/high/low, delta and improvement flag."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise id or name (e.g. bench_press, 'Pull Up')")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 3 months ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List finished workouts with their exercises and sets, newest first."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolGetWorkoutSummary = mcp.NewTool("get_workout_summary",
	mcp.WithDescription("Totals for a single workout: exercises, finished sets, reps, weight lifted, timed duration and elapsed time."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the exercise catalog with ids, names, difficulty types and muscle groups."),
)

// --- Tool handlers ---

func (h *handlers) getTrends(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ranked, err := h.ds.Trends(ctx)
	if err != nil {
		h.log.Error("mcp get_trends", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(ranked)
}

func (h *handlers) getExerciseMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 3, 0)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	exercises, err := h.ds.Exercises(ctx)
	if err != nil {
		h.log.Error("mcp get_exercise_metrics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	meta, ok := resolveExercise(exercises, ref)
	if !ok {
		return mcp.NewToolResultError("unknown exercise: " + ref), nil
	}

	progress, err := h.ds.ExerciseMetrics(ctx, meta.ID, start, end)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownExercise) {
			return mcp.NewToolResultError("unknown exercise: " + ref), nil
		}
		h.log.Error("mcp get_exercise_metrics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(progress)
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx, start, end)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkoutSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	report, err := h.ds.WorkoutReport(ctx, id)
	if err != nil {
		h.log.Error("mcp get_workout_summary", "id", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(report)
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.Exercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(exercises)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
