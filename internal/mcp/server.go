// Package mcp exposes workout history and progress trends to MCP clients.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength training server. Query finished workouts, per-exercise progress metrics and the ranked list of exercises that are trending."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetTrends, Handler: h.getTrends},
		server.ServerTool{Tool: toolGetExerciseMetrics, Handler: h.getExerciseMetrics},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkoutSummary, Handler: h.getWorkoutSummary},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
	)

	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
		server.ServerResource{Resource: resTrends, Handler: h.trends},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"liftlog://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Finished workouts from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"liftlog://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All known exercises with their difficulty type and muscle groups"),
	mcp.WithMIMEType("application/json"),
)

var resTrends = mcp.NewResource(
	"liftlog://trends",
	"Trends",
	mcp.WithResourceDescription("Exercises with the strongest recent progress or regression"),
	mcp.WithMIMEType("application/json"),
)
