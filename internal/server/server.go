package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/trends"
	"github.com/claude/liftlog/internal/workout"
	"github.com/go-chi/chi/v5"
)

// Archive is the persistent store of finished workouts and routines.
type Archive interface {
	GetWorkout(ctx context.Context, id string) (models.Workout, error)
	ListWorkouts(ctx context.Context, start, end time.Time) ([]models.Workout, error)
	LatestWorkout(ctx context.Context) (models.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error
	SaveRoutine(ctx context.Context, r models.Routine) error
	GetRoutine(ctx context.Context, id string) (models.Routine, error)
	ListRoutines(ctx context.Context) ([]models.Routine, error)
	DeleteRoutine(ctx context.Context, id string) error
}

// Progress computes trends and exercise metrics.
type Progress interface {
	Trends(ctx context.Context) ([]trends.Trend, error)
	ExerciseMetrics(ctx context.Context, metaID string, after, before time.Time) (trends.ExerciseProgress, error)
}

// Importer turns an uploaded export into archived workouts.
type Importer interface {
	Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Catalog  *catalog.Catalog
	Engine   *workout.Engine
	Session  *session.Manager
	Archive  Archive
	Progress Progress
	Alpha    Importer
	APIKey   string
	Log      *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog  *catalog.Catalog
	engine   *workout.Engine
	session  *session.Manager
	archive  Archive
	progress Progress
	alpha    Importer
	whois    WhoIser
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	s := &Server{
		catalog:  d.Catalog,
		engine:   d.Engine,
		session:  d.Session,
		archive:  d.Archive,
		progress: d.Progress,
		alpha:    d.Alpha,
		log:      d.Log,
		apiKey:   d.APIKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale enables identity lookup for requests arriving over the tailnet.
func (s *Server) SetTailscale(lc WhoIser) {
	s.whois = lc
}

// Mount attaches an additional handler, such as the MCP endpoint, under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identify)

	// Import endpoints (API key required)
	s.router.Route("/api/v1/import", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/alpha", s.handleAlphaImport)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/catalog", s.handleCatalog)

		r.Get("/routines", s.handleListRoutines)
		r.Post("/routines", s.handleCreateRoutine)
		r.Get("/routines/{id}", s.handleGetRoutine)
		r.Delete("/routines/{id}", s.handleDeleteRoutine)

		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/workouts/{id}/summary", s.handleWorkoutSummary)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)

		r.Get("/exercises/{metaID}/metrics", s.handleExerciseMetrics)
		r.Get("/trends", s.handleTrends)

		r.Route("/active", func(r chi.Router) {
			r.Get("/", s.handleGetActive)
			r.Post("/", s.handleStartActive)
			r.Patch("/", s.handleUpdateActive)
			r.Delete("/", s.handleDiscardActive)
			r.Post("/finish", s.handleFinishActive)
			r.Get("/summary", s.handleActiveSummary)
			r.Get("/current", s.handleActiveCurrent)

			r.Post("/exercises", s.handleAddExercise)
			r.Put("/exercises/order", s.handleReorderExercises)
			r.Delete("/exercises/{exerciseID}", s.handleRemoveExercise)
			r.Post("/exercises/{exerciseID}/sets", s.handleDuplicateSet)
			r.Put("/exercises/{exerciseID}/rest", s.handleExerciseRest)
			r.Put("/exercises/{exerciseID}/note", s.handleExerciseNote)

			r.Post("/sets/{setID}/finish", s.handleSetTransition(s.engine.FinishSet))
			r.Post("/sets/{setID}/rest", s.handleSetTransition(s.engine.RestSet))
			r.Post("/sets/{setID}/unstart", s.handleSetTransition(s.engine.UnstartSet))
			r.Delete("/sets/{setID}", s.handleSetTransition(s.engine.DeleteSet))
			r.Put("/sets/{setID}/difficulty", s.handleSetDifficulty)
		})
	})
}
