package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

type bodyweight float64

func (b bodyweight) LastBodyweight(context.Context) float64 { return float64(b) }

// dryRunStore counts workouts without writing them.
type dryRunStore struct{}

func (dryRunStore) InsertWorkouts(_ context.Context, workouts []models.Workout) (int64, error) {
	return int64(len(workouts)), nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("path", "", "path to Alpha Progression CSV export (required)")
	bw := flag.Float64("bodyweight", 0, "bodyweight in kg recorded on imported workouts")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import -config config.yaml -path export.csv [-bodyweight 80] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("cannot open export", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		log.Error("failed to load exercise catalog", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var store alpha.Store = dryRunStore{}

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	} else {
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
		store = db
	}

	provider := alpha.NewProvider(cat, store, bodyweight(*bw), log)
	result, err := provider.Ingest(ctx, f)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	printResult(log, result)
	log.Info("import complete")
}

func printResult(log *slog.Logger, r *ingest.Result) {
	log.Info("import stats",
		"sessions_received", r.SessionsReceived,
		"workouts_inserted", r.WorkoutsInserted,
		"workouts_skipped", r.WorkoutsSkipped,
		"sets_received", r.SetsReceived,
		"sets_imported", r.SetsImported,
		"warmups_skipped", r.WarmupsSkipped,
		"sets_rejected", r.SetsRejected,
	)
	if len(r.UnknownExercises) > 0 {
		log.Info("exercises not in catalog", "names", r.UnknownExercises)
	}
}
