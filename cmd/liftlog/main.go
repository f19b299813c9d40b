package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/trends"
	"github.com/claude/liftlog/internal/workout"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("LiftLog starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Error("failed to load exercise catalog", "error", err)
		os.Exit(1)
	}
	log.Info("catalog loaded", "exercises", len(cat.All()))

	kv, err := storage.OpenKV(cfg.Store.Path)
	if err != nil {
		log.Error("failed to open draft store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	engine := workout.NewEngine(cat)
	sessions := session.NewManager(engine, kv, db, log, cfg.Session.Debounce)
	if err := sessions.Restore(ctx); err != nil {
		log.Error("failed to restore active workout", "error", err)
		os.Exit(1)
	}

	trendOpts := []trends.ServiceOption{
		trends.WithLookbackMonths(cfg.Trends.LookbackMonths),
		trends.WithLimits(cfg.Trends.Limit, cfg.Trends.PerTypeLimit),
	}
	if cfg.Trends.WeightOffset != nil {
		trendOpts = append(trendOpts, trends.WithWeightOffset(*cfg.Trends.WeightOffset))
	}
	progress := trends.NewService(db, cat, log, trendOpts...)
	alphaProvider := alpha.NewProvider(cat, db, sessions, log)

	srv := server.New(server.Deps{
		Catalog:  cat,
		Engine:   engine,
		Session:  sessions,
		Archive:  db,
		Progress: progress,
		Alpha:    alphaProvider,
		APIKey:   cfg.Auth.APIKey,
		Log:      log,
	})

	mcpSrv := mcp.New(&mcp.Local{Workouts: db, Progress: progress, Engine: engine, Catalog: cat}, Version, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server, tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := sessions.Close(shutdownCtx); err != nil {
		log.Error("flushing active workout failed", "error", err)
	}
	log.Info("server stopped")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}
