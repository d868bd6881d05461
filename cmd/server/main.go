package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/heomed/docgen/internal/config"
	"github.com/heomed/docgen/internal/db"
	"github.com/heomed/docgen/internal/fonts"
	"github.com/heomed/docgen/internal/layout"
	"github.com/heomed/docgen/internal/lifecycle"
	"github.com/heomed/docgen/internal/logging"
	"github.com/heomed/docgen/internal/server"
	"github.com/heomed/docgen/internal/services"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.Env == "development" {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if *migrateOnlyFlag {
		logging.Logger().Info("migrations completed, exiting as requested")
		return
	}

	machine := lifecycle.NewMachine(dbConn)
	svc := services.NewDocumentService(dbConn,
		layout.NewEngine(fonts.NewManager(cfg.FontDir)),
		machine,
		layout.CompanyInfo{Name: cfg.CompanyName, Lines: cfg.CompanyLines},
		cfg.ArtifactDir)

	// Retention sweep: once at startup, then on the configured interval.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		runSweep(sweepCtx, machine, cfg.RetentionDays)
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runSweep(sweepCtx, machine, cfg.RetentionDays)
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(dbConn, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Logger().Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Logger().Info("shutdown signal received")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger().Error("shutdown", "error", err)
	}
	logging.Logger().Info("server stopped")
}

func runSweep(ctx context.Context, m *lifecycle.Machine, retentionDays int) {
	n, err := m.SweepExpired(ctx, time.Now().UTC(), retentionDays)
	if err != nil {
		logging.Logger().Error("retention sweep failed", "error", err)
		return
	}
	logging.Logger().Debug("retention sweep finished", "cancelled", n)
}
