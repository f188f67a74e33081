package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/msanchezt/smou-parking-ha/internal/api"
	"github.com/msanchezt/smou-parking-ha/internal/app"
	"github.com/msanchezt/smou-parking-ha/internal/config"
	"github.com/msanchezt/smou-parking-ha/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	metrics.Init()

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open record log: %v", err)
	}
	defer a.Close()

	var runs api.RunHistory
	if a.Runs != nil {
		runs = a.Runs
	}
	router := api.NewRouter(a.Service, a.Rates, runs)

	scheduler := cron.New(cron.WithSeconds())
	if cfg.Ingest.DropPath != "" {
		drop := app.NewDropIngester(a.Service, cfg.Ingest.DropPath, cfg.Ingest.Format)
		_, err := scheduler.AddFunc(cfg.Ingest.Schedule, func() {
			log.Printf("[cron] Starting drop file ingest from %s", drop.Path)
			jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			res, err := drop.Run(jobCtx)
			switch {
			case errors.Is(err, app.ErrDropMissing):
				log.Printf("[cron] Drop file %s not present, nothing to ingest", drop.Path)
			case errors.Is(err, app.ErrDropUnchanged):
				log.Printf("[cron] Drop file unchanged, skipped")
			case err != nil:
				log.Printf("[cron] Error ingesting drop file: %v", err)
			default:
				log.Printf("[cron] Ingest completed: run=%s new=%d duplicates=%d rejected=%d",
					res.RunID, res.RecordsIngested, res.DuplicatesSkipped, len(res.Rejected))
			}
		})
		if err != nil {
			log.Fatalf("Invalid ingest schedule %q: %v", cfg.Ingest.Schedule, err)
		}
		scheduler.Start()
		log.Printf("[cron] Drop file ingest scheduled: %s", cfg.Ingest.Schedule)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("SMOU Parking Savings")
	log.Printf("Listening on http://localhost:%s", cfg.Port)
	log.Printf("API base: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /api/v1/ingest")
	log.Printf("  GET    /api/v1/metrics")
	log.Printf("  GET    /api/v1/metrics/{name}")
	log.Printf("  GET    /api/v1/records")
	log.Printf("  GET    /api/v1/records/{id}")
	log.Printf("  GET    /api/v1/statement")
	log.Printf("  GET    /api/v1/rates")
	if runs != nil {
		log.Printf("  GET    /api/v1/runs")
		log.Printf("  GET    /api/v1/rejections")
	}
	log.Printf("  GET    /metrics")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down gracefully...")

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		log.Printf("[cron] Jobs stopped")
	case <-time.After(5 * time.Second):
		log.Printf("[cron] Jobs forced to stop after timeout")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
