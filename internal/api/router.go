package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/ingestion"
	"github.com/msanchezt/smou-parking-ha/internal/repository"
	"github.com/msanchezt/smou-parking-ha/internal/tariff"
)

// RunHistory exposes the ingestion audit trail. Only the SQLite backend
// keeps one.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]domain.IngestRun, error)
	ListRejections(ctx context.Context, f repository.RejectionFilter) ([]domain.Rejection, int, error)
}

// NewRouter creates the Chi router with all API routes mounted. runs may be
// nil, in which case the run history routes are not served.
func NewRouter(svc *ingestion.Service, rates *tariff.RateTable, runs RunHistory) http.Handler {
	h := &Handlers{
		ingestionSvc: svc,
		rates:        rates,
		runs:         runs,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Ingestion.
		r.Post("/ingest", h.Ingest)

		// Aggregates.
		r.Get("/metrics", h.GetSummary)
		r.Get("/metrics/{name}", h.GetMetric)

		// Records.
		r.Get("/records", h.ListRecords)
		r.Get("/records/{id}", h.GetRecord)

		// Statement export.
		r.Get("/statement", h.GetStatement)

		// Rate table.
		r.Get("/rates", h.GetRates)

		if runs != nil {
			r.Get("/runs", h.ListRuns)
			r.Get("/rejections", h.ListRejections)
		}
	})

	return r
}
