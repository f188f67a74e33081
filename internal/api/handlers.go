package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/msanchezt/smou-parking-ha/internal/aggregate"
	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/export"
	"github.com/msanchezt/smou-parking-ha/internal/ingestion"
	"github.com/msanchezt/smou-parking-ha/internal/repository"
	"github.com/msanchezt/smou-parking-ha/internal/tariff"
)

const (
	maxUploadBytes = 32 << 20
	maxPageLimit   = 500
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	ingestionSvc *ingestion.Service
	rates        *tariff.RateTable
	runs         RunHistory
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// parseLimit reads a page size, capped at maxPageLimit.
func parseLimit(s string) int {
	v := parseIntDefault(s, 50)
	if v > maxPageLimit {
		v = maxPageLimit
	}
	return v
}

// pageBounds returns the slice bounds of a 1-based page over total items.
func pageBounds(page, limit, total int) (int, int) {
	from := total
	if page-1 <= total/limit {
		from = min((page-1)*limit, total)
	}
	return from, min(from+limit, total)
}

// parseZone reads the optional zone query parameter.
func parseZone(r *http.Request) (domain.Zone, bool) {
	z := domain.Zone(strings.ToLower(r.URL.Query().Get("zone")))
	if z == "" || z.Valid() {
		return z, true
	}
	return "", false
}

func (h *Handlers) aggregator() *aggregate.Aggregator {
	return aggregate.New(h.ingestionSvc.Snapshot(), h.rates)
}

// --- Ingest ---

// Ingest accepts a raw-row export either as the request body or as the
// "file" field of a multipart form.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	format := r.URL.Query().Get("format")

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}
		if f := r.FormValue("format"); f != "" {
			format = f
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
			return
		}
		defer file.Close()
		body = file
	}

	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty payload")
		return
	}

	result, err := h.ingestionSvc.IngestData(r.Context(), data, format)
	switch {
	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ingestion.ErrDecode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- Metrics ---

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":       h.aggregator().Summary(),
		"total_records": len(h.ingestionSvc.Snapshot()),
	})
}

func (h *Handlers) GetMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	zone, ok := parseZone(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "zone must be blue or green")
		return
	}

	res, err := h.aggregator().Query(name, zone)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownMetric) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Records ---

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	zone, ok := parseZone(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "zone must be blue or green")
		return
	}
	year := 0
	if y := q.Get("year"); y != "" {
		v, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be a number")
			return
		}
		year = v
	}
	page := parseIntDefault(q.Get("page"), 1)
	limit := parseLimit(q.Get("limit"))

	matched := []aggregate.Item{}
	for _, item := range h.aggregator().Items(zone) {
		if year != 0 && item.Record.Start.Year() != year {
			continue
		}
		matched = append(matched, item)
	}

	total := len(matched)
	from, to := pageBounds(page, limit, total)

	writeJSON(w, http.StatusOK, map[string]any{
		"records": matched[from:to],
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ingestionSvc.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Item{
		Record:     rec,
		Resolution: tariff.Resolve(rec, h.rates),
	})
}

// --- Statement ---

func (h *Handlers) GetStatement(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatXLSX
	}

	now := time.Now()
	data, contentType, err := export.Render(export.NewStatement(h.aggregator(), now), format)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		`attachment; filename="smou-statement-`+now.Format("20060102")+`.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[api] write statement: %v", err)
	}
}

// --- Rates ---

func (h *Handlers) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"years": h.rates.Years(),
		"rates": h.rates.Rows(),
	})
}

// --- Run history ---

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handlers) ListRejections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.RejectionFilter{
		RunID: q.Get("run_id"),
		RowID: q.Get("row_id"),
		Field: q.Get("field"),
		Page:  parseIntDefault(q.Get("page"), 1),
		Limit: parseLimit(q.Get("limit")),
	}

	rejections, total, err := h.runs.ListRejections(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rejections": rejections,
		"total":      total,
		"page":       filter.Page,
		"limit":      filter.Limit,
	})
}
