package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/msanchezt/smou-parking-ha/internal/ingestion"
	"github.com/msanchezt/smou-parking-ha/internal/repository"
	"github.com/msanchezt/smou-parking-ha/internal/tariff"
)

const rowsJSON = `[
  {"ID":"1","Start date":"04/03/2024 10:00:00","End date":"04/03/2024 11:00:00",
   "Number of hours and minutes":"1h","Type of parking":"Zona blava","Cost":"3,00 €","Mail":"a@b.c"},
  {"ID":"2","Start date":"06/05/2024 10:00:00","End date":"06/05/2024 11:00:00",
   "Number of hours and minutes":"1h","Type of parking":"Zona blava","Cost":"2,50 €","Mail":"a@b.c"},
  {"ID":"3","Start date":"01/04/2024 10:00:00","End date":"01/04/2024 12:00:00",
   "Number of hours and minutes":"2h","Type of parking":"Zona verda","Cost":"-","Mail":"a@b.c",
   "environmental_label":"ECO","pdf_error":""},
  {"ID":"4","Start date":"nope","Type of parking":"Zona blava","Cost":"1,00 €","Mail":"a@b.c"}
]`

type testServer struct {
	handler http.Handler
	svc     *ingestion.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := repository.InitDB(filepath.Join(dir, "smou.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	runs := repository.NewRunRepo(db)
	svc := ingestion.NewService(repository.NewRecordRepo(db), runs, ingestion.MergeOptions{Location: time.UTC})
	svc.Load(context.Background())

	return &testServer{
		handler: NewRouter(svc, tariff.DefaultRateTable(), runs),
		svc:     svc,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestIngestAndQuery(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/ingest?format=json", []byte(rowsJSON), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status %d: %s", rec.Code, rec.Body.String())
	}
	var result ingestion.IngestResult
	decode(t, rec, &result)
	if result.RecordsIngested != 3 || len(result.Rejected) != 1 || result.Rejected[0].RowID != "4" {
		t.Errorf("ingest result = %+v", result)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/metrics/blue_paid", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metric status %d: %s", rec.Code, rec.Body.String())
	}
	var metric struct {
		Metric string `json:"metric"`
		Amount string `json:"amount"`
	}
	decode(t, rec, &metric)
	if metric.Metric != "blue_paid" || metric.Amount != "5.5" {
		t.Errorf("blue_paid = %+v", metric)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/metrics/entries?zone=green", nil, "")
	var entries struct {
		Count  int            `json:"count"`
		ByYear map[string]int `json:"by_year"`
	}
	decode(t, rec, &entries)
	if entries.Count != 1 || entries.ByYear["2024"] != 1 {
		t.Errorf("green entries = %+v", entries)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/metrics", nil, "")
	var summary struct {
		Metrics      map[string]json.RawMessage `json:"metrics"`
		TotalRecords int                        `json:"total_records"`
	}
	decode(t, rec, &summary)
	if summary.TotalRecords != 3 || summary.Metrics["green_savings"] == nil {
		t.Errorf("summary = %+v", summary)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/ingest", []byte(rowsJSON), "application/json")
	rec := s.do(t, http.MethodPost, "/api/v1/ingest", []byte(rowsJSON), "application/json")

	var result ingestion.IngestResult
	decode(t, rec, &result)
	if result.RecordsIngested != 0 || result.DuplicatesSkipped != 3 || result.TotalRecords != 3 {
		t.Errorf("second ingest = %+v", result)
	}
}

func TestIngestMultipart(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("format", "csv")
	fw, err := mw.CreateFormFile("file", "rows.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("id,start,end,duration,zone,cost,account\n9,04/03/2024 10:00:00,,1h,Zona blava,\"1,00 €\",a\n"))
	mw.Close()

	rec := s.do(t, http.MethodPost, "/api/v1/ingest", buf.Bytes(), mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(s.svc.Snapshot()); got != 1 {
		t.Errorf("log has %d records, want 1", got)
	}
}

func TestIngestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"unsupported format", "/api/v1/ingest?format=xml", "<rows/>", http.StatusBadRequest},
		{"broken json", "/api/v1/ingest?format=json", "{", http.StatusUnprocessableEntity},
		{"empty body", "/api/v1/ingest", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.target, []byte(tt.body), "application/json")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestMetricErrors(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/api/v1/metrics/bogus", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown metric status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/metrics/paid?zone=red", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad zone status = %d", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/metrics/oldest_entry", nil, "")
	var res struct {
		NoData bool `json:"no_data"`
	}
	decode(t, rec, &res)
	if !res.NoData {
		t.Errorf("oldest_entry on empty log = %s", rec.Body.String())
	}
}

func TestRecords(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/ingest", []byte(rowsJSON), "application/json")

	rec := s.do(t, http.MethodGet, "/api/v1/records?zone=blue&limit=1&page=2", nil, "")
	var list struct {
		Records []struct {
			Record struct {
				ID string `json:"id"`
			} `json:"record"`
		} `json:"records"`
		Total int `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 2 || len(list.Records) != 1 || list.Records[0].Record.ID != "2" {
		t.Errorf("records = %+v", list)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/records?page=9223372036854775807&limit=2", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("far page status %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &list)
	if len(list.Records) != 0 || list.Total != 3 {
		t.Errorf("far page = %+v", list)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/records?limit=100000", nil, "")
	var paged struct {
		Limit int `json:"limit"`
	}
	decode(t, rec, &paged)
	if paged.Limit != maxPageLimit {
		t.Errorf("limit = %d, want %d", paged.Limit, maxPageLimit)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/records?year=2023", nil, "")
	decode(t, rec, &list)
	if list.Total != 0 || len(list.Records) != 0 {
		t.Errorf("2023 records = %+v", list)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/records/3", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var item struct {
		Resolution struct {
			Regular string `json:"regular"`
			Source  string `json:"source"`
		} `json:"resolution"`
	}
	decode(t, rec, &item)
	if item.Resolution.Regular != "5.5" || item.Resolution.Source != string(tariff.SourceRateTable) {
		t.Errorf("record 3 resolution = %+v", item.Resolution)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/records/missing", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing record status = %d", rec.Code)
	}
}

func TestStatement(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/ingest", []byte(rowsJSON), "application/json")

	rec := s.do(t, http.MethodGet, "/api/v1/statement?format=pdf", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".pdf") {
		t.Errorf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/statement?format=doc", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad format status = %d", rec.Code)
	}
}

func TestRunHistory(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/ingest", []byte(rowsJSON), "application/json")

	rec := s.do(t, http.MethodGet, "/api/v1/runs", nil, "")
	var runs struct {
		Runs []struct {
			RecordsAdded int `json:"records_added"`
			Rejected     int `json:"rejected"`
		} `json:"runs"`
	}
	decode(t, rec, &runs)
	if len(runs.Runs) != 1 || runs.Runs[0].RecordsAdded != 3 || runs.Runs[0].Rejected != 1 {
		t.Errorf("runs = %+v", runs)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/rejections?field=start", nil, "")
	var rej struct {
		Total int `json:"total"`
	}
	decode(t, rec, &rej)
	if rej.Total != 1 {
		t.Errorf("rejections = %s", rec.Body.String())
	}
}

func TestRatesAndPrometheus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/rates", nil, "")
	var rates struct {
		Years []int `json:"years"`
	}
	decode(t, rec, &rates)
	if len(rates.Years) != 3 || rates.Years[0] != 2023 {
		t.Errorf("rates = %s", rec.Body.String())
	}

	if rec := s.do(t, http.MethodGet, "/metrics", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}
}
