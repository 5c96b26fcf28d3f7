package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	"github.com/ahmethakanbesel/stockdata/internal/job"
	"github.com/ahmethakanbesel/stockdata/internal/price"
)

const dateFormat = "2006-01-02"

// RunTrigger starts ingestion runs on demand.
type RunTrigger interface {
	Trigger() (string, error)
	Running() bool
}

type handler struct {
	priceSvc *price.Service
	jobSvc   *job.Service
	runs     RunTrigger
	tickers  []string
}

type healthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

type tickersResponse struct {
	Configured []string `json:"configured"`
	Stored     []string `json:"stored"`
}

type runResponse struct {
	RunID   string   `json:"runId"`
	Tickers []string `json:"tickers"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Running: h.runs.Running()})
}

func (h *handler) listTickers(w http.ResponseWriter, r *http.Request) {
	stored, err := h.priceSvc.ListTickers(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickersResponse{Configured: h.tickers, Stored: stored})
}

func (h *handler) getBars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := price.ListBarsRequest{
		Ticker: strings.ToUpper(strings.TrimSpace(r.PathValue("ticker"))),
		Format: q.Get("format"),
	}

	var err error
	if v := q.Get("from"); v != "" {
		req.From, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from format, expected YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("to"); v != "" {
		req.To, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to format, expected YYYY-MM-DD")
			return
		}
	}

	bars, err := h.priceSvc.GetBars(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if bars == nil {
		bars = []price.Bar{}
	}

	if req.Format == "csv" {
		writeCSV(w, req.Ticker, bars)
		return
	}
	writeJSON(w, http.StatusOK, bars)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	j, err := h.jobSvc.Get(r.Context(), job.GetJobRequest{ID: id})
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := job.ListJobsRequest{
		Ticker: q.Get("ticker"),
		RunID:  q.Get("run"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = n
	}

	jobs, err := h.jobSvc.List(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

func (h *handler) startRun(w http.ResponseWriter, _ *http.Request) {
	runID, err := h.runs.Trigger()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runResponse{RunID: runID, Tickers: h.tickers})
}

// writeAppError maps err to a status. Errors without a code are logged and
// reported as a bare 500.
func writeAppError(w http.ResponseWriter, err error) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
