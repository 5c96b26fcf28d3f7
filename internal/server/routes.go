package server

import (
	"net/http"

	"github.com/ahmethakanbesel/stockdata/internal/job"
	"github.com/ahmethakanbesel/stockdata/internal/price"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Prices  *price.Service
	Jobs    *job.Service
	Runs    RunTrigger
	Tickers []string
}

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(deps Deps) http.Handler {
	return newMux(deps)
}

func newMux(deps Deps) http.Handler {
	h := &handler{
		priceSvc: deps.Prices,
		jobSvc:   deps.Jobs,
		runs:     deps.Runs,
		tickers:  deps.Tickers,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/tickers", h.listTickers)
	mux.HandleFunc("GET /api/v1/bars/{ticker}", h.getBars)
	mux.HandleFunc("GET /api/v1/jobs", h.listJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.getJob)
	mux.HandleFunc("POST /api/v1/runs", h.startRun)

	// recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
