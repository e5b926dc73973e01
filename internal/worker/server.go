// Package worker serves the scan side of grepmesh: it accepts a pattern and
// a list of files from the coordinator, counts matches with the configured
// algorithm and replies with the files that matched.
//
// HTTP API:
//
//	POST /search   {"q": "needle", "files": ["/data/a.txt"]}
//	GET  /info     algorithm, thread count and scan counters
//	GET  /health   liveness
//	GET  /metrics  Prometheus exposition
package worker

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dreamware/grepmesh/internal/cluster"
	"github.com/dreamware/grepmesh/internal/scanner"
	"github.com/dreamware/grepmesh/internal/telemetry"
)

// maxRequestBody bounds the JSON body of POST /search.
const maxRequestBody = 32 << 20

// Server is the worker's HTTP surface.
type Server struct {
	scanner  *scanner.Scanner
	observer telemetry.Observer
	metrics  http.Handler
	logger   *slog.Logger
}

// NewServer wires a worker around s. recorder may be nil, in which case no
// metrics are kept and /metrics is not served.
func NewServer(s *scanner.Scanner, recorder *telemetry.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{scanner: s, observer: telemetry.Nop{}, logger: logger}
	if recorder != nil {
		srv.observer = recorder
		srv.metrics = recorder.Handler()
	}
	return srv
}

// Routes returns the worker mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req cluster.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "expected JSON body with \"q\" and \"files\"")
		return
	}
	q := strings.ToLower(req.Query)
	if q == "" || len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "both \"q\" and \"files\" are required")
		return
	}

	started := time.Now()
	s.observer.Observe(telemetry.Event{Stage: telemetry.StageStarted, Query: q, Files: len(req.Files)})

	resp, err := s.scanner.Scan(r.Context(), req.Files, q)

	s.observer.Observe(telemetry.Event{
		Stage:    telemetry.StageFinished,
		Query:    q,
		Files:    len(req.Files),
		Hits:     resp.TotalHits,
		Duration: time.Since(started),
		Err:      err,
	})
	if err != nil {
		s.logger.Error("scan failed", "query", q, "files", len(req.Files), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("scan done",
		"query", q, "files", len(req.Files), "matched_files", len(resp.Hits),
		"total_hits", resp.TotalHits, "elapsed", time.Since(started))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, cluster.WorkerInfo{
		Algorithm: s.scanner.Algorithm(),
		Threads:   s.scanner.Threads(),
		Stats:     s.scanner.Stats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, cluster.ErrorResponse{Error: msg})
}
