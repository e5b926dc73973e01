package coordinator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dreamware/grepmesh/internal/cluster"
	"github.com/dreamware/grepmesh/internal/telemetry"
)

// Server is the coordinator's HTTP surface.
type Server struct {
	service  *Service
	pool     *EndpointPool
	health   *HealthMonitor
	recorder *telemetry.Recorder
	logger   *slog.Logger
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	CorpusFiles   int                `json:"corpus_files"`
	Workers       int                `json:"workers"`
	ParallelCalls int                `json:"parallel_calls"`
	WorkerTimeout string             `json:"worker_timeout"`
	Requests      telemetry.Snapshot `json:"requests"`
}

// WorkersResponse is the body of GET /workers.
type WorkersResponse struct {
	Workers []WorkerHealth `json:"workers"`
}

// NewServer wires the HTTP handlers. health and recorder may be nil; the
// routes that need them then report unknown workers and 404 respectively.
func NewServer(service *Service, pool *EndpointPool, health *HealthMonitor, recorder *telemetry.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:  service,
		pool:     pool,
		health:   health,
		recorder: recorder,
		logger:   logger,
	}
}

// Routes returns the coordinator mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/workers", s.handleWorkers)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.recorder != nil {
		mux.HandleFunc("/stats", s.handleStats)
		mux.Handle("/metrics", s.recorder.Handler())
	}
	return mux
}

// handleSearch answers GET /search?q=<pattern>.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res, err := s.service.Search(r.Context(), r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res.Response())
}

// handleWorkers lists configured workers in pool order with their last
// probe result.
func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	endpoints := s.pool.Endpoints()
	out := WorkersResponse{Workers: make([]WorkerHealth, 0, len(endpoints))}
	for _, e := range endpoints {
		var h *WorkerHealth
		if s.health != nil {
			h = s.health.WorkerHealth(e)
		}
		if h == nil {
			h = &WorkerHealth{Endpoint: e, Status: StatusUnknown}
		}
		out.Workers = append(out.Workers, *h)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		CorpusFiles:   s.service.CorpusSize(),
		Workers:       s.pool.Len(),
		ParallelCalls: s.service.dispatcher.Parallel(),
		WorkerTimeout: s.service.dispatcher.Timeout().String(),
		Requests:      s.recorder.Snapshot(),
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
