package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dreamware/grepmesh/internal/cluster"
)

// Status is the last known state of a worker.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultHealthInterval is used when NewHealthMonitor gets a non-positive interval.
const DefaultHealthInterval = 10 * time.Second

// WorkerHealth tracks one worker endpoint.
type WorkerHealth struct {
	Endpoint         string    `json:"endpoint"`
	Status           Status    `json:"status"`
	Algorithm        string    `json:"algorithm,omitempty"`
	Threads          int       `json:"threads,omitempty"`
	LastCheck        time.Time `json:"last_check"`
	LastHealthy      time.Time `json:"last_healthy"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	LastError        string    `json:"last_error,omitempty"`
}

// ProbeFunc asks a worker for its /info document.
type ProbeFunc func(ctx context.Context, endpoint string) (cluster.WorkerInfo, error)

// HealthMonitor periodically probes every configured worker.
//
// The monitor is informational: it feeds GET /workers and log lines but
// never removes a worker from dispatch, since the worker set is fixed and a
// query against a dead worker fails on its own. A worker is reported
// unhealthy after maxFailures consecutive failed probes and healthy again
// after the first successful one.
type HealthMonitor struct {
	workers     map[string]*WorkerHealth
	probe       ProbeFunc
	onUnhealthy func(endpoint string)
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
	maxFailures int
}

// NewHealthMonitor creates a monitor that probes workers through client
// every interval.
//
// Example:
//
//	monitor := NewHealthMonitor(10*time.Second, cluster.NewClient(2*time.Second), logger)
//	go monitor.Start(ctx, pool.Endpoints())
//	defer monitor.Stop()
func NewHealthMonitor(interval time.Duration, client *cluster.Client, logger *slog.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &HealthMonitor{
		workers:     make(map[string]*WorkerHealth),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
	}
	if client != nil {
		h.probe = client.Info
	}
	return h
}

// SetOnUnhealthy registers a callback run, in its own goroutine, when a
// worker crosses the failure threshold.
func (h *HealthMonitor) SetOnUnhealthy(callback func(endpoint string)) {
	h.onUnhealthy = callback
}

// SetProbe overrides how workers are probed. Must be called before Start.
func (h *HealthMonitor) SetProbe(probe ProbeFunc) {
	h.probe = probe
}

// Start probes endpoints immediately and then on every tick until ctx or
// Stop ends it. It blocks.
func (h *HealthMonitor) Start(ctx context.Context, endpoints []string) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}
	if h.probe == nil {
		h.probe = cluster.NewClient(h.timeout).Info
	}

	h.mu.Lock()
	for _, e := range endpoints {
		if _, ok := h.workers[e]; !ok {
			h.workers[e] = &WorkerHealth{Endpoint: e, Status: StatusUnknown}
		}
	}
	h.mu.Unlock()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info("health monitor started", "interval", h.interval, "workers", len(endpoints))
	h.checkAll(ctx, endpoints)

	for {
		select {
		case <-ticker.C:
			h.checkAll(ctx, endpoints)
		case <-ctx.Done():
			h.logger.Debug("health monitor stopping", "reason", ctx.Err())
			return
		case <-h.ctx.Done():
			h.logger.Debug("health monitor stopping", "reason", "stopped")
			return
		}
	}
}

// Stop cancels the monitor loop and waits for it to exit.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
	h.logger.Info("health monitor stopped")
}

// checkAll probes every endpoint concurrently and returns once all are done.
func (h *HealthMonitor) checkAll(ctx context.Context, endpoints []string) {
	var wg sync.WaitGroup
	for _, e := range endpoints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.check(ctx, e)
		}()
	}
	wg.Wait()
}

func (h *HealthMonitor) check(ctx context.Context, endpoint string) {
	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	info, err := h.probe(probeCtx, endpoint)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	w, ok := h.workers[endpoint]
	if !ok {
		w = &WorkerHealth{Endpoint: endpoint, Status: StatusUnknown}
		h.workers[endpoint] = w
	}
	w.LastCheck = time.Now()

	if err != nil {
		w.ConsecutiveFails++
		w.LastError = err.Error()
		h.logger.Warn("worker probe failed",
			"endpoint", endpoint, "attempt", w.ConsecutiveFails, "max", h.maxFailures, "error", err)

		if w.ConsecutiveFails >= h.maxFailures && w.Status != StatusUnhealthy {
			w.Status = StatusUnhealthy
			h.logger.Error("worker marked unhealthy", "endpoint", endpoint, "failures", w.ConsecutiveFails)
			if h.onUnhealthy != nil {
				go h.onUnhealthy(endpoint)
			}
		}
		return
	}

	if w.Status == StatusUnhealthy {
		h.logger.Info("worker recovered", "endpoint", endpoint)
	}
	w.Status = StatusHealthy
	w.ConsecutiveFails = 0
	w.LastError = ""
	w.LastHealthy = w.LastCheck
	w.Algorithm = info.Algorithm
	w.Threads = info.Threads
}

// WorkerHealth returns a copy of the record for endpoint, or nil if the
// endpoint is not monitored.
func (h *HealthMonitor) WorkerHealth(endpoint string) *WorkerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	w, ok := h.workers[endpoint]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}

// AllWorkerHealth returns copies of every record keyed by endpoint.
func (h *HealthMonitor) AllWorkerHealth() map[string]WorkerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]WorkerHealth, len(h.workers))
	for e, w := range h.workers {
		out[e] = *w
	}
	return out
}

// IsHealthy reports whether the last probe of endpoint succeeded.
func (h *HealthMonitor) IsHealthy(endpoint string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	w, ok := h.workers[endpoint]
	return ok && w.Status == StatusHealthy
}
