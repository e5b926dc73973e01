package telemetry

import (
	"cmp"
	"net/http"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slices"
)

// RecorderConfig names the metrics a Recorder exports.
type RecorderConfig struct {
	// Namespace prefixes every metric, e.g. "coord" or "worker".
	Namespace string
	// LatencyName is the histogram name after the namespace.
	// Default: "latency_seconds".
	LatencyName string
	// Labels are constant labels attached to every request metric.
	Labels map[string]string
	// Info is exported as <namespace>_info{...} 1.
	Info map[string]string
	// TopQueries bounds how many distinct query patterns are tracked.
	// Default: 64.
	TopQueries int
}

// QueryCount is how often a query pattern was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the recorder's counters.
type Snapshot struct {
	Requests   int64        `json:"requests"`
	Errors     int64        `json:"errors"`
	InFlight   int64        `json:"in_flight"`
	TopQueries []QueryCount `json:"top_queries"`
}

// Recorder is an Observer that keeps Prometheus request metrics in its own
// registry and the most frequent recent query patterns in an LRU.
type Recorder struct {
	registry *prometheus.Registry
	requests prometheus.Counter
	errors   prometheus.Counter
	inflight prometheus.Gauge
	latency  prometheus.Histogram

	queriesMu sync.Mutex
	queries   *lru.Cache[string, int64]

	totalRequests atomic.Int64
	totalErrors   atomic.Int64
	inFlight      atomic.Int64
}

// NewRecorder builds a Recorder and registers its collectors, plus the Go
// runtime and process collectors, on a fresh registry.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.LatencyName == "" {
		cfg.LatencyName = "latency_seconds"
	}
	if cfg.TopQueries <= 0 {
		cfg.TopQueries = 64
	}

	queries, err := lru.New[string, int64](cfg.TopQueries)
	if err != nil {
		return nil, err
	}

	labels := prometheus.Labels(cfg.Labels)
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "requests_total",
			Help:        "Search requests received.",
			ConstLabels: labels,
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "requests_errors",
			Help:        "Search requests that failed.",
			ConstLabels: labels,
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "inflight",
			Help:        "Search requests in progress.",
			ConstLabels: labels,
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        cfg.LatencyName,
			Help:        "Search request latency.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		queries: queries,
	}

	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   cfg.Namespace,
		Name:        "info",
		Help:        "Static process information.",
		ConstLabels: prometheus.Labels(cfg.Info),
	})
	info.Set(1)

	for _, c := range []prometheus.Collector{
		r.requests, r.errors, r.inflight, r.latency, info,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements Observer.
func (r *Recorder) Observe(e Event) {
	switch e.Stage {
	case StageStarted:
		r.requests.Inc()
		r.inflight.Inc()
		r.totalRequests.Add(1)
		r.inFlight.Add(1)
		r.countQuery(e.Query)
	case StageFinished:
		r.latency.Observe(e.Duration.Seconds())
		r.inflight.Dec()
		r.inFlight.Add(-1)
		if e.Err != nil {
			r.errors.Inc()
			r.totalErrors.Add(1)
		}
	}
}

func (r *Recorder) countQuery(q string) {
	if q == "" {
		return
	}
	r.queriesMu.Lock()
	defer r.queriesMu.Unlock()
	n, _ := r.queries.Get(q)
	r.queries.Add(q, n+1)
}

// Snapshot returns the current counters and the tracked queries ordered by
// count, most frequent first.
func (r *Recorder) Snapshot() Snapshot {
	r.queriesMu.Lock()
	top := make([]QueryCount, 0, r.queries.Len())
	for _, q := range r.queries.Keys() {
		if n, ok := r.queries.Peek(q); ok {
			top = append(top, QueryCount{Query: q, Count: n})
		}
	}
	r.queriesMu.Unlock()

	slices.SortFunc(top, func(a, b QueryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})

	return Snapshot{
		Requests:   r.totalRequests.Load(),
		Errors:     r.totalErrors.Load(),
		InFlight:   r.inFlight.Load(),
		TopQueries: top,
	}
}

// Handler serves the registry in the Prometheus text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
