package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dreamware/grepmesh/internal/cluster"
)

// DefaultWorkerTimeout bounds a single worker call when none is configured.
const DefaultWorkerTimeout = 120 * time.Second

// Searcher sends one partition to one worker. *cluster.Client implements it.
type Searcher interface {
	Search(ctx context.Context, endpoint string, req cluster.SearchRequest) (cluster.SearchResponse, error)
}

// DispatcherConfig tunes a Dispatcher.
type DispatcherConfig struct {
	// Parallel caps worker calls in flight across all queries.
	// Default: the number of endpoints.
	Parallel int
	// Timeout bounds each worker call. Default: DefaultWorkerTimeout.
	Timeout time.Duration
}

// Dispatcher fans partitions out to workers and gathers their hits.
//
// The in-flight bound is a semaphore owned by the Dispatcher, so it holds
// across concurrent queries, not per query. A query fails as soon as any of
// its calls fails: the shared context is canceled, queued calls give up
// waiting for a slot, running calls are aborted, and Dispatch returns only
// after every call it started has released its slot.
type Dispatcher struct {
	searcher  Searcher
	endpoints *EndpointPool
	sem       *semaphore.Weighted
	parallel  int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger selects slog.Default().
func NewDispatcher(searcher Searcher, endpoints *EndpointPool, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Parallel < 1 {
		cfg.Parallel = max(endpoints.Len(), 1)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWorkerTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		searcher:  searcher,
		endpoints: endpoints,
		sem:       semaphore.NewWeighted(int64(cfg.Parallel)),
		parallel:  cfg.Parallel,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Dispatch sends query with each non-empty partition to the next endpoint of
// the pool and returns the concatenated hits of all responses. Any failed
// call fails the whole dispatch with a *DispatchError; partial hits are
// never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, partitions [][]string) ([]cluster.Hit, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu   sync.Mutex
		hits []cluster.Hit
	)
	for i, files := range partitions {
		if len(files) == 0 {
			continue
		}
		endpoint := d.endpoints.Next()
		g.Go(func() error {
			fail := func(err error) error {
				return &DispatchError{Endpoint: endpoint, Partition: i, Files: len(files), Err: err}
			}
			if err := d.sem.Acquire(gctx, 1); err != nil {
				return fail(err)
			}
			defer d.sem.Release(1)

			callCtx, cancel := context.WithTimeout(gctx, d.timeout)
			defer cancel()

			started := time.Now()
			resp, err := d.searcher.Search(callCtx, endpoint, cluster.SearchRequest{Query: query, Files: files})
			if err != nil {
				d.logger.Warn("worker call failed",
					"endpoint", endpoint, "partition", i, "files", len(files), "error", err)
				return fail(err)
			}
			d.logger.Debug("worker call done",
				"endpoint", endpoint, "partition", i, "files", len(files),
				"hits", resp.TotalHits, "elapsed", time.Since(started))

			mu.Lock()
			hits = append(hits, resp.Hits...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hits, nil
}

// Parallel returns the in-flight call limit.
func (d *Dispatcher) Parallel() int { return d.parallel }

// Timeout returns the per-call timeout.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Workers returns the number of configured endpoints.
func (d *Dispatcher) Workers() int { return d.endpoints.Len() }
