// Package scanner counts query occurrences across a batch of corpus files on
// a worker.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/dreamware/grepmesh/internal/cluster"
	"github.com/dreamware/grepmesh/internal/corpus"
	"github.com/dreamware/grepmesh/internal/matcher"
)

// DefaultThreads is the scan pool size when none is configured.
const DefaultThreads = 8

// Scanner applies one matcher.Algorithm to batches of files. File scans run
// on a single pool shared by every request the Scanner serves, so the number
// of files read at once never exceeds the pool size.
type Scanner struct {
	algo    matcher.Algorithm
	reader  corpus.Reader
	pool    *ants.Pool
	threads int
	logger  *slog.Logger

	requests   atomic.Uint64
	scanned    atomic.Uint64
	unreadable atomic.Uint64
	hits       atomic.Uint64
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithThreads sets the scan pool size. Values below 1 select DefaultThreads.
func WithThreads(n int) Option {
	return func(s *Scanner) {
		if n < 1 {
			n = DefaultThreads
		}
		s.threads = n
	}
}

// WithReader sets where file contents come from. Default: corpus.DiskReader.
func WithReader(r corpus.Reader) Option {
	return func(s *Scanner) {
		if r != nil {
			s.reader = r
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scanner and its pool. Call Release when done.
func New(algo matcher.Algorithm, opts ...Option) (*Scanner, error) {
	if algo == nil {
		algo = matcher.BruteForce{}
	}
	s := &Scanner{
		algo:    algo,
		reader:  corpus.DiskReader{},
		threads: DefaultThreads,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(s.threads)
	if err != nil {
		return nil, fmt.Errorf("create scan pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Scan counts pattern in every file and returns the files with at least one
// hit, in input order, plus the total over all files. The pattern and file
// contents are lower-cased before matching. A file that cannot be read
// counts as zero hits and does not fail the batch.
//
// Files not yet handed to the pool when ctx is done are skipped and the
// context error is returned; scans already running are left to finish.
func (s *Scanner) Scan(ctx context.Context, files []string, pattern string) (cluster.SearchResponse, error) {
	s.requests.Add(1)
	pattern = strings.ToLower(pattern)

	counts := make([]int, len(files))
	var wg sync.WaitGroup
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return cluster.SearchResponse{}, err
		}
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			counts[i] = s.countFile(path, pattern)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return cluster.SearchResponse{}, fmt.Errorf("submit scan of %s: %w", path, err)
		}
	}
	wg.Wait()

	resp := cluster.SearchResponse{Hits: make([]cluster.Hit, 0)}
	for i, n := range counts {
		resp.TotalHits += n
		if n > 0 {
			resp.Hits = append(resp.Hits, cluster.Hit{File: files[i], Count: n})
		}
	}
	s.hits.Add(uint64(resp.TotalHits))
	return resp, nil
}

func (s *Scanner) countFile(path, pattern string) int {
	s.scanned.Add(1)
	data, err := s.reader.ReadFile(path)
	if err != nil {
		s.unreadable.Add(1)
		s.logger.Debug("file unreadable, counting zero hits", "file", path, "error", err)
		return 0
	}
	text := strings.ToLower(strings.ToValidUTF8(string(data), ""))
	return s.algo.Count(text, pattern)
}

// Stats returns cumulative counters since the Scanner was created.
func (s *Scanner) Stats() cluster.ScanStats {
	return cluster.ScanStats{
		Requests:        s.requests.Load(),
		FilesScanned:    s.scanned.Load(),
		FilesUnreadable: s.unreadable.Load(),
		Hits:            s.hits.Load(),
	}
}

// Algorithm returns the configured algorithm's name.
func (s *Scanner) Algorithm() string { return s.algo.Name() }

// Threads returns the scan pool size.
func (s *Scanner) Threads() int { return s.threads }

// Release stops the pool. The Scanner must not be used afterwards.
func (s *Scanner) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
