package coordinator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dreamware/grepmesh/internal/corpus"
	"github.com/dreamware/grepmesh/internal/telemetry"
)

// Service answers queries over a fixed corpus: partition, dispatch, merge.
type Service struct {
	corpus     *corpus.Corpus
	dispatcher *Dispatcher
	batchSize  int
	observer   telemetry.Observer
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBatchSize switches partitioning to fixed-size chunks. 0 keeps the
// balanced split across all workers.
func WithBatchSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithObserver sets the collaborator notified of request start and end.
func WithObserver(o telemetry.Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithServiceLogger sets a custom logger. Default is slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service over c. c is never modified.
func NewService(c *corpus.Corpus, d *Dispatcher, opts ...ServiceOption) *Service {
	s := &Service{
		corpus:     c,
		dispatcher: d,
		observer:   telemetry.Nop{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs query across the corpus. The query is trimmed and lower-cased;
// a blank query returns ErrEmptyQuery and an empty corpus ErrEmptyCorpus,
// both before any worker is contacted. Any worker failure fails the search.
func (s *Service) Search(ctx context.Context, query string) (Result, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Result{}, ErrEmptyQuery
	}
	if s.corpus.Empty() {
		return Result{}, ErrEmptyCorpus
	}

	files := s.corpus.Files()
	started := time.Now()
	s.observer.Observe(telemetry.Event{Stage: telemetry.StageStarted, Query: q, Files: len(files)})

	res, err := s.search(ctx, q, files)

	s.observer.Observe(telemetry.Event{
		Stage:    telemetry.StageFinished,
		Query:    q,
		Files:    len(files),
		Hits:     res.TotalHits,
		Duration: time.Since(started),
		Err:      err,
	})
	if err != nil {
		s.logger.Error("search failed", "query", q, "error", err)
		return Result{}, err
	}
	s.logger.Info("search done",
		"query", q, "files", len(files), "matched_files", len(res.Hits),
		"total_hits", res.TotalHits, "elapsed", time.Since(started))
	return res, nil
}

func (s *Service) search(ctx context.Context, q string, files []string) (Result, error) {
	partitions := Partition(files, s.dispatcher.Workers(), s.batchSize)
	if len(partitions) == 0 {
		return Result{Hits: nil}, nil
	}
	hits, err := s.dispatcher.Dispatch(ctx, q, partitions)
	if err != nil {
		return Result{}, err
	}
	return Aggregate(hits), nil
}

// CorpusSize returns the number of searchable files.
func (s *Service) CorpusSize() int { return s.corpus.Len() }
