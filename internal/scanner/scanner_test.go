package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/grepmesh/internal/cluster"
	"github.com/dreamware/grepmesh/internal/corpus"
	"github.com/dreamware/grepmesh/internal/matcher"
)

func newTestScanner(t *testing.T, reader corpus.Reader, opts ...Option) *Scanner {
	t.Helper()
	s, err := New(matcher.KMP{}, append([]Option{WithReader(reader)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

// TestScan tests hit collection, omission of zero counts and totals
func TestScan(t *testing.T) {
	reader := corpus.NewMemoryReader(map[string]string{
		"f1.txt": "needle needle",
		"f2.txt": "no match here",
		"f3.txt": "NEEDLE in a haystack",
		"f4.txt": "",
	})

	tests := []struct {
		name      string
		files     []string
		pattern   string
		wantHits  []cluster.Hit
		wantTotal int
	}{
		{
			name:      "basic match",
			files:     []string{"f1.txt", "f2.txt"},
			pattern:   "needle",
			wantHits:  []cluster.Hit{{File: "f1.txt", Count: 2}},
			wantTotal: 2,
		},
		{
			name:      "content and pattern are case normalized",
			files:     []string{"f3.txt", "f1.txt"},
			pattern:   "Needle",
			wantHits:  []cluster.Hit{{File: "f3.txt", Count: 1}, {File: "f1.txt", Count: 2}},
			wantTotal: 3,
		},
		{
			name:      "unreadable file counts zero",
			files:     []string{"missing.txt", "f1.txt"},
			pattern:   "needle",
			wantHits:  []cluster.Hit{{File: "f1.txt", Count: 2}},
			wantTotal: 2,
		},
		{
			name:      "no hits yields empty slice",
			files:     []string{"f2.txt", "f4.txt", "missing.txt"},
			pattern:   "needle",
			wantHits:  []cluster.Hit{},
			wantTotal: 0,
		},
		{
			name:      "empty pattern",
			files:     []string{"f1.txt"},
			pattern:   "",
			wantHits:  []cluster.Hit{},
			wantTotal: 0,
		},
		{
			name:      "no files",
			pattern:   "needle",
			wantHits:  []cluster.Hit{},
			wantTotal: 0,
		},
	}

	s := newTestScanner(t, reader, WithThreads(2))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Scan(context.Background(), tt.files, tt.pattern)
			require.NoError(t, err)
			require.NotNil(t, resp.Hits)
			assert.Equal(t, tt.wantHits, resp.Hits)
			assert.Equal(t, tt.wantTotal, resp.TotalHits)
		})
	}
}

// TestScanAlgorithmsAgree tests that every algorithm yields the same response
func TestScanAlgorithmsAgree(t *testing.T) {
	files := map[string]string{
		"a": "abababab abab",
		"b": "aaaaaaa",
		"c": "xyz",
	}
	names := []string{"a", "b", "c"}
	reader := corpus.NewMemoryReader(files)

	var want cluster.SearchResponse
	for i, name := range matcher.Names() {
		algo, _ := matcher.Lookup(name)
		s, err := New(algo, WithReader(reader), WithThreads(3))
		require.NoError(t, err)

		got, err := s.Scan(context.Background(), names, "abab")
		s.Release()
		require.NoError(t, err)

		if i == 0 {
			want = got
			continue
		}
		assert.Equal(t, want, got, name)
	}
	assert.Equal(t, 3, want.TotalHits)
}

// TestScanInvalidUTF8 tests that undecodable bytes are dropped, not fatal
func TestScanInvalidUTF8(t *testing.T) {
	reader := corpus.NewMemoryReader(map[string]string{
		"bin": "nee\xffdle needle \xfe\xfe",
	})
	s := newTestScanner(t, reader)

	resp, err := s.Scan(context.Background(), []string{"bin"}, "needle")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalHits)
}

// TestScanStats tests the cumulative counters
func TestScanStats(t *testing.T) {
	reader := corpus.NewMemoryReader(map[string]string{"f1": "x x x", "f2": "x"})
	s := newTestScanner(t, reader)

	_, err := s.Scan(context.Background(), []string{"f1", "f2", "gone"}, "x")
	require.NoError(t, err)
	_, err = s.Scan(context.Background(), []string{"f2"}, "x")
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Requests)
	assert.Equal(t, uint64(4), stats.FilesScanned)
	assert.Equal(t, uint64(1), stats.FilesUnreadable)
	assert.Equal(t, uint64(5), stats.Hits)
	assert.Equal(t, matcher.NameKMP, s.Algorithm())
}

// slowReader records how many reads overlap.
type slowReader struct {
	delay   time.Duration
	current atomic.Int32
	peak    atomic.Int32
}

func (r *slowReader) ReadFile(path string) ([]byte, error) {
	n := r.current.Add(1)
	defer r.current.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(r.delay)
	return []byte("hit " + path), nil
}

// TestScanBoundedConcurrency tests that concurrent requests share the pool
func TestScanBoundedConcurrency(t *testing.T) {
	reader := &slowReader{delay: 10 * time.Millisecond}
	s := newTestScanner(t, reader, WithThreads(3))
	assert.Equal(t, 3, s.Threads())

	files := make([]string, 12)
	for i := range files {
		files[i] = fmt.Sprintf("file-%02d", i)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.Scan(context.Background(), files, "hit")
			assert.NoError(t, err)
			assert.Equal(t, len(files), resp.TotalHits)
			assert.Len(t, resp.Hits, len(files))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, reader.peak.Load(), int32(3))
	assert.Greater(t, reader.peak.Load(), int32(1))
}

// TestScanCanceled tests that a done context stops submission
func TestScanCanceled(t *testing.T) {
	s := newTestScanner(t, corpus.NewMemoryReader(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, []string{"a", "b"}, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestScanAfterRelease tests that a released pool reports an error
func TestScanAfterRelease(t *testing.T) {
	s, err := New(nil, WithReader(corpus.NewMemoryReader(map[string]string{"a": "x"})))
	require.NoError(t, err)
	assert.Equal(t, matcher.NameBruteForce, s.Algorithm())
	assert.Equal(t, DefaultThreads, s.Threads())
	s.Release()

	_, err = s.Scan(context.Background(), []string{"a"}, "x")
	assert.Error(t, err)
}
