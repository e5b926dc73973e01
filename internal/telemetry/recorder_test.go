package telemetry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// TestRecorderExportsMetrics tests the exposition of request metrics
func TestRecorderExportsMetrics(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{
		Namespace:   "coord",
		LatencyName: "total_latency_seconds",
		Info:        map[string]string{"workers": "2"},
	})
	require.NoError(t, err)

	r.Observe(Event{Stage: StageStarted, Query: "needle"})
	r.Observe(Event{Stage: StageFinished, Query: "needle", Duration: 20 * time.Millisecond, Hits: 2})
	r.Observe(Event{Stage: StageStarted, Query: "hay"})
	r.Observe(Event{Stage: StageFinished, Query: "hay", Err: errors.New("worker down")})
	r.Observe(Event{Stage: StageStarted, Query: "pending"})

	body := scrape(t, r)
	assert.Contains(t, body, "coord_requests_total 3")
	assert.Contains(t, body, "coord_requests_errors 1")
	assert.Contains(t, body, "coord_inflight 1")
	assert.Contains(t, body, "coord_total_latency_seconds_count 2")
	assert.Contains(t, body, `coord_info{workers="2"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

// TestRecorderConstLabels tests that worker metrics carry the algorithm label
func TestRecorderConstLabels(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{
		Namespace: "worker",
		Labels:    map[string]string{"algorithm": "kmp"},
		Info:      map[string]string{"algorithm": "kmp"},
	})
	require.NoError(t, err)

	r.Observe(Event{Stage: StageStarted, Query: "x"})
	r.Observe(Event{Stage: StageFinished, Duration: time.Millisecond})

	body := scrape(t, r)
	assert.Contains(t, body, `worker_requests_total{algorithm="kmp"} 1`)
	assert.Contains(t, body, `worker_latency_seconds_count{algorithm="kmp"} 1`)
	assert.Contains(t, body, `worker_inflight{algorithm="kmp"} 0`)
}

// TestRecorderSnapshot tests counters and top query ordering
func TestRecorderSnapshot(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{Namespace: "coord"})
	require.NoError(t, err)

	for _, q := range []string{"b", "a", "c", "a", "c", "c", ""} {
		r.Observe(Event{Stage: StageStarted, Query: q})
		r.Observe(Event{Stage: StageFinished, Query: q})
	}
	r.Observe(Event{Stage: StageFinished, Err: errors.New("boom")})

	snap := r.Snapshot()
	assert.Equal(t, int64(7), snap.Requests)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, []QueryCount{{"c", 3}, {"a", 2}, {"b", 1}}, snap.TopQueries)
}

// TestRecorderTopQueriesBounded tests that the LRU evicts old patterns
func TestRecorderTopQueriesBounded(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{Namespace: "coord", TopQueries: 3})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		r.Observe(Event{Stage: StageStarted, Query: fmt.Sprintf("q%d", i)})
	}
	snap := r.Snapshot()
	require.Len(t, snap.TopQueries, 3)
	for _, qc := range snap.TopQueries {
		assert.Contains(t, []string{"q7", "q8", "q9"}, qc.Query)
	}
}

// TestRecorderConcurrent tests that concurrent observation is race free
func TestRecorderConcurrent(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{Namespace: "worker"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i%5)
			r.Observe(Event{Stage: StageStarted, Query: q})
			r.Observe(Event{Stage: StageFinished, Query: q})
		}(i)
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Equal(t, int64(50), snap.Requests)
	assert.Equal(t, int64(0), snap.InFlight)
	require.Len(t, snap.TopQueries, 5)
	assert.Equal(t, int64(10), snap.TopQueries[0].Count)
}

// TestObserverHelpers tests the Nop, func and multi observers
func TestObserverHelpers(t *testing.T) {
	var got []Stage
	f := ObserverFunc(func(e Event) { got = append(got, e.Stage) })

	Multi{Nop{}, f, f}.Observe(Event{Stage: StageFinished, Err: errors.New("x")})
	assert.Equal(t, []Stage{StageFinished, StageFinished}, got)

	assert.True(t, Event{Stage: StageFinished, Err: errors.New("x")}.Failed())
	assert.False(t, Event{Stage: StageStarted, Err: errors.New("x")}.Failed())
	assert.Equal(t, "started", StageStarted.String())
	assert.Equal(t, "finished", StageFinished.String())
	assert.Equal(t, "unknown", Stage(9).String())
}
