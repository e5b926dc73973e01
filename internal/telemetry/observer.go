// Package telemetry carries request lifecycle events from the search core to
// whatever records them. The core only sees the Observer interface; the
// Prometheus-backed Recorder is wired in by the binaries.
package telemetry

import "time"

// Stage is the point in a request's life an Event reports.
type Stage int

const (
	// StageStarted is emitted once a request passed validation.
	StageStarted Stage = iota
	// StageFinished is emitted exactly once per started request, with Err
	// set when the request failed.
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageStarted:
		return "started"
	case StageFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event describes one step of one search request.
type Event struct {
	Stage    Stage
	Query    string
	Files    int           // files covered by the request
	Hits     int           // total hits, StageFinished only
	Duration time.Duration // StageFinished only
	Err      error
}

// Failed reports whether the event closes a failed request.
func (e Event) Failed() bool {
	return e.Stage == StageFinished && e.Err != nil
}

// Observer receives request events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }

// Nop discards every event.
type Nop struct{}

// Observe implements Observer.
func (Nop) Observe(Event) {}

// Multi fans every event out to each observer in order.
type Multi []Observer

// Observe implements Observer.
func (m Multi) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}
