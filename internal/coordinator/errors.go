package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned for a missing or blank query.
	ErrEmptyQuery = errors.New("missing query parameter ?q=")

	// ErrEmptyCorpus is returned when there are no files to search.
	ErrEmptyCorpus = errors.New("corpus is empty or not mounted")
)

// DispatchError reports the worker call that failed a query.
type DispatchError struct {
	Endpoint  string
	Partition int
	Files     int
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("worker %s (partition %d, %d files): %v", e.Endpoint, e.Partition, e.Files, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
