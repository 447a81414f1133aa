package cluster

import (
	"errors"
	"fmt"
)

var ErrNoWorkersAvailable = errors.New("no workers available")

// WorkerUnavailableError means the worker could not be reached, as opposed
// to the command failing on it. Work is resubmitted elsewhere on this error.
type WorkerUnavailableError struct {
	WorkerID string
	Err      error
}

func (e *WorkerUnavailableError) Error() string {
	return fmt.Sprintf("worker %s unavailable: %v", e.WorkerID, e.Err)
}

func (e *WorkerUnavailableError) Unwrap() error {
	return e.Err
}
