package completion

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by Run before a successful Init.
	ErrNotInitialized = errors.New("completion: session not initialized")

	// ErrNoMessage is returned when no assistant message exists at the
	// requested context offset.
	ErrNoMessage = errors.New("completion: no assistant message at offset")

	// ErrIndexBuildTimeout is returned when the knowledge index does not
	// finish building within the configured wait.
	ErrIndexBuildTimeout = errors.New("completion: knowledge index build timed out")
)

// InitError reports which Init step exhausted its retry budget.
type InitError struct {
	Step string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("completion: init %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ContinuationError reports that the model kept stopping early and the
// continuation budget ran out. Distinct from transport failures: the calls
// all succeeded, the output just never completed.
type ContinuationError struct {
	Attempts int
}

func (e *ContinuationError) Error() string {
	return fmt.Sprintf("completion: response still incomplete after %d continuation attempts", e.Attempts)
}
