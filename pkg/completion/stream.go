package completion

import (
	"errors"
	"fmt"
)

// ErrDone is returned by Stream.Next when the stream has ended normally.
var ErrDone = errors.New("completion: stream done")

// EventType enumerates the stream events the run state machine consumes.
type EventType int

const (
	// EventTextDelta carries a fragment of generated text. Used only for
	// progress reporting; the authoritative text comes from the transcript.
	EventTextDelta EventType = iota

	// EventToolCall reports that the model started a tool invocation.
	EventToolCall

	// EventStepDone reports a finished run step with its terminal status.
	EventStepDone

	// EventMessageDone reports a finished message, possibly flagged
	// incomplete because of a length or stop condition.
	EventMessageDone
)

// Event is one vendor-agnostic stream event.
type Event struct {
	Type EventType

	// Text is the delta fragment for EventTextDelta.
	Text string

	// Tool names the invoked tool for EventToolCall.
	Tool string

	// Step carries the failure detail for EventStepDone when the remote
	// side reports a failed step; nil otherwise.
	Step *StepError

	// Incomplete and IncompleteReason describe an EventMessageDone whose
	// message was cut off before completion.
	Incomplete       bool
	IncompleteReason string
}

// Stream yields generation events until ErrDone or a transport error.
type Stream interface {
	Next() (*Event, error)
	Close() error
}

// StepError is a hard generation failure reported by the remote service for
// one run step, carrying the remote error code and message.
type StepError struct {
	Code    string
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("completion: run step failed: %s: %s", e.Code, e.Message)
}
