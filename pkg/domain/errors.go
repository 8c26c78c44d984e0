package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no token is stored under a key.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotStarted is returned when the workflow is used before Start.
	ErrNotStarted = errors.New("workflow not started")

	// ErrStaleNode is returned when a node that is no longer current is submitted.
	ErrStaleNode = errors.New("node is not the current node of the workflow")

	// ErrStepInFlight is returned when a step is submitted while a previous
	// submission of the same step has not completed.
	ErrStepInFlight = errors.New("step submission already in flight")

	// ErrTerminalNode is returned when a terminal node is asked to advance.
	ErrTerminalNode = errors.New("node is terminal")
)

// TransportError reports a connectivity failure. Retrying Start or Next is
// always safe.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a response that could not be classified. The
// workflow stays at its last good node.
type ProtocolError struct {
	Status int
	Reason string
	Body   []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s (status %d)", e.Reason, e.Status)
}

// FlowError is the server declared, recoverable error of an ErrorNode.
type FlowError struct {
	Status  int
	Code    string
	Message string
}

func (e *FlowError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("flow error %s: %s", e.Code, e.Message)
	}
	return "flow error: " + e.Message
}

// FlowFailure is the server declared, unrecoverable failure of a FailureNode.
type FlowFailure struct {
	Status  int
	Message string
}

func (e *FlowFailure) Error() string {
	return fmt.Sprintf("flow failure (status %d): %s", e.Status, e.Message)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
