package node

import (
	"sync/atomic"

	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/domain"
)

// Kind tags the node variants.
type Kind string

const (
	KindContinue Kind = "continue"
	KindError    Kind = "error"
	KindFailure  Kind = "failure"
	KindSuccess  Kind = "success"
)

// Node is the classified outcome of one round trip. The set of variants is
// closed: *ContinueNode, *ErrorNode, *FailureNode and *SuccessNode.
type Node interface {
	Kind() Kind
	// Terminal reports whether the node ends the current attempt.
	Terminal() bool
	// Input is the raw response document the node was built from.
	Input() gjson.Result
	sealed()
}

// FieldError is a server reported error attached to one field.
type FieldError struct {
	Key     string
	Message string
}

// ErrorNode is a server declared, recoverable error. The caller may restart
// with Start or resubmit the prior step after correcting values.
type ErrorNode struct {
	status  int
	code    string
	message string
	details []FieldError
	input   gjson.Result
	prior   *ContinueNode
}

func (*ErrorNode) Kind() Kind            { return KindError }
func (*ErrorNode) Terminal() bool        { return true }
func (e *ErrorNode) Input() gjson.Result { return e.input }
func (*ErrorNode) sealed()               {}

// Message is the server message, verbatim.
func (e *ErrorNode) Message() string { return e.message }

// Status is the HTTP status of the response.
func (e *ErrorNode) Status() int { return e.status }

// Code is the server error code, if any.
func (e *ErrorNode) Code() string { return e.code }

// Details lists per-field errors reported by the server.
func (e *ErrorNode) Details() []FieldError { return e.details }

// Retry returns the step that produced this error, so it can be corrected
// and submitted again. It is nil when the error came from Start.
func (e *ErrorNode) Retry() *ContinueNode { return e.prior }

// Err returns the error as a FlowError value.
func (e *ErrorNode) Err() error {
	return &domain.FlowError{Status: e.status, Code: e.code, Message: e.message}
}

// FailureNode is a server declared, unrecoverable failure.
type FailureNode struct {
	status  int
	message string
	input   gjson.Result
}

func (*FailureNode) Kind() Kind            { return KindFailure }
func (*FailureNode) Terminal() bool        { return true }
func (f *FailureNode) Input() gjson.Result { return f.input }
func (*FailureNode) sealed()               {}

func (f *FailureNode) Message() string { return f.message }
func (f *FailureNode) Status() int     { return f.status }

// Err returns the failure as a FlowFailure value.
func (f *FailureNode) Err() error {
	return &domain.FlowFailure{Status: f.status, Message: f.message}
}

// SuccessNode ends the flow and carries the authenticated user.
type SuccessNode struct {
	user    *domain.User
	input   gjson.Result
	revoked atomic.Bool
}

func (*SuccessNode) Kind() Kind            { return KindSuccess }
func (*SuccessNode) Terminal() bool        { return true }
func (s *SuccessNode) Input() gjson.Result { return s.input }
func (*SuccessNode) sealed()               {}

// User returns the authenticated handle, or nil once the session has been
// logged out.
func (s *SuccessNode) User() *domain.User {
	if s.revoked.Load() {
		return nil
	}
	return s.user.Clone()
}

// Revoke detaches the user handle from the node.
func (s *SuccessNode) Revoke() { s.revoked.Store(true) }

// NewErrorNode builds an ErrorNode outside of classification, which hosts and
// tests use to synthesize outcomes.
func NewErrorNode(status int, message string, prior *ContinueNode) *ErrorNode {
	return &ErrorNode{status: status, message: message, prior: prior}
}

// NewSuccessNode builds a SuccessNode for a known user.
func NewSuccessNode(user *domain.User) *SuccessNode {
	return &SuccessNode{user: user}
}
