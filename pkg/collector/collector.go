package collector

import (
	"context"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/domain"
)

// Collector is one field of a step. Every collector carries the immutable
// descriptor fields; the optional capabilities below are discovered with
// type assertions.
type Collector interface {
	ID() string
	Type() string
	Key() string
	Label() string
	Required() bool

	// Init populates the descriptor from the server field document. Only the
	// first call has an effect.
	Init(field gjson.Result)
}

// Valuer is implemented by collectors that carry a caller supplied value.
type Valuer interface {
	Collector
	Value() any
	SetValue(v any)
}

// Submitter marks the field whose activation submits the form.
type Submitter interface {
	Valuer
	Submits()
}

// FlowTrigger marks a field whose activation branches the flow.
type FlowTrigger interface {
	Valuer
	TriggersFlow()
}

// Validator is implemented by collectors with client side rules.
type Validator interface {
	Validate() []ValidationError
}

// ContextAware collectors receive the owning step context at parse time.
type ContextAware interface {
	SetContext(c Context)
}

// Overrider is implemented by plugin collectors that replace the generic
// outbound request with their own resume request.
type Overrider interface {
	ResumeRequest() (domain.Request, bool)
}

// Closer collectors are closed once their step has been submitted.
type Closer interface {
	Close()
}

// Flow is the view of the workflow handed to ContextAware collectors.
type Flow interface {
	// Send executes an auxiliary request through the workflow transport,
	// bypassing the interceptor chain and without changing the current node.
	Send(ctx context.Context, req domain.Request) (domain.Response, error)

	// Step resolves a step by id. It returns false once the step is no
	// longer the current node of the workflow.
	Step(id string) (Step, bool)
}

// Step is the read-only view of an owning step.
type Step interface {
	ID() string
	Collectors() []Collector
	Input() gjson.Result
}

// Context is the step context injected into ContextAware collectors. It holds
// a non-owning, id based reference to the step.
type Context struct {
	StepID string
	Input  gjson.Result
	Flow   Flow
}

// Step resolves the owning step through the workflow.
func (c Context) Step() (Step, bool) {
	if c.Flow == nil || c.StepID == "" {
		return nil, false
	}
	return c.Flow.Step(c.StepID)
}

// Validation is the server declared pattern rule of a field.
type Validation struct {
	Regex        string
	ErrorMessage string
}

// Descriptor holds the identity and constraints shared by all collectors.
type Descriptor struct {
	id         string
	typ        string
	key        string
	label      string
	required   bool
	validation *Validation
	raw        gjson.Result
	ready      bool
}

func (d *Descriptor) ID() string     { return d.id }
func (d *Descriptor) Type() string   { return d.typ }
func (d *Descriptor) Key() string    { return d.key }
func (d *Descriptor) Label() string  { return d.label }
func (d *Descriptor) Required() bool { return d.required }

// Validation returns the pattern rule, if any.
func (d *Descriptor) Validation() *Validation { return d.validation }

// Raw returns the field document the collector was built from.
func (d *Descriptor) Raw() gjson.Result { return d.raw }

// Init fills the descriptor once.
func (d *Descriptor) Init(field gjson.Result) {
	if d.ready {
		return
	}
	d.ready = true
	d.id = uuid.NewString()
	d.raw = field
	d.typ = field.Get("type").String()
	d.key = field.Get("key").String()
	d.label = field.Get("label").String()
	d.required = field.Get("required").Bool()

	if v := field.Get("validation"); v.Exists() {
		d.validation = &Validation{
			Regex:        v.Get("regex").String(),
			ErrorMessage: v.Get("errorMessage").String(),
		}
	}
}
