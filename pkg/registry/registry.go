package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/collector"
)

// ErrUnrecognizedField is returned by Create when no factory is registered
// for the field type.
var ErrUnrecognizedField = errors.New("unrecognized field")

// Factory builds an empty collector; the registry calls Init on it.
type Factory func() collector.Collector

// Registry maps server field type tags to collector factories.
// Safe for concurrent registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// NewDefault creates a registry holding the built-in DaVinci collectors.
func NewDefault() *Registry {
	r := New()
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins registers the collectors shipped with this module.
func RegisterBuiltins(r *Registry) {
	r.Register(collector.NewText, "TEXT")
	r.Register(collector.NewPassword, "PASSWORD", "PASSWORD_VERIFY")
	r.Register(collector.NewSubmit, "SUBMIT_BUTTON")
	r.Register(collector.NewFlowButton, "FLOW_BUTTON", "FLOW_LINK")
	r.Register(collector.NewLabel, "LABEL")
	r.Register(collector.NewSingleSelect, "DROPDOWN", "RADIO")
	r.Register(collector.NewMultiSelect, "CHECKBOX", "COMBOBOX")
}

// Register maps every given type tag to factory.
// If a tag is already registered, it is overwritten.
func (r *Registry) Register(factory Factory, types ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		r.factories[t] = factory
	}
}

// Unregister removes type tags.
func (r *Registry) Unregister(types ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		delete(r.factories, t)
	}
}

// Has reports whether a factory is registered for the type tag.
func (r *Registry) Has(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typ]
	return ok
}

// Types lists the registered type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create looks up the factory by the field "type" and initializes a new
// collector from the field document. The factory itself runs outside the
// lock so plugins may register from inside a factory.
func (r *Registry) Create(field gjson.Result) (collector.Collector, error) {
	typ := field.Get("type").String()

	r.mu.RLock()
	factory, ok := r.factories[typ]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: type %q (key %q)", ErrUnrecognizedField, typ, field.Get("key").String())
	}

	c := factory()
	if c == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrUnrecognizedField, typ)
	}
	c.Init(field)
	return c, nil
}
