package node

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/domain"
)

// Navigator submits a step. The workflow implements it.
type Navigator interface {
	Next(ctx context.Context, n *ContinueNode) (Node, error)
}

// ContinueNode is a non-terminal step: an ordered set of collectors plus the
// step scoped context the server sent with them.
type ContinueNode struct {
	id               string
	serverID         string
	interactionID    string
	interactionToken string
	eventName        string
	name             string
	description      string
	links            map[string]string
	collectors       []collector.Collector
	unrecognized     []string
	input            gjson.Result

	nav      Navigator
	inFlight atomic.Bool
}

func (*ContinueNode) Kind() Kind              { return KindContinue }
func (*ContinueNode) Terminal() bool          { return false }
func (n *ContinueNode) Input() gjson.Result   { return n.input }
func (*ContinueNode) sealed()                 {}
func (n *ContinueNode) ID() string            { return n.id }
func (n *ContinueNode) ServerID() string      { return n.serverID }
func (n *ContinueNode) InteractionID() string { return n.interactionID }
func (n *ContinueNode) EventName() string     { return n.eventName }
func (n *ContinueNode) Name() string          { return n.name }
func (n *ContinueNode) Description() string   { return n.description }

// InteractionToken is the per-interaction secret the server expects back.
func (n *ContinueNode) InteractionToken() string { return n.interactionToken }

// Collectors returns the collectors in server field order. The slice is a
// copy; the collectors are shared.
func (n *ContinueNode) Collectors() []collector.Collector {
	return append([]collector.Collector(nil), n.collectors...)
}

// Unrecognized lists the keys of fields dropped because their type is not
// registered.
func (n *ContinueNode) Unrecognized() []string { return n.unrecognized }

// Link returns the href of a named action link such as "next".
func (n *ContinueNode) Link(name string) (string, bool) {
	href, ok := n.links[name]
	return href, ok
}

// Collector finds the first collector with the given key.
func (n *ContinueNode) Collector(key string) (collector.Collector, bool) {
	for _, c := range n.collectors {
		if c.Key() == key {
			return c, true
		}
	}
	return nil, false
}

// SetValue sets the value of the collector with the given key.
func (n *ContinueNode) SetValue(key string, v any) error {
	c, ok := n.Collector(key)
	if !ok {
		return fmt.Errorf("no collector with key %q", key)
	}
	valuer, ok := c.(collector.Valuer)
	if !ok {
		return fmt.Errorf("collector %q (%s) does not hold a value", key, c.Type())
	}
	valuer.SetValue(v)
	return nil
}

// Validate runs every collector validator and groups the messages by key.
// It returns nil when all collectors are valid.
func (n *ContinueNode) Validate() map[string][]string {
	return collector.Messages(n.ValidationErrors())
}

// ValidationErrors is Validate without grouping.
func (n *ContinueNode) ValidationErrors() []collector.ValidationError {
	var errs []collector.ValidationError
	for _, c := range n.collectors {
		if v, ok := c.(collector.Validator); ok {
			errs = append(errs, v.Validate()...)
		}
	}
	return errs
}

// Next submits the step and returns the following node.
func (n *ContinueNode) Next(ctx context.Context) (Node, error) {
	if n.nav == nil {
		return nil, domain.ErrNotStarted
	}
	return n.nav.Next(ctx, n)
}

// Acquire marks the step as in flight. It returns false when another
// submission of the step is still running.
func (n *ContinueNode) Acquire() bool {
	return n.inFlight.CompareAndSwap(false, true)
}

// Release clears the in-flight mark.
func (n *ContinueNode) Release() {
	n.inFlight.Store(false)
}

// Close releases the collectors once the step has been left behind. Closer
// collectors wipe their values. Calling it again is harmless.
func (n *ContinueNode) Close() {
	for _, c := range n.collectors {
		if closer, ok := c.(collector.Closer); ok {
			closer.Close()
		}
	}
}
