package node

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/internal/logging"
	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/registry"
)

// UnknownPolicy decides what the parser does with fields whose type has no
// registered collector.
type UnknownPolicy int

const (
	// DropUnknown omits the field, logs a diagnostic and records its key in
	// ContinueNode.Unrecognized.
	DropUnknown UnknownPolicy = iota
	// KeepUnknown inserts a *collector.Unrecognized placeholder in place.
	KeepUnknown
)

// ParseUnknownPolicy maps the configuration strings "drop" and "keep".
func ParseUnknownPolicy(s string) (UnknownPolicy, bool) {
	switch s {
	case "", "drop":
		return DropUnknown, true
	case "keep":
		return KeepUnknown, true
	}
	return DropUnknown, false
}

// Env carries the workflow collaborators bound into parsed nodes.
type Env struct {
	Flow      collector.Flow
	Navigator Navigator

	// Prior is the step whose submission produced the response being
	// classified. It becomes the retry target of an ErrorNode.
	Prior *ContinueNode
}

// Parser turns one step document into a ContinueNode.
type Parser struct {
	registry *registry.Registry
	policy   UnknownPolicy
	logger   *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithUnknownPolicy sets the policy for unregistered field types.
func WithUnknownPolicy(p UnknownPolicy) ParserOption {
	return func(ps *Parser) {
		ps.policy = p
	}
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(ps *Parser) {
		ps.logger = logger
	}
}

// NewParser creates a parser backed by the given registry.
func NewParser(r *registry.Registry, opts ...ParserOption) *Parser {
	p := &Parser{
		registry: r,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse builds a ContinueNode from a step document. It never fails: a
// document without a fields array yields a node with no collectors.
func (p *Parser) Parse(input gjson.Result, env Env) *ContinueNode {
	n := &ContinueNode{
		id:               uuid.NewString(),
		serverID:         input.Get("id").String(),
		interactionID:    input.Get("interactionId").String(),
		interactionToken: input.Get("interactionToken").String(),
		eventName:        input.Get("eventName").String(),
		name:             input.Get("form.name").String(),
		description:      input.Get("form.description").String(),
		links:            make(map[string]string),
		input:            input,
		nav:              env.Navigator,
	}

	input.Get("_links").ForEach(func(name, link gjson.Result) bool {
		if href := link.Get("href"); href.Exists() {
			n.links[name.String()] = href.String()
		}
		return true
	})

	defaults := make(map[string]gjson.Result)
	input.Get("formData.value").ForEach(func(key, value gjson.Result) bool {
		defaults[key.String()] = value
		return true
	})

	fields := input.Get("form.components.fields")
	if !fields.IsArray() {
		if fields.Exists() {
			p.logger.Warn("step fields is not an array", "step_id", n.id)
		}
		return n
	}

	ctx := collector.Context{StepID: n.id, Input: input, Flow: env.Flow}
	for _, field := range fields.Array() {
		c, err := p.registry.Create(field)
		if err != nil {
			if !errors.Is(err, registry.ErrUnrecognizedField) {
				p.logger.Error("failed to create collector", "step_id", n.id, "err", err)
				continue
			}
			key := field.Get("key").String()
			if p.policy == DropUnknown {
				p.logger.Warn("dropping unrecognized field",
					"step_id", n.id,
					"type", field.Get("type").String(),
					"key", key,
				)
				n.unrecognized = append(n.unrecognized, key)
				continue
			}
			c = collector.NewUnrecognized()
			c.Init(field)
		}

		if v, ok := c.(collector.Valuer); ok {
			if def, ok := defaults[c.Key()]; ok && c.Key() != "" {
				v.SetValue(def.Value())
			}
		}

		if aware, ok := c.(collector.ContextAware); ok {
			aware.SetContext(ctx)
		}

		n.collectors = append(n.collectors, c)
	}

	return n
}
