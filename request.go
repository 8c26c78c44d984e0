package davinci

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/node"
)

// ErrPayloadMismatch is returned when a collector value is missing from the
// encoded form data.
var ErrPayloadMismatch = errors.New("form value missing from request body")

const (
	eventSubmit = "submit"
	eventAction = "action"
)

// buildRequest serializes a step submission. The body keys are written in a
// fixed order and formData follows collector order. Buttons and links only
// contribute once activated.
func (w *Workflow) buildRequest(n *node.ContinueNode) (domain.Request, error) {
	target, ok := n.Link("next")
	if !ok || target == "" {
		target = w.cfg.continueURL()
	}

	req := domain.NewRequest(http.MethodPost, target)
	for k, v := range w.cfg.Headers {
		req.SetHeader(k, v)
	}
	req.SetHeader("Content-Type", "application/json")
	if tok := n.InteractionToken(); tok != "" {
		req.SetHeader("interactionToken", tok)
	}

	eventType, actionKey := submission(n.Collectors())

	fields := []struct {
		path  string
		value any
	}{
		{"id", n.ServerID()},
		{"eventName", "continue"},
		{"interactionId", n.InteractionID()},
		{"parameters.eventType", eventType},
		{"parameters.data.actionKey", actionKey},
	}
	for _, f := range fields {
		if err := req.Set(f.path, f.value); err != nil {
			return domain.Request{}, err
		}
	}

	form, err := formData(n.Collectors())
	if err != nil {
		return domain.Request{}, err
	}
	if err := req.SetRaw("parameters.data.formData", form.raw); err != nil {
		return domain.Request{}, err
	}
	if err := form.check(req.Get("parameters.data.formData")); err != nil {
		return domain.Request{}, err
	}
	return req, nil
}

// submission picks the event type and action key. An activated flow trigger
// wins over submit buttons; otherwise the activated submit button, or the
// first one, names the action.
func submission(cs []collector.Collector) (eventType, actionKey string) {
	var firstSubmit, activeSubmit string
	for _, c := range cs {
		switch c.(type) {
		case collector.FlowTrigger:
			if collector.Activated(c) {
				return eventAction, c.Key()
			}
		case collector.Submitter:
			if firstSubmit == "" {
				firstSubmit = c.Key()
			}
			if activeSubmit == "" && collector.Activated(c) {
				activeSubmit = c.Key()
			}
		}
	}
	if activeSubmit != "" {
		return eventSubmit, activeSubmit
	}
	return eventSubmit, firstSubmit
}

type formField struct {
	key string
	raw []byte
}

// encodedForm is the formData object in collector order. A repeated key
// keeps its first position and its last value.
type encodedForm struct {
	fields []formField
	raw    []byte
}

func formData(cs []collector.Collector) (encodedForm, error) {
	var form encodedForm
	index := make(map[string]int)
	for _, c := range cs {
		v, ok := c.(collector.Valuer)
		if !ok || c.Key() == "" {
			continue
		}
		if collector.OutputOnly(c) && !collector.Activated(c) {
			continue
		}
		raw, err := marshal(v.Value())
		if err != nil {
			return encodedForm{}, fmt.Errorf("field %q: %w", c.Key(), err)
		}
		if i, ok := index[c.Key()]; ok {
			form.fields[i].raw = raw
			continue
		}
		index[c.Key()] = len(form.fields)
		form.fields = append(form.fields, formField{key: c.Key(), raw: raw})
	}

	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range form.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := marshal(f.key)
		if err != nil {
			return encodedForm{}, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(f.raw)
	}
	b.WriteByte('}')
	form.raw = b.Bytes()
	return form, nil
}

// check verifies that every field landed in the body, in order.
func (f encodedForm) check(got gjson.Result) error {
	i := 0
	var err error
	got.ForEach(func(k, v gjson.Result) bool {
		if i >= len(f.fields) || k.String() != f.fields[i].key {
			err = fmt.Errorf("%w: unexpected key %q", ErrPayloadMismatch, k.String())
			return false
		}
		i++
		return true
	})
	if err != nil {
		return err
	}
	if i != len(f.fields) {
		return fmt.Errorf("%w: %q", ErrPayloadMismatch, f.fields[i].key)
	}
	return nil
}

// marshal encodes v without HTML escaping.
func marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}
