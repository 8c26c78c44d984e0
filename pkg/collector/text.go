package collector

import "fmt"

// Text collects a single line of text.
type Text struct {
	Descriptor
	value string
}

// NewText is the registry factory for TEXT fields.
func NewText() Collector { return &Text{} }

func (t *Text) Value() any { return t.value }

// String returns the current value.
func (t *Text) String() string { return t.value }

// SetValue stores v as text. Non string values are formatted.
func (t *Text) SetValue(v any) {
	t.value = stringify(v)
}

func (t *Text) Validate() []ValidationError {
	return validateString(&t.Descriptor, t.value)
}

// Label is read-only content, never submitted.
type Label struct {
	Descriptor
}

// NewLabel is the registry factory for LABEL fields.
func NewLabel() Collector { return &Label{} }

// Content returns the label text, which DaVinci sends as "content".
func (l *Label) Content() string {
	if c := l.raw.Get("content"); c.Exists() {
		return c.String()
	}
	return l.label
}

// Unrecognized is the placeholder kept for unknown field types when the
// parser is configured to keep them.
type Unrecognized struct {
	Descriptor
}

// NewUnrecognized builds a placeholder collector.
func NewUnrecognized() Collector { return &Unrecognized{} }

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
