package collector

// Submit is the button that submits the form. Its value is set by the
// caller when the button is activated.
type Submit struct {
	Descriptor
	value string
}

// NewSubmit is the registry factory for SUBMIT_BUTTON fields.
func NewSubmit() Collector { return &Submit{} }

func (s *Submit) Submits() {}

func (s *Submit) Value() any { return s.value }

func (s *Submit) SetValue(v any) { s.value = stringify(v) }

// Click activates the button.
func (s *Submit) Click() { s.value = s.key }

// FlowButton is a button or link that moves the flow to another branch
// (FLOW_BUTTON, FLOW_LINK).
type FlowButton struct {
	Descriptor
	value string
}

// NewFlowButton is the registry factory for FLOW_BUTTON and FLOW_LINK fields.
func NewFlowButton() Collector { return &FlowButton{} }

func (f *FlowButton) TriggersFlow() {}

func (f *FlowButton) Value() any { return f.value }

func (f *FlowButton) SetValue(v any) { f.value = stringify(v) }

// Click activates the trigger.
func (f *FlowButton) Click() { f.value = f.key }

// IsLink reports whether the server asked for link rendering.
func (f *FlowButton) IsLink() bool { return f.typ == "FLOW_LINK" }

// Activated reports whether an output-only collector carries a value.
func Activated(c Collector) bool {
	v, ok := c.(Valuer)
	if !ok {
		return false
	}
	switch x := v.Value().(type) {
	case nil:
		return false
	case string:
		return x != ""
	case []string:
		return len(x) > 0
	default:
		return true
	}
}

// OutputOnly reports whether c is a button, a link or read-only content.
func OutputOnly(c Collector) bool {
	switch c.(type) {
	case Submitter, FlowTrigger:
		return true
	}
	_, isValuer := c.(Valuer)
	return !isValuer
}
