package collector

import (
	"fmt"
	"slices"
)

// Option is one choice of a select field.
type Option struct {
	Label string
	Value string
}

func parseOptions(d *Descriptor) []Option {
	var opts []Option
	for _, o := range d.raw.Get("options").Array() {
		opt := Option{Label: o.Get("label").String(), Value: o.Get("value").String()}
		if opt.Value == "" {
			opt.Value = o.String()
		}
		opts = append(opts, opt)
	}
	return opts
}

func hasOption(opts []Option, value string) bool {
	return slices.ContainsFunc(opts, func(o Option) bool { return o.Value == value })
}

// SingleSelect picks one option (DROPDOWN, RADIO).
type SingleSelect struct {
	Descriptor
	value string
}

// NewSingleSelect is the registry factory for DROPDOWN and RADIO fields.
func NewSingleSelect() Collector { return &SingleSelect{} }

func (s *SingleSelect) Options() []Option { return parseOptions(&s.Descriptor) }

func (s *SingleSelect) Value() any { return s.value }

func (s *SingleSelect) SetValue(v any) { s.value = stringify(v) }

func (s *SingleSelect) Validate() []ValidationError {
	if errs := validateString(&s.Descriptor, s.value); errs != nil || s.value == "" {
		return errs
	}
	opts := s.Options()
	if len(opts) == 0 || hasOption(opts, s.value) {
		return nil
	}
	return []ValidationError{{
		Key:     s.key,
		Kind:    KindInvalidOption,
		Message: fmt.Sprintf("%q is not a valid option", s.value),
	}}
}

// MultiSelect picks any number of options (CHECKBOX, COMBOBOX).
type MultiSelect struct {
	Descriptor
	values []string
}

// NewMultiSelect is the registry factory for CHECKBOX and COMBOBOX fields.
func NewMultiSelect() Collector { return &MultiSelect{} }

func (m *MultiSelect) Options() []Option { return parseOptions(&m.Descriptor) }

func (m *MultiSelect) Value() any {
	if m.values == nil {
		return []string{}
	}
	return slices.Clone(m.values)
}

// SetValue accepts a []string, a []any or a single string.
func (m *MultiSelect) SetValue(v any) {
	switch x := v.(type) {
	case nil:
		m.values = nil
	case []string:
		m.values = slices.Clone(x)
	case []any:
		m.values = make([]string, 0, len(x))
		for _, item := range x {
			m.values = append(m.values, stringify(item))
		}
	default:
		m.values = []string{stringify(x)}
	}
}

func (m *MultiSelect) Validate() []ValidationError {
	if len(m.values) == 0 {
		if m.required {
			return []ValidationError{{Key: m.key, Kind: KindRequired, Message: requiredMessage(&m.Descriptor)}}
		}
		return nil
	}
	opts := m.Options()
	if len(opts) == 0 {
		return nil
	}
	var errs []ValidationError
	for _, v := range m.values {
		if !hasOption(opts, v) {
			errs = append(errs, ValidationError{
				Key:     m.key,
				Kind:    KindInvalidOption,
				Message: fmt.Sprintf("%q is not a valid option", v),
			})
		}
	}
	return errs
}
