package collector

import (
	"fmt"
	"regexp"
	"sync"
)

// Kind classifies a validation failure.
type Kind string

const (
	// KindRequired means a required value is empty.
	KindRequired Kind = "required"
	// KindPatternMismatch means the value does not match the field regex.
	KindPatternMismatch Kind = "patternMismatch"
	// KindPolicy means a password policy rule is not met.
	KindPolicy Kind = "policy"
	// KindInvalidOption means a select value is not one of the options.
	KindInvalidOption Kind = "invalidOption"
)

// ValidationError is a per-field client side validation failure.
type ValidationError struct {
	Key     string
	Kind    Kind
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s: %s", e.Key, e.Kind, e.Message)
}

// Messages groups validation errors by field key, preserving the order in
// which they were reported.
func Messages(errs []ValidationError) map[string][]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for _, e := range errs {
		out[e.Key] = append(out[e.Key], e.Message)
	}
	return out
}

var patterns sync.Map // regex source -> *regexp.Regexp (nil when invalid)

// compile caches compiled server patterns. Patterns that RE2 cannot compile
// are treated as absent.
func compile(expr string) *regexp.Regexp {
	if expr == "" {
		return nil
	}
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		re = nil
	}
	patterns.Store(expr, re)
	return re
}

// validateString applies the required and pattern rules of d to value.
func validateString(d *Descriptor, value string) []ValidationError {
	if value == "" {
		if d.required {
			return []ValidationError{{
				Key:     d.key,
				Kind:    KindRequired,
				Message: requiredMessage(d),
			}}
		}
		return nil
	}

	if d.validation == nil {
		return nil
	}
	re := compile(d.validation.Regex)
	if re == nil || re.MatchString(value) {
		return nil
	}
	msg := d.validation.ErrorMessage
	if msg == "" {
		msg = "value does not match the expected format"
	}
	return []ValidationError{{Key: d.key, Kind: KindPatternMismatch, Message: msg}}
}

func requiredMessage(d *Descriptor) string {
	name := d.label
	if name == "" {
		name = d.key
	}
	return name + " is required"
}
