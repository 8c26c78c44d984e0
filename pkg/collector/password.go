package collector

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// PasswordPolicy is the server side policy DaVinci sends next to the form.
type PasswordPolicy struct {
	MinLength             int
	MaxLength             int
	MinUniqueCharacters   int
	MaxRepeatedCharacters int

	// MinCharacters maps a character set to the minimum number of its
	// characters the password must contain.
	MinCharacters map[string]int
}

// ParsePasswordPolicy reads a passwordPolicy document. It returns nil when
// the document does not exist.
func ParsePasswordPolicy(doc gjson.Result) *PasswordPolicy {
	if !doc.Exists() || !doc.IsObject() {
		return nil
	}
	p := &PasswordPolicy{
		MinLength:             int(doc.Get("length.min").Int()),
		MaxLength:             int(doc.Get("length.max").Int()),
		MinUniqueCharacters:   int(doc.Get("minUniqueCharacters").Int()),
		MaxRepeatedCharacters: int(doc.Get("maxRepeatedCharacters").Int()),
	}
	doc.Get("minCharacters").ForEach(func(set, min gjson.Result) bool {
		if p.MinCharacters == nil {
			p.MinCharacters = make(map[string]int)
		}
		p.MinCharacters[set.String()] = int(min.Int())
		return true
	})
	return p
}

// Check returns one message per violated rule, in a stable order.
func (p *PasswordPolicy) Check(password string) []string {
	var msgs []string
	n := utf8.RuneCountInString(password)
	if p.MinLength > 0 && n < p.MinLength {
		msgs = append(msgs, fmt.Sprintf("must be at least %d characters long", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		msgs = append(msgs, fmt.Sprintf("must be at most %d characters long", p.MaxLength))
	}
	if p.MinUniqueCharacters > 0 && uniqueRunes(password) < p.MinUniqueCharacters {
		msgs = append(msgs, fmt.Sprintf("must contain at least %d unique characters", p.MinUniqueCharacters))
	}
	if p.MaxRepeatedCharacters > 0 && longestRun(password) > p.MaxRepeatedCharacters {
		msgs = append(msgs, fmt.Sprintf("must not repeat a character more than %d times in a row", p.MaxRepeatedCharacters))
	}
	for _, set := range slices.Sorted(maps.Keys(p.MinCharacters)) {
		min := p.MinCharacters[set]
		if countIn(password, set) < min {
			msgs = append(msgs, fmt.Sprintf("must contain at least %d of %q", min, set))
		}
	}
	return msgs
}

// Password collects a secret. It reads the step's passwordPolicy, if any,
// and wipes its value once the step has been submitted.
type Password struct {
	Descriptor
	value  string
	policy *PasswordPolicy
}

// NewPassword is the registry factory for PASSWORD and PASSWORD_VERIFY fields.
func NewPassword() Collector { return &Password{} }

func (p *Password) Value() any { return p.value }

func (p *Password) SetValue(v any) { p.value = stringify(v) }

// SetContext picks the policy from the step input, falling back to a policy
// embedded in the field itself.
func (p *Password) SetContext(c Context) {
	p.policy = ParsePasswordPolicy(c.Input.Get("passwordPolicy"))
	if p.policy == nil {
		p.policy = ParsePasswordPolicy(p.raw.Get("passwordPolicy"))
	}
}

// Policy returns the policy in effect, or nil.
func (p *Password) Policy() *PasswordPolicy { return p.policy }

// Verify reports whether the field asks for confirmation.
func (p *Password) Verify() bool { return p.typ == "PASSWORD_VERIFY" }

func (p *Password) Validate() []ValidationError {
	errs := validateString(&p.Descriptor, p.value)
	if len(errs) > 0 || p.value == "" || p.policy == nil {
		return errs
	}
	for _, msg := range p.policy.Check(p.value) {
		errs = append(errs, ValidationError{Key: p.key, Kind: KindPolicy, Message: "password " + msg})
	}
	return errs
}

func (p *Password) Close() { p.value = "" }

func uniqueRunes(s string) int {
	seen := make(map[rune]struct{})
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func longestRun(s string) int {
	best, run := 0, 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > best {
			best = run
		}
	}
	return best
}

func countIn(s, set string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(set, r) {
			n++
		}
	}
	return n
}
