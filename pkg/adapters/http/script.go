package http

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoStart is returned when a script does not name an existing start step.
	ErrNoStart = errors.New("script start step is missing")
	// ErrUnknownTarget is returned when a route points at an undefined step.
	ErrUnknownTarget = errors.New("script route targets an unknown step")
)

// Script describes a flow the mock server plays back. Steps are served as
// JSON documents; routes pick the next step from the submitted body.
type Script struct {
	Start string           `yaml:"start"`
	Steps map[string]*Step `yaml:"steps"`
}

// Step is one scripted response.
type Step struct {
	Status int            `yaml:"status"`
	Body   map[string]any `yaml:"body"`
	Routes []Route        `yaml:"routes"`
}

// Route selects the next step. When maps gjson paths, relative to the
// submitted "parameters" object, to expected values. "*" matches any present
// value. A route without conditions always matches.
type Route struct {
	When map[string]string `yaml:"when"`
	Goto string            `yaml:"goto"`
}

// LoadScript decodes a YAML script and validates it.
func LoadScript(r io.Reader) (*Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScriptFile reads a script from disk.
func LoadScriptFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return LoadScript(f)
}

// Validate checks that the start step and every route target exist.
func (s *Script) Validate() error {
	if _, ok := s.Steps[s.Start]; !ok || s.Start == "" {
		return fmt.Errorf("%w: %q", ErrNoStart, s.Start)
	}
	for _, name := range slices.Sorted(maps.Keys(s.Steps)) {
		for _, r := range s.Steps[name].Routes {
			if _, ok := s.Steps[r.Goto]; !ok {
				return fmt.Errorf("%w: %s -> %q", ErrUnknownTarget, name, r.Goto)
			}
		}
	}
	return nil
}

// route returns the target of the first route matching params.
func (st *Step) route(params gjson.Result) (string, bool) {
	for _, r := range st.Routes {
		if r.matches(params) {
			return r.Goto, true
		}
	}
	return "", false
}

func (r Route) matches(params gjson.Result) bool {
	for path, want := range r.When {
		got := params.Get(path)
		if !got.Exists() {
			return false
		}
		if want != "*" && got.String() != want {
			return false
		}
	}
	return true
}
