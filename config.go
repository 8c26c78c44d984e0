package davinci

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrMissingBaseURL is returned when a workflow is created without a base URL.
	ErrMissingBaseURL = errors.New("base url is required")
	// ErrInvalidBaseURL is returned when the base URL is not absolute.
	ErrInvalidBaseURL = errors.New("base url must be an absolute http(s) url")
)

// Config describes the tenant a workflow talks to.
type Config struct {
	// BaseURL is the tenant root, e.g. https://auth.example.com/<env-id>.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// StartPath is appended to BaseURL for the initial request.
	StartPath string `mapstructure:"start_path" yaml:"start_path"`

	// StartMethod is the HTTP method of the initial request.
	StartMethod string `mapstructure:"start_method" yaml:"start_method"`

	ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
	RedirectURI  string   `mapstructure:"redirect_uri" yaml:"redirect_uri"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
	ResponseMode string   `mapstructure:"response_mode" yaml:"response_mode"`

	// Headers are added to every outbound step request.
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`

	// SignoffURL, when set, receives a request on Logout.
	SignoffURL string `mapstructure:"signoff_url" yaml:"signoff_url"`

	// StoreKey names the stored user. Defaults to ClientID, or "default".
	StoreKey string `mapstructure:"store_key" yaml:"store_key"`

	// Timeout bounds each round trip of the default HTTP transport.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the defaults applied under any loaded values.
func DefaultConfig() Config {
	return Config{
		StartPath:    "/as/authorize",
		StartMethod:  "GET",
		Scopes:       []string{"openid"},
		ResponseMode: "pi.flow",
		Timeout:      30 * time.Second,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	return nil
}

// withDefaults fills the zero fields that have a default.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StartPath == "" {
		c.StartPath = d.StartPath
	}
	if c.StartMethod == "" {
		c.StartMethod = d.StartMethod
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Key returns the token store key of the workflow user.
func (c Config) Key() string {
	switch {
	case c.StoreKey != "":
		return c.StoreKey
	case c.ClientID != "":
		return c.ClientID
	}
	return "default"
}

// startURL builds the initial request URL with the authorize parameters.
func (c Config) startURL() string {
	u := strings.TrimRight(c.BaseURL, "/") + c.StartPath
	q := url.Values{}
	if c.ClientID != "" {
		q.Set("client_id", c.ClientID)
		q.Set("response_type", "code")
	}
	if len(c.Scopes) > 0 {
		q.Set("scope", strings.Join(c.Scopes, " "))
	}
	if c.RedirectURI != "" {
		q.Set("redirect_uri", c.RedirectURI)
	}
	if c.ResponseMode != "" {
		q.Set("response_mode", c.ResponseMode)
	}
	if len(q) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + q.Encode()
}

// continueURL is the fallback submission URL when a step has no next link.
func (c Config) continueURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/customHTMLTemplate"
}
