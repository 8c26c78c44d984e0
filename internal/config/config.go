// Package config loads the CLI configuration from a YAML file, a .env file
// and DAVINCI_* environment variables, in increasing precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/davinci"
	"github.com/aretw0/davinci/internal/logging"
	"github.com/aretw0/davinci/pkg/node"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with a double underscore: DAVINCI_STORAGE__ADDR sets storage.addr.
const EnvPrefix = "DAVINCI_"

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

var (
	// ErrUnknownDriver is returned for a storage driver other than memory, file or redis.
	ErrUnknownDriver = errors.New("unknown storage driver")
	// ErrInvalidKey is returned when an encryption key is not 32 base64 encoded bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 base64 encoded bytes")
	// ErrInvalidUnknownFields is returned for an unknown_fields value other than drop or keep.
	ErrInvalidUnknownFields = errors.New("unknown_fields must be drop or keep")
	// ErrInvalidLogLevel is returned for an unrecognized log level.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Storage configures where authenticated users are kept.
type Storage struct {
	Driver   string        `mapstructure:"driver" yaml:"driver"`
	Path     string        `mapstructure:"path" yaml:"path"`
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// EncryptionKey enables at-rest encryption. FallbackKeys are tried on
	// read so keys can be rotated.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`

	// MaskKeys are regular expressions of keys masked in stored documents.
	MaskKeys []string `mapstructure:"mask_keys" yaml:"mask_keys"`
}

// Config is the full CLI configuration.
type Config struct {
	davinci.Config `mapstructure:",squash" yaml:",inline"`

	UnknownFields string  `mapstructure:"unknown_fields" yaml:"unknown_fields"`
	Storage       Storage `mapstructure:"storage" yaml:"storage"`
	LogLevel      string  `mapstructure:"log_level" yaml:"log_level"`
	MetricsAddr   string  `mapstructure:"metrics_addr" yaml:"metrics_addr"`

	// IdPHandlers points to the social login hand-off commands file.
	IdPHandlers string `mapstructure:"idp_handlers" yaml:"idp_handlers"`
}

// Default returns the configuration applied under any loaded values.
func Default() Config {
	return Config{
		Config:        davinci.DefaultConfig(),
		UnknownFields: "drop",
		Storage:       Storage{Driver: DriverMemory},
		LogLevel:      "info",
	}
}

// Load reads path (optional), then .env, then the process environment.
// Overrides run last, before validation.
func Load(path string, overrides ...func(*Config)) (Config, error) {
	_ = godotenv.Load()

	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	overlayEnv(raw, os.Environ())

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return cfg, cfg.Validate()
}

func decode(raw map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// overlayEnv writes DAVINCI_* variables into raw.
func overlayEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__")

		m := raw
		for _, p := range path[:len(path)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[p] = next
			}
			m = next
		}
		m[path[len(path)-1]] = value
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if _, ok := node.ParseUnknownPolicy(c.UnknownFields); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidUnknownFields, c.UnknownFields)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}
	if _, _, err := c.Storage.Keys(); err != nil {
		return err
	}
	return nil
}

// UnknownPolicy returns the parsed unknown_fields policy.
func (c Config) UnknownPolicy() node.UnknownPolicy {
	p, _ := node.ParseUnknownPolicy(c.UnknownFields)
	return p
}

// Level returns the parsed log level, info when unset.
func (c Config) Level() slog.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (s Storage) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for _, k := range s.FallbackKeys {
		b, err := decodeKey(k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, b)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) != 32 {
		return nil, ErrInvalidKey
	}
	return b, nil
}
