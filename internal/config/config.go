// Package config loads jmv configuration from YAML, validated against an
// embedded CUE schema and layered over defaults.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config is the root configuration.
type Config struct {
	Backend Backend `yaml:"backend"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

// Backend describes the periodic-table endpoint and the repository's
// failure policy.
type Backend struct {
	Scheme  string            `yaml:"scheme"`
	Host    string            `yaml:"host"`
	Port    int               `yaml:"port"`
	Path    string            `yaml:"path"`
	Token   string            `yaml:"token"`
	Headers map[string]string `yaml:"headers"`

	// Timeout bounds a single attempt.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of extra attempts after a retryable failure.
	Retries int `yaml:"retries"`

	// Backoff is the first retry delay; it doubles up to MaxBackoff.
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// URL returns the full endpoint URL.
func (b Backend) URL() string {
	u := url.URL{
		Scheme: b.Scheme,
		Host:   net.JoinHostPort(b.Host, strconv.Itoa(b.Port)),
		Path:   b.Path,
	}
	return u.String()
}

// Server configures the mock backend.
type Server struct {
	Addr string `yaml:"addr"`

	// RateLimit is the sustained request rate per second; Burst the bucket size.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SlogLevel maps Level onto slog. Unknown levels map to info.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: Backend{
			Scheme:     "http",
			Host:       "0.0.0.0",
			Port:       8080,
			Path:       "/periodic-table",
			Timeout:    1999 * time.Millisecond,
			Retries:    2,
			Backoff:    100 * time.Millisecond,
			MaxBackoff: 2 * time.Second,
		},
		Server: Server{
			Addr:      ":8080",
			RateLimit: 50,
			Burst:     100,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// ErrInvalid is wrapped by every schema or consistency failure.
var ErrInvalid = errors.New("invalid config")

// Load reads path and layers it over Default. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the schema and decodes it over Default.
// filename is only used in error messages.
func Parse(filename string, data []byte) (*Config, error) {
	cfg := Default()

	// Comment-only documents decode to nothing and keep the defaults.
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(probe) == 0 {
		return cfg, nil
	}

	if err := validateSchema(filename, data); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks constraints that span fields. Per-field constraints live
// in the CUE schema.
func (c *Config) Validate() error {
	if c.Backend.MaxBackoff < c.Backend.Backoff {
		return fmt.Errorf("%w: backend.max_backoff (%s) is below backend.backoff (%s)",
			ErrInvalid, c.Backend.MaxBackoff, c.Backend.Backoff)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("%w: backend.timeout must be positive", ErrInvalid)
	}
	return nil
}

func validateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}
	return nil
}
