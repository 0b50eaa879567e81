package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/primatehaven/sanctuary/pkg/telemetry"
)

// EnvLogLevel overrides telemetry.logging.level when set.
const EnvLogLevel = "LOG_LEVEL"

// Config is the root of the sanctuary configuration file.
type Config struct {
	// Sanctuary sizes the registry.
	Sanctuary SanctuaryConfig `yaml:"sanctuary"`

	// Policy configures admission policies.
	Policy PolicyConfig `yaml:"policy"`

	// Script configures the scenario runner.
	Script ScriptConfig `yaml:"script"`

	// Telemetry configures logging, tracing, metrics and events.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// SanctuaryConfig sizes the registry.
type SanctuaryConfig struct {
	// IsolationUnits is the number of single-occupant isolation units.
	IsolationUnits int `yaml:"isolation_units" validate:"gte=1,lte=1000"`
}

// PolicyMode decides whether violations block operations.
type PolicyMode string

const (
	// PolicyModeEnforcing blocks operations on error or critical violations.
	PolicyModeEnforcing PolicyMode = "enforcing"

	// PolicyModeAdvisory reports violations without blocking.
	PolicyModeAdvisory PolicyMode = "advisory"
)

// PolicyConfig configures admission policies.
type PolicyConfig struct {
	// Enabled turns policy evaluation on.
	Enabled bool `yaml:"enabled"`

	// Mode is enforcing or advisory.
	Mode PolicyMode `yaml:"mode" validate:"oneof=enforcing advisory"`

	// Builtins loads the bundled advisory policies.
	Builtins bool `yaml:"builtins"`

	// Paths lists .rego/.json files or directories of custom policies.
	Paths []string `yaml:"paths"`

	// Watch reloads policies when files under Paths change.
	Watch bool `yaml:"watch"`
}

// ScriptConfig configures the scenario runner.
type ScriptConfig struct {
	// Timeout bounds a single scenario run.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// MaxSteps bounds Starlark execution steps. Zero means unbounded.
	MaxSteps uint64 `yaml:"max_steps"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sanctuary: SanctuaryConfig{
			IsolationUnits: 20,
		},
		Policy: PolicyConfig{
			Enabled:  true,
			Mode:     PolicyModeEnforcing,
			Builtins: true,
		},
		Script: ScriptConfig{
			Timeout: 30 * time.Second,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults. The LOG_LEVEL environment variable is applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := decode(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Telemetry.Logging.Level = lvl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %w", errors.Join(msgs...))
}
