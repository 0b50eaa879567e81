package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.Sanctuary.IsolationUnits)
	assert.Equal(t, PolicyModeEnforcing, cfg.Policy.Mode)
	assert.True(t, cfg.Policy.Builtins)
	assert.Equal(t, 30*time.Second, cfg.Script.Timeout)
	assert.Equal(t, "sanctuary", cfg.Telemetry.ServiceName)
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "sanctuary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sanctuary:
  isolation_units: 5
policy:
  mode: advisory
  paths:
    - ./policies
script:
  timeout: 2s
telemetry:
  logging:
    level: debug
    format: json
  metrics:
    textfile: /tmp/sanctuary.prom
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Sanctuary.IsolationUnits)
	assert.Equal(t, PolicyModeAdvisory, cfg.Policy.Mode)
	assert.True(t, cfg.Policy.Enabled, "unset keys keep their defaults")
	assert.Equal(t, []string{"./policies"}, cfg.Policy.Paths)
	assert.Equal(t, 2*time.Second, cfg.Script.Timeout)
	assert.Equal(t, "debug", cfg.Telemetry.Logging.Level)
	assert.Equal(t, "json", cfg.Telemetry.Logging.Format)
	assert.Equal(t, "stderr", cfg.Telemetry.Logging.Output)
	assert.Equal(t, "/tmp/sanctuary.prom", cfg.Telemetry.Metrics.Textfile)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Telemetry.Logging.Level)

	t.Setenv(EnvLogLevel, "shouting")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero isolation units", "sanctuary:\n  isolation_units: 0\n", "IsolationUnits"},
		{"unknown mode", "policy:\n  mode: lenient\n", "Mode"},
		{"unknown key", "sanctuary:\n  enclosures: 3\n", "enclosures"},
		{"zero timeout", "script:\n  timeout: 0s\n", "Timeout"},
		{"network exporter", "telemetry:\n  tracing:\n    exporter: otlp\n", "Exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Sanctuary.IsolationUnits = 7

	data, err := cfg.Marshal()
	require.NoError(t, err)

	back, err := Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, 7, back.Sanctuary.IsolationUnits)
}
