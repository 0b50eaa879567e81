package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/primatehaven/sanctuary/pkg/config"
	"github.com/primatehaven/sanctuary/pkg/keeper"
	"github.com/primatehaven/sanctuary/pkg/policy"
	"github.com/primatehaven/sanctuary/pkg/sanctuary"
	"github.com/primatehaven/sanctuary/pkg/telemetry"
)

const shutdownTimeout = 5 * time.Second

var (
	// Global flags
	configPath  string
	verbose     bool
	jsonOutput  bool
	metricsFile string
	traceFile   string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sanctuary",
		Short: "Primate sanctuary intake desk",
		Long: `sanctuary tracks primates from intake through quarantine to their species
enclosure.

Every new arrival is placed in a single-occupant isolation unit. A primate
must receive medical care before it can move to the enclosure of its
species. Admission policies written in Rego can warn about or block intakes
and transfers.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write metrics in text exposition format to this file on exit")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace-file", "", "export spans to this file")

	rootCmd.AddCommand(newTUICommand(version))
	rootCmd.AddCommand(newRunCommand(version))
	rootCmd.AddCommand(newPolicyCommand(version))
	rootCmd.AddCommand(newSpeciesCommand())

	return rootCmd
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig(version string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if version != "" {
		cfg.Telemetry.ServiceVersion = version
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if metricsFile != "" {
		cfg.Telemetry.Metrics.Enabled = true
		cfg.Telemetry.Metrics.Textfile = metricsFile
	}
	if traceFile != "" {
		cfg.Telemetry.Tracing.Enabled = true
		cfg.Telemetry.Tracing.Exporter = "stdout"
		cfg.Telemetry.Tracing.Output = traceFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app wires the registry, policy engine and keeper for one command.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	engine *policy.Engine
	keeper *keeper.Keeper
}

// newApp builds the application from cfg. When logs is not nil it receives
// the log output instead of the configured destination.
func newApp(ctx context.Context, cfg *config.Config, logs io.Writer) (*app, error) {
	var (
		tel *telemetry.Telemetry
		err error
	)
	if logs != nil {
		tel, err = telemetry.NewTelemetryWithLogWriter(&cfg.Telemetry, logs)
	} else {
		tel, err = telemetry.NewTelemetry(&cfg.Telemetry)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &app{cfg: cfg, tel: tel}

	registry := sanctuary.NewRegistry(
		sanctuary.WithIsolationUnits(cfg.Sanctuary.IsolationUnits),
		sanctuary.WithLogger(tel.Logger.NewComponentLogger("registry").Zerolog()),
	)

	opts := []keeper.Option{keeper.WithTelemetry(tel)}
	if cfg.Policy.Enabled {
		a.engine, err = newEngine(ctx, cfg, tel.Logger)
		if err != nil {
			_ = a.close()
			return nil, err
		}
		opts = append(opts, keeper.WithPolicy(a.engine))
	}
	a.keeper = keeper.New(registry, opts...)

	tel.Logger.Debug().
		Int("isolation_units", cfg.Sanctuary.IsolationUnits).
		Bool("policy", cfg.Policy.Enabled).
		Msg("Sanctuary ready")
	return a, nil
}

func newEngine(ctx context.Context, cfg *config.Config, logger *telemetry.Logger) (*policy.Engine, error) {
	opts := []policy.EngineOption{policy.WithMode(policy.Mode(cfg.Policy.Mode))}
	if !cfg.Policy.Builtins {
		opts = append(opts, policy.WithoutBuiltins())
	}

	engine, err := policy.NewEngine(logger.Zerolog(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if len(cfg.Policy.Paths) > 0 {
		if err := engine.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
	}
	return engine, nil
}

// close flushes telemetry. It is safe to call on a partially built app.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.tel.Shutdown(ctx)
}
