package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/primatehaven/sanctuary/pkg/keeper"
	"github.com/primatehaven/sanctuary/pkg/telemetry"
)

// DefaultTimeout bounds a scenario when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// fileOptions allow scenarios to loop and branch at top level.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Runner executes Starlark scenarios against a Keeper.
type Runner struct {
	keeper   *keeper.Keeper
	timeout  time.Duration
	maxSteps uint64
	out      io.Writer
	logger   *telemetry.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds a single run. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxSteps bounds the number of Starlark execution steps. Zero means
// unbounded.
func WithMaxSteps(n uint64) Option {
	return func(r *Runner) { r.maxSteps = n }
}

// WithOutput sends print() output to w. Output is discarded by default.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l.NewComponentLogger("script")
		}
	}
}

// NewRunner creates a scenario runner driving k.
func NewRunner(k *keeper.Keeper, opts ...Option) *Runner {
	r := &Runner{
		keeper:  k,
		timeout: DefaultTimeout,
		out:     io.Discard,
		logger:  telemetry.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of a scenario run.
type Result struct {
	// Globals holds the scenario's top-level values that convert to Go.
	// Names starting with an underscore are skipped.
	Globals map[string]interface{}

	// Steps is the number of Starlark execution steps taken.
	Steps uint64

	// Duration is the wall time of the run.
	Duration time.Duration
}

// RunFile reads and runs the scenario at path.
func (r *Runner) RunFile(ctx context.Context, path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return r.Run(ctx, path, src)
}

// Run executes src. An uncaught keeper error aborts the scenario and is
// returned; the registry keeps whatever the scenario did before it.
func (r *Runner) Run(ctx context.Context, filename string, src []byte) (*Result, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name: "scenario",
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(r.out, msg)
		},
	}
	if r.maxSteps > 0 {
		thread.SetMaxExecutionSteps(r.maxSteps)
	}
	thread.SetLocal(contextKey, ctx)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-stop:
		}
	}()

	predeclared := r.builtins()
	predeclared["struct"] = starlark.NewBuiltin("struct", starlarkstruct.Make)

	r.logger.Debug().Str("scenario", filename).Msg("Running scenario")

	globals, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, predeclared)
	result := &Result{
		Globals:  convertGlobals(globals),
		Steps:    thread.ExecutionSteps(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("scenario %s canceled: %w", filename, ctxErr)
		} else {
			err = fmt.Errorf("scenario %s failed: %w", filename, err)
		}
		r.logger.Warn().Err(err).Uint64("steps", result.Steps).Msg("Scenario aborted")
		return result, err
	}

	r.logger.Info().
		Str("scenario", filename).
		Uint64("steps", result.Steps).
		Dur("duration", result.Duration).
		Msg("Scenario completed")
	return result, nil
}

func convertGlobals(globals starlark.StringDict) map[string]interface{} {
	out := make(map[string]interface{}, len(globals))
	for name, val := range globals {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			continue
		}
		out[name] = goVal
	}
	return out
}
