package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/primatehaven/sanctuary/pkg/keeper"
	"github.com/primatehaven/sanctuary/pkg/script"
)

func newRunCommand(version string) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run <scenario.star>",
		Short: "Run a Starlark scenario",
		Long: `Execute a Starlark scenario against a fresh sanctuary.

Scenarios drive the intake desk with these builtins:
  intake(name, species, sex, size, weight, age, food)
  medicate(name), move(name), release(name)
  isolated(), enclosures(), roster(), find(name), stage(name)
  attempt(fn, *args) returns the error class of a failed call, or None

When the scenario finishes, the isolation units, enclosures and roster are
printed.`,
		Example: `  # Run a scenario
  sanctuary run intake.star

  # Only print what the scenario prints
  sanctuary run --quiet intake.star`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(version)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, a.close())
			}()

			out := cmd.OutOrStdout()
			runner := script.NewRunner(a.keeper,
				script.WithTimeout(cfg.Script.Timeout),
				script.WithMaxSteps(cfg.Script.MaxSteps),
				script.WithOutput(out),
				script.WithLogger(a.tel.Logger),
			)

			res, runErr := runner.RunFile(cmd.Context(), args[0])
			if !quiet {
				printViews(out, a.keeper)
			}
			if runErr != nil {
				return runErr
			}

			a.tel.Logger.Info().
				Str("scenario", args[0]).
				Uint64("steps", res.Steps).
				Dur("duration", res.Duration).
				Msg("Scenario finished")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the sanctuary views")

	return cmd
}

func printViews(w io.Writer, k *keeper.Keeper) {
	fmt.Fprintln(w, "Isolation:")
	lines := k.IsolationView()
	if len(lines) == 0 {
		fmt.Fprintln(w, "  (empty)")
	}
	for _, l := range lines {
		fmt.Fprintln(w, "  "+l)
	}
	fmt.Fprintln(w)

	for _, s := range k.EnclosureView() {
		fmt.Fprint(w, s)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Join(k.Roster(), "\n"))
}
