package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/primatehaven/sanctuary/pkg/policy"
	"github.com/primatehaven/sanctuary/pkg/tui"
)

func newTUICommand(version string) *cobra.Command {
	var watchPolicies bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive intake desk",
		Long: `Start the terminal intake desk.

The screen shows the "Add New Primate" form, the isolation units, every
enclosure and the alphabetical roster. Select an isolated primate to give
it medical care or move it to its enclosure.`,
		Example: `  # Start with defaults
  sanctuary tui

  # Reload custom policies while the desk is open
  sanctuary tui --config sanctuary.yaml --watch-policies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(version)
			if err != nil {
				return err
			}

			// Log lines written to the terminal would tear the screen.
			var logs io.Writer
			switch cfg.Telemetry.Logging.Output {
			case "stdout", "stderr", "":
				logs = io.Discard
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logs)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, a.close())
			}()

			if (watchPolicies || cfg.Policy.Watch) && a.engine != nil && len(cfg.Policy.Paths) > 0 {
				loader := policy.NewLoader(a.tel.Logger.Zerolog())
				reload := func(policies []policy.Policy) error {
					return a.engine.ReplaceLoaded(ctx, policies)
				}
				if err := loader.Watch(ctx, cfg.Policy.Paths, reload); err != nil {
					return fmt.Errorf("failed to watch policies: %w", err)
				}
				defer func() { _ = loader.StopWatching() }()
			}

			return tui.Run(ctx, a.keeper, a.tel.Events)
		},
	}

	cmd.Flags().BoolVar(&watchPolicies, "watch-policies", false, "reload policies when their files change")

	return cmd
}
