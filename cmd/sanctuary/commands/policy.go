package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/primatehaven/sanctuary/pkg/policy"
	"github.com/primatehaven/sanctuary/pkg/sanctuary"
)

func newPolicyCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and test admission policies",
		Long: `Admission policies are Rego modules evaluated before every intake and
every move to an enclosure. In enforcing mode a violation with error or
critical severity blocks the operation; info and warning violations are
only reported.`,
	}

	cmd.AddCommand(newPolicyListCommand(version))
	cmd.AddCommand(newPolicyCheckCommand(version))

	return cmd
}

// policyEngine builds an engine from the config even when policies are
// disabled for the desk itself.
func policyEngine(cmd *cobra.Command, version string) (*policy.Engine, *app, error) {
	cfg, err := loadConfig(version)
	if err != nil {
		return nil, nil, err
	}
	cfg.Policy.Enabled = true

	a, err := newApp(cmd.Context(), cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return a.engine, a, nil
}

func newPolicyListCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			engine, a, err := policyEngine(cmd, version)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, a.close())
			}()

			policies := engine.ListPolicies()
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, policies)
			}

			fmt.Fprintf(out, "%-24s %-9s %-8s %s\n", "NAME", "SEVERITY", "ENABLED", "SOURCE")
			for _, p := range policies {
				source := p.Source
				if p.Builtin {
					source = "builtin"
				}
				fmt.Fprintf(out, "%-24s %-9s %-8t %s\n", p.Name, p.Severity, p.Enabled, source)
			}
			fmt.Fprintf(out, "\nmode: %s\n", engine.Mode())
			return nil
		},
	}
}

func newPolicyCheckCommand(version string) *cobra.Command {
	var (
		name, species, sex, food string
		size, weight, age        int
		used                     int
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the intake policies for one primate",
		Long: `Evaluate the intake policies for a primate described by flags, against an
otherwise empty sanctuary. Exits with an error when the intake would be
denied.`,
		Example: `  # Check an intake
  sanctuary policy check --name Koko --species mangabey --sex female --age 12

  # Check with custom policies and most isolation units taken
  sanctuary policy check -c sanctuary.yaml --name Koko --species drill --isolation-used 19`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			req, err := intakeFromFlags(name, species, sex, food, size, weight, age)
			if err != nil {
				return err
			}

			engine, a, err := policyEngine(cmd, version)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, a.close())
			}()

			occ := a.keeper.Registry().Occupancy()
			if used > 0 {
				occ.IsolationUsed = min(used, occ.IsolationTotal)
			}

			result, err := engine.Evaluate(cmd.Context(), policy.IntakeInput(req, nil, occ))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				printResult(out, result)
			}
			if !result.Allowed {
				return fmt.Errorf("intake of %q denied by policy", req.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "primate name")
	cmd.Flags().StringVar(&species, "species", string(sanctuary.SpeciesDrill), "species")
	cmd.Flags().StringVar(&sex, "sex", string(sanctuary.SexMale), "sex")
	cmd.Flags().StringVar(&food, "food", string(sanctuary.FoodFruits), "favorite food")
	cmd.Flags().IntVar(&size, "size", 1, "size")
	cmd.Flags().IntVar(&weight, "weight", 1, "weight")
	cmd.Flags().IntVar(&age, "age", 1, "age")
	cmd.Flags().IntVar(&used, "isolation-used", 0, "pretend this many isolation units are taken")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func intakeFromFlags(name, species, sex, food string, size, weight, age int) (sanctuary.IntakeRequest, error) {
	sp, err := sanctuary.ParseSpecies(species)
	if err != nil {
		return sanctuary.IntakeRequest{}, err
	}
	sx, err := sanctuary.ParseSex(sex)
	if err != nil {
		return sanctuary.IntakeRequest{}, err
	}
	fd, err := sanctuary.ParseFood(food)
	if err != nil {
		return sanctuary.IntakeRequest{}, err
	}
	return sanctuary.IntakeRequest{
		Name:    name,
		Species: sp,
		Sex:     sx,
		Size:    size,
		Weight:  weight,
		Age:     age,
		Food:    fd,
	}, nil
}

func printResult(w io.Writer, result *policy.Result) {
	all := result.All()
	if len(all) == 0 {
		fmt.Fprintf(w, "No violations (%d policies evaluated).\n", len(result.EvaluatedPolicies))
	}
	for _, v := range all {
		fmt.Fprintf(w, "[%s] %s: %s\n", strings.ToUpper(string(v.Severity)), v.Policy, v.Message)
		if v.Remediation != "" {
			fmt.Fprintf(w, "    %s\n", v.Remediation)
		}
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "[ERROR] %s\n", e)
	}
	if result.Allowed {
		fmt.Fprintln(w, "allowed")
	} else {
		fmt.Fprintln(w, "denied")
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
