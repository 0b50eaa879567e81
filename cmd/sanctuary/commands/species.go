package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/primatehaven/sanctuary/pkg/sanctuary"
)

func newSpeciesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "species",
		Short: "Print the accepted species, sexes and foods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sets := struct {
				Species []sanctuary.Species `json:"species"`
				Sexes   []sanctuary.Sex     `json:"sexes"`
				Foods   []sanctuary.Food    `json:"foods"`
			}{sanctuary.AllSpecies(), sanctuary.AllSexes(), sanctuary.AllFoods()}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, sets)
			}

			fmt.Fprintf(out, "Species: %s\n", join(sets.Species))
			fmt.Fprintf(out, "Sexes:   %s\n", join(sets.Sexes))
			fmt.Fprintf(out, "Foods:   %s\n", join(sets.Foods))
			return nil
		},
	}
}

func join[T ~string](values []T) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = string(v)
	}
	return strings.Join(s, ", ")
}
