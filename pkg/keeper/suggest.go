package keeper

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far a suggestion may be from the input.
const maxSuggestDistance = 3

// Suggest returns the housed name closest to name by edit distance, or "" if
// nothing is close. Comparison ignores case; ties go to the alphabetically
// first name.
func (k *Keeper) Suggest(name string) string {
	return closest(name, k.registry.Names())
}

func closest(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	target := strings.ToLower(name)
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range sorted {
		if c == name {
			continue
		}
		d := levenshtein.ComputeDistance(target, strings.ToLower(c))
		if d < bestDist && d < len(target) {
			best, bestDist = c, d
		}
	}
	return best
}
