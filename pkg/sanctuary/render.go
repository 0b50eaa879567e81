package sanctuary

import (
	"sort"
	"strings"
)

// RosterHeader is the first line of Roster.
const RosterHeader = "All Primates Currently in the Sanctuary (in alphabetical order):"

// EnclosureSummary lists the occupants of one enclosure.
type EnclosureSummary struct {
	Species Species  `json:"species"`
	Lines   []string `json:"lines"`
}

// String renders the summary block: a header line followed by one line per
// occupant, each newline-terminated.
func (s EnclosureSummary) String() string {
	var b strings.Builder
	b.WriteString("Enclosure for ")
	b.WriteString(string(s.Species))
	b.WriteString(":\n")
	for _, line := range s.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// EnclosureSummaries returns one summary per species in declaration order,
// including empty enclosures.
func (r *Registry) EnclosureSummaries() []EnclosureSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EnclosureSummary, 0, len(allSpecies))
	for _, sp := range allSpecies {
		sum := EnclosureSummary{Species: sp, Lines: []string{}}
		for _, p := range r.enclosures[sp].occupants {
			sum.Lines = append(sum.Lines, p.summaryLine())
		}
		out = append(out, sum)
	}
	return out
}

// Roster returns RosterHeader followed by every housed primate, isolation and
// enclosure alike, sorted by rendered line.
func (r *Registry) Roster() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lines []string
	for _, unit := range r.isolation {
		for _, p := range unit.occupants {
			lines = append(lines, p.rosterLine())
		}
	}
	for _, sp := range allSpecies {
		for _, p := range r.enclosures[sp].occupants {
			lines = append(lines, p.rosterLine())
		}
	}
	sort.Strings(lines)
	return append([]string{RosterHeader}, lines...)
}

// IsolationDetails returns the Details line of every isolation occupant.
func (r *Registry) IsolationDetails() []string {
	isolated := r.Isolated()
	out := make([]string, 0, len(isolated))
	for _, p := range isolated {
		out = append(out, p.Details())
	}
	return out
}
