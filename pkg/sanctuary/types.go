package sanctuary

import (
	"strings"
)

// Species is the group tag of a primate. Each species owns exactly one enclosure.
type Species string

const (
	SpeciesDrill    Species = "DRILL"
	SpeciesGuereza  Species = "GUEREZA"
	SpeciesHowler   Species = "HOWLER"
	SpeciesMangabey Species = "MANGABEY"
	SpeciesSaki     Species = "SAKI"
	SpeciesSpider   Species = "SPIDER"
	SpeciesSquirrel Species = "SQUIRREL"
	SpeciesTamarin  Species = "TAMARIN"
)

var allSpecies = []Species{
	SpeciesDrill, SpeciesGuereza, SpeciesHowler, SpeciesMangabey,
	SpeciesSaki, SpeciesSpider, SpeciesSquirrel, SpeciesTamarin,
}

// AllSpecies returns every species in declaration order.
func AllSpecies() []Species {
	out := make([]Species, len(allSpecies))
	copy(out, allSpecies)
	return out
}

// Valid reports whether s is a member of the closed set.
func (s Species) Valid() bool {
	for _, v := range allSpecies {
		if s == v {
			return true
		}
	}
	return false
}

func (s Species) String() string { return string(s) }

// Sex of a primate.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
)

var allSexes = []Sex{SexMale, SexFemale}

// AllSexes returns both sexes in declaration order.
func AllSexes() []Sex {
	out := make([]Sex, len(allSexes))
	copy(out, allSexes)
	return out
}

// Valid reports whether s is a member of the closed set.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

func (s Sex) String() string { return string(s) }

// Food is a primate's dietary preference.
type Food string

const (
	FoodEggs    Food = "EGGS"
	FoodFruits  Food = "FRUITS"
	FoodInsects Food = "INSECTS"
	FoodLeaves  Food = "LEAVES"
	FoodNuts    Food = "NUTS"
	FoodSeeds   Food = "SEEDS"
	FoodTreeSap Food = "TREE_SAP"
)

var allFoods = []Food{
	FoodEggs, FoodFruits, FoodInsects, FoodLeaves, FoodNuts, FoodSeeds, FoodTreeSap,
}

// AllFoods returns every food in declaration order.
func AllFoods() []Food {
	out := make([]Food, len(allFoods))
	copy(out, allFoods)
	return out
}

// Valid reports whether f is a member of the closed set.
func (f Food) Valid() bool {
	for _, v := range allFoods {
		if f == v {
			return true
		}
	}
	return false
}

func (f Food) String() string { return string(f) }

// canonical folds user input onto the enum spelling: "tree sap" -> "TREE_SAP".
func canonical(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// ParseSpecies parses a species name in any case.
func ParseSpecies(s string) (Species, error) {
	sp := Species(canonical(s))
	if !sp.Valid() {
		return "", NewValidationError("species", "unknown species: "+s)
	}
	return sp, nil
}

// ParseSex parses a sex in any case.
func ParseSex(s string) (Sex, error) {
	sx := Sex(canonical(s))
	if !sx.Valid() {
		return "", NewValidationError("sex", "unknown sex: "+s)
	}
	return sx, nil
}

// ParseFood parses a food in any case.
func ParseFood(s string) (Food, error) {
	f := Food(canonical(s))
	if !f.Valid() {
		return "", NewValidationError("food", "unknown food: "+s)
	}
	return f, nil
}

// HousingKind discriminates isolation units from enclosures.
type HousingKind string

const (
	// KindIsolation is a single-occupant quarantine unit.
	KindIsolation HousingKind = "isolation"

	// KindEnclosure is a species-restricted group enclosure.
	KindEnclosure HousingKind = "enclosure"
)

// Unlimited marks housing with no enforced occupancy ceiling.
const Unlimited = -1
