package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/primatehaven/sanctuary/pkg/sanctuary"
)

// focus identifies the widget receiving keys.
type focus int

const (
	focusName focus = iota
	focusSpecies
	focusSex
	focusAge
	focusSize
	focusWeight
	focusFood
	focusIsolation
	focusCount
)

func (f focus) label() string {
	switch f {
	case focusName:
		return "Name"
	case focusSpecies:
		return "Species"
	case focusSex:
		return "Sex"
	case focusAge:
		return "Age"
	case focusSize:
		return "Size"
	case focusWeight:
		return "Weight"
	case focusFood:
		return "Favorite Food"
	default:
		return ""
	}
}

func (f focus) isText() bool {
	return f == focusName || f == focusAge || f == focusSize || f == focusWeight
}

func (f focus) isSelector() bool {
	return f == focusSpecies || f == focusSex || f == focusFood
}

// form holds the "Add New Primate" inputs.
type form struct {
	name    string
	age     string
	size    string
	weight  string
	species int
	sex     int
	food    int
}

func (f *form) text(at focus) *string {
	switch at {
	case focusName:
		return &f.name
	case focusAge:
		return &f.age
	case focusSize:
		return &f.size
	case focusWeight:
		return &f.weight
	default:
		return nil
	}
}

// cycle moves a selector by delta, wrapping around.
func (f *form) cycle(at focus, delta int) {
	wrap := func(i, n int) int { return ((i+delta)%n + n) % n }
	switch at {
	case focusSpecies:
		f.species = wrap(f.species, len(sanctuary.AllSpecies()))
	case focusSex:
		f.sex = wrap(f.sex, len(sanctuary.AllSexes()))
	case focusFood:
		f.food = wrap(f.food, len(sanctuary.AllFoods()))
	}
}

func (f *form) selected(at focus) string {
	switch at {
	case focusSpecies:
		return string(sanctuary.AllSpecies()[f.species])
	case focusSex:
		return string(sanctuary.AllSexes()[f.sex])
	case focusFood:
		return string(sanctuary.AllFoods()[f.food])
	default:
		return ""
	}
}

func (f *form) value(at focus) string {
	if p := f.text(at); p != nil {
		return *p
	}
	return f.selected(at)
}

// request builds an intake request. Numeric fields must parse as whole
// numbers; range checks are left to the registry.
func (f *form) request() (sanctuary.IntakeRequest, error) {
	req := sanctuary.IntakeRequest{
		Name:    f.name,
		Species: sanctuary.AllSpecies()[f.species],
		Sex:     sanctuary.AllSexes()[f.sex],
		Food:    sanctuary.AllFoods()[f.food],
	}
	for _, fld := range []struct {
		at  focus
		raw string
		dst *int
	}{
		{focusAge, f.age, &req.Age},
		{focusSize, f.size, &req.Size},
		{focusWeight, f.weight, &req.Weight},
	} {
		n, err := strconv.Atoi(strings.TrimSpace(fld.raw))
		if err != nil {
			field := strings.ToLower(fld.at.label())
			return req, sanctuary.NewValidationError(field, fmt.Sprintf("primate %s must be a whole number", field)).
				WithOperation(sanctuary.OpIntake)
		}
		*fld.dst = n
	}
	return req, nil
}

// clearText empties the text inputs and keeps the selectors.
func (f *form) clearText() {
	f.name, f.age, f.size, f.weight = "", "", "", ""
}
