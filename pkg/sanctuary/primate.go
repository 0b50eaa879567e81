package sanctuary

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Primate is a single animal tracked by the sanctuary.
//
// Descriptive attributes are immutable after intake. The isolated and medicated
// flags only ever move from false to true and are read without holding the
// registry lock, so they are stored atomically.
type Primate struct {
	id        uuid.UUID
	name      string
	species   Species
	sex       Sex
	size      int
	weight    int
	age       int
	food      Food
	admitted  time.Time
	isolated  atomic.Bool
	medicated atomic.Bool
}

// IntakeRequest carries the attributes for a new primate.
// Field order matches the order in which validation reports failures.
type IntakeRequest struct {
	Name    string  `json:"name" yaml:"name" validate:"notblank"`
	Species Species `json:"species" yaml:"species" validate:"required,species"`
	Sex     Sex     `json:"sex" yaml:"sex" validate:"required,sex"`
	Size    int     `json:"size" yaml:"size" validate:"gt=0"`
	Weight  int     `json:"weight" yaml:"weight" validate:"gt=0"`
	Age     int     `json:"age" yaml:"age" validate:"gt=0"`
	Food    Food    `json:"food" yaml:"food" validate:"required,food"`
}

func newPrimate(req IntakeRequest, now time.Time) *Primate {
	return &Primate{
		id:       uuid.New(),
		name:     req.Name,
		species:  req.Species,
		sex:      req.Sex,
		size:     req.Size,
		weight:   req.Weight,
		age:      req.Age,
		food:     req.Food,
		admitted: now,
	}
}

// ID returns the identity handle assigned at intake.
func (p *Primate) ID() uuid.UUID { return p.id }

// Name returns the name as supplied at intake.
func (p *Primate) Name() string { return p.name }

// Species returns the primate's species.
func (p *Primate) Species() Species { return p.species }

// Sex returns the primate's sex.
func (p *Primate) Sex() Sex { return p.sex }

// Size returns the recorded size.
func (p *Primate) Size() int { return p.size }

// Weight returns the recorded weight.
func (p *Primate) Weight() int { return p.weight }

// Age returns the recorded age in years.
func (p *Primate) Age() int { return p.age }

// Food returns the favorite food.
func (p *Primate) Food() Food { return p.food }

// AdmittedAt returns the intake time.
func (p *Primate) AdmittedAt() time.Time { return p.admitted }

// Isolated reports whether the primate has ever been placed in isolation.
func (p *Primate) Isolated() bool { return p.isolated.Load() }

// Medicated reports whether the primate has been cleared by medical care.
func (p *Primate) Medicated() bool { return p.medicated.Load() }

// Same reports whether p and other are the same tracked individual.
// Two primates with identical attributes are still distinct.
func (p *Primate) Same(other *Primate) bool {
	if p == nil || other == nil {
		return false
	}
	return p.id == other.id
}

func (p *Primate) markIsolated()  { p.isolated.Store(true) }
func (p *Primate) markMedicated() { p.medicated.Store(true) }

// Details renders the isolation listing line.
func (p *Primate) Details() string {
	status := "Not Medicated"
	if p.Medicated() {
		status = "Medicated"
	}
	return fmt.Sprintf("%s - %d - %s - %s - %s - %s",
		p.name, p.age, p.species, p.sex, p.food, status)
}

// rosterLine renders the primate for the alphabetical roster.
func (p *Primate) rosterLine() string {
	return fmt.Sprintf("Name: %s, Age: %d, Sex: %s, Food: %s", p.name, p.age, p.sex, p.food)
}

// summaryLine renders the primate inside an enclosure summary.
func (p *Primate) summaryLine() string {
	return fmt.Sprintf("Name: %s, Sex: %s, Favorite Food: %s", p.name, p.sex, p.food)
}

// String implements fmt.Stringer.
func (p *Primate) String() string {
	return p.Details()
}
