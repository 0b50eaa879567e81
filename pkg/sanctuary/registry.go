package sanctuary

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/rs/zerolog"
)

// DefaultIsolationUnits is the number of isolation units provisioned by NewRegistry.
const DefaultIsolationUnits = 20

// Registry operation names, used in errors, logs and telemetry.
const (
	OpIntake               = "intake"
	OpPlaceInIsolation     = "place_in_isolation"
	OpMedicate             = "medicate"
	OpReleaseFromIsolation = "release_from_isolation"
	OpTransferToEnclosure  = "transfer_to_enclosure"
	OpReleaseFromEnclosure = "release_from_enclosure"
)

// Registry owns every isolation unit and enclosure and enforces the intake
// workflow: isolation first, medication second, enclosure last.
//
// A single RWMutex guards all housing. Mutations take the write lock and
// listings take the read lock.
type Registry struct {
	mu         sync.RWMutex
	isolation  []*Housing
	enclosures map[Species]*Housing
	validate   *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*registryOptions)

type registryOptions struct {
	isolationUnits    int
	enclosureCapacity int
	logger            zerolog.Logger
	now               func() time.Time
}

// WithIsolationUnits sets the number of isolation units. Values below one are ignored.
func WithIsolationUnits(n int) Option {
	return func(o *registryOptions) {
		if n > 0 {
			o.isolationUnits = n
		}
	}
}

// WithEnclosureCapacity caps every enclosure at n occupants. Enclosures are
// unlimited by default; values below one are ignored.
func WithEnclosureCapacity(n int) Option {
	return func(o *registryOptions) {
		if n > 0 {
			o.enclosureCapacity = n
		}
	}
}

// WithLogger attaches a logger for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *registryOptions) {
		o.logger = logger
	}
}

// WithClock overrides the time source used to stamp intakes.
func WithClock(now func() time.Time) Option {
	return func(o *registryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewRegistry provisions the isolation units and one enclosure per species.
// Housing is never created or destroyed afterwards.
func NewRegistry(opts ...Option) *Registry {
	o := registryOptions{
		isolationUnits:    DefaultIsolationUnits,
		enclosureCapacity: Unlimited,
		logger:            zerolog.Nop(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		enclosures: make(map[Species]*Housing, len(allSpecies)),
		validate:   newIntakeValidator(),
		logger:     o.logger.With().Str("component", "registry").Logger(),
		now:        o.now,
	}
	r.isolation = make([]*Housing, o.isolationUnits)
	for i := range r.isolation {
		r.isolation[i] = newIsolationUnit(strconv.Itoa(i), &r.mu)
	}
	for _, sp := range allSpecies {
		r.enclosures[sp] = newEnclosure(sp, o.enclosureCapacity, &r.mu)
	}
	return r
}

func newIntakeValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("species", func(fl validator.FieldLevel) bool {
		return Species(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("sex", func(fl validator.FieldLevel) bool {
		return Sex(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("food", func(fl validator.FieldLevel) bool {
		return Food(fl.Field().String()).Valid()
	})
	return v
}

// ValidateIntake checks every intake field and returns a validation error
// naming the first offending field, in declaration order.
func (r *Registry) ValidateIntake(req IntakeRequest) error {
	err := r.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError("", "invalid intake request").WithCause(err)
	}
	fe := verrs[0]
	return NewValidationError(fe.Field(), intakeMessage(fe)).WithOperation(OpIntake)
}

func intakeMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		return "primate name cannot be empty"
	case "species", "sex", "food":
		return "primate " + fe.Field() + " is not valid"
	default:
		return "primate " + fe.Field() + " must be greater than zero"
	}
}

// Intake validates req, creates the primate and places it in the first free
// isolation unit. On any failure no primate is observable in the registry.
func (r *Registry) Intake(req IntakeRequest) (*Primate, error) {
	if err := r.ValidateIntake(req); err != nil {
		r.logger.Debug().Str("name", req.Name).Err(err).Msg("Intake rejected")
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := newPrimate(req, r.now())
	if err := r.placeInIsolation(p); err != nil {
		return nil, err
	}
	r.logger.Debug().
		Str("primate", p.Name()).
		Str("species", string(p.Species())).
		Str("id", p.ID().String()).
		Msg("Primate admitted")
	return p, nil
}

// PlaceInIsolation puts p into the first free isolation unit by index.
func (r *Registry) PlaceInIsolation(p *Primate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.placeInIsolation(p)
}

func (r *Registry) placeInIsolation(p *Primate) error {
	if p == nil {
		return errNoPrimate(OpPlaceInIsolation)
	}
	for _, unit := range r.isolation {
		if unit.add(p) {
			p.markIsolated()
			r.logger.Debug().Str("primate", p.Name()).Str("unit", unit.ID()).Msg("Placed in isolation")
			return nil
		}
	}
	return NewCapacityError("no available isolation space").
		WithCode(ErrCodeNoIsolation).
		WithOperation(OpPlaceInIsolation).
		WithPrimate(p.Name())
}

// ReturnToIsolation puts p back into the isolation unit with the given ID.
// Unlike PlaceInIsolation it never picks another unit, so the isolation
// listing is restored exactly.
func (r *Registry) ReturnToIsolation(p *Primate, unitID string) error {
	if p == nil {
		return errNoPrimate(OpPlaceInIsolation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, unit := range r.isolation {
		if unit.ID() != unitID {
			continue
		}
		if !unit.add(p) {
			return NewCapacityError("isolation unit " + unitID + " is occupied").
				WithCode(ErrCodeNoIsolation).
				WithOperation(OpPlaceInIsolation).
				WithPrimate(p.Name())
		}
		p.markIsolated()
		r.logger.Debug().Str("primate", p.Name()).Str("unit", unitID).Msg("Returned to isolation")
		return nil
	}
	return NewNotFoundError("no isolation unit " + unitID).
		WithCode(ErrCodeNotInIsolation).
		WithOperation(OpPlaceInIsolation).
		WithPrimate(p.Name())
}

// IsolationUnitOf returns the isolation unit holding p.
func (r *Registry) IsolationUnitOf(p *Primate) (*Housing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, unit := range r.isolation {
		if unit.contains(p) {
			return unit, true
		}
	}
	return nil, false
}

// Medicate records that p received medical care. It has no precondition and
// repeating it changes nothing. A nil primate is ignored.
func (r *Registry) Medicate(p *Primate) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p.markMedicated()
	r.logger.Debug().Str("primate", p.Name()).Msg("Medicated")
}

// ReleaseFromIsolation removes a medicated primate from its isolation unit.
func (r *Registry) ReleaseFromIsolation(p *Primate) error {
	if p == nil {
		return errNoPrimate(OpReleaseFromIsolation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, unit := range r.isolation {
		if !unit.contains(p) {
			continue
		}
		if !p.Medicated() {
			return NewPreconditionError("this primate has not been medicated yet").
				WithCode(ErrCodeNotMedicated).
				WithOperation(OpReleaseFromIsolation).
				WithPrimate(p.Name())
		}
		unit.remove(p)
		r.logger.Debug().Str("primate", p.Name()).Str("unit", unit.ID()).Msg("Released from isolation")
		return nil
	}
	return NewNotFoundError("the primate is not found in any isolation unit").
		WithCode(ErrCodeNotInIsolation).
		WithOperation(OpReleaseFromIsolation).
		WithPrimate(p.Name())
}

// TransferToEnclosure adds p to its species enclosure. The primate must have
// been isolated and medicated.
func (r *Registry) TransferToEnclosure(p *Primate) error {
	if p == nil {
		return errNoPrimate(OpTransferToEnclosure)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !p.Isolated() {
		return NewPreconditionError("this primate has not been isolated yet").
			WithCode(ErrCodeNotIsolated).
			WithOperation(OpTransferToEnclosure).
			WithPrimate(p.Name())
	}
	if !p.Medicated() {
		return NewPreconditionError("this primate has not been medicated yet").
			WithCode(ErrCodeNotMedicated).
			WithOperation(OpTransferToEnclosure).
			WithPrimate(p.Name())
	}

	enc, ok := r.enclosures[p.Species()]
	if !ok {
		return NewNotFoundError("no enclosure found for species: " + string(p.Species())).
			WithCode(ErrCodeNoEnclosure).
			WithOperation(OpTransferToEnclosure).
			WithPrimate(p.Name())
	}
	if !enc.add(p) {
		return NewCapacityError("the enclosure for this primate is currently full").
			WithCode(ErrCodeEnclosureFull).
			WithOperation(OpTransferToEnclosure).
			WithPrimate(p.Name())
	}
	r.logger.Debug().Str("primate", p.Name()).Str("enclosure", enc.ID()).Msg("Transferred to enclosure")
	return nil
}

// ReleaseFromEnclosure removes p from whichever enclosure holds it.
func (r *Registry) ReleaseFromEnclosure(p *Primate) error {
	if p == nil {
		return errNoPrimate(OpReleaseFromEnclosure)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sp := range allSpecies {
		enc := r.enclosures[sp]
		if enc.remove(p) {
			r.logger.Debug().Str("primate", p.Name()).Str("enclosure", enc.ID()).Msg("Released from enclosure")
			return nil
		}
	}
	return NewNotFoundError("the primate has not been found in the enclosures").
		WithCode(ErrCodeNotInEnclosure).
		WithOperation(OpReleaseFromEnclosure).
		WithPrimate(p.Name())
}

func errNoPrimate(op string) error {
	return NewNotFoundError("no primate given").
		WithCode(ErrCodeUnknownPrimate).
		WithOperation(op)
}

// FindByName returns the first isolation occupant whose name matches exactly.
// Enclosure occupants are not searched; use FindInEnclosures for those.
func (r *Registry) FindByName(name string) (*Primate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, unit := range r.isolation {
		if p := unit.findByName(name); p != nil {
			return p, true
		}
	}
	return nil, false
}

// FindInEnclosures returns the first enclosure occupant whose name matches
// exactly, scanning enclosures in species order.
func (r *Registry) FindInEnclosures(name string) (*Primate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sp := range allSpecies {
		if p := r.enclosures[sp].findByName(name); p != nil {
			return p, true
		}
	}
	return nil, false
}

// InIsolation reports whether p currently occupies an isolation unit.
func (r *Registry) InIsolation(p *Primate) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inIsolation(p)
}

func (r *Registry) inIsolation(p *Primate) bool {
	for _, unit := range r.isolation {
		if unit.contains(p) {
			return true
		}
	}
	return false
}

// EnclosureFor returns the enclosure for species.
func (r *Registry) EnclosureFor(species Species) (*Housing, bool) {
	enc, ok := r.enclosures[species]
	return enc, ok
}

// IsolationUnits returns the isolation units in index order.
func (r *Registry) IsolationUnits() []*Housing {
	out := make([]*Housing, len(r.isolation))
	copy(out, r.isolation)
	return out
}

// Isolated returns every isolation occupant, by unit index then arrival.
func (r *Registry) Isolated() []*Primate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Primate
	for _, unit := range r.isolation {
		out = append(out, unit.occupants...)
	}
	return out
}

// Enclosed returns every enclosure occupant, by species order then arrival.
func (r *Registry) Enclosed() []*Primate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Primate
	for _, sp := range allSpecies {
		out = append(out, r.enclosures[sp].occupants...)
	}
	return out
}

// Names returns the names of every housed primate in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, unit := range r.isolation {
		for _, p := range unit.occupants {
			names = append(names, p.Name())
		}
	}
	for _, enc := range r.enclosures {
		for _, p := range enc.occupants {
			names = append(names, p.Name())
		}
	}
	return names
}

// StageOf derives the lifecycle stage of p.
func (r *Registry) StageOf(p *Primate) Stage {
	if p == nil {
		return StageUntracked
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.inIsolation(p) {
		if p.Medicated() {
			return StageMedicated
		}
		return StageIsolated
	}
	if enc, ok := r.enclosures[p.Species()]; ok && enc.contains(p) {
		return StageEnclosed
	}
	if p.Isolated() {
		return StageDetached
	}
	return StageUntracked
}

// Occupancy is a point-in-time count of housed primates.
type Occupancy struct {
	IsolationUsed  int             `json:"isolation_used"`
	IsolationTotal int             `json:"isolation_total"`
	Enclosures     map[Species]int `json:"enclosures"`
}

// Free returns the number of empty isolation units.
func (o Occupancy) Free() int {
	return o.IsolationTotal - o.IsolationUsed
}

// Occupancy returns the current counts.
func (r *Registry) Occupancy() Occupancy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	occ := Occupancy{
		IsolationTotal: len(r.isolation),
		Enclosures:     make(map[Species]int, len(r.enclosures)),
	}
	for _, unit := range r.isolation {
		occ.IsolationUsed += len(unit.occupants)
	}
	for sp, enc := range r.enclosures {
		occ.Enclosures[sp] = len(enc.occupants)
	}
	return occ
}
