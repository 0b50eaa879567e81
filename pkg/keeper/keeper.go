package keeper

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/primatehaven/sanctuary/pkg/policy"
	"github.com/primatehaven/sanctuary/pkg/sanctuary"
	"github.com/primatehaven/sanctuary/pkg/telemetry"
)

// Operation names as they appear in spans, logs and metrics.
const (
	OpAdmit                = "admit"
	OpMedicate             = "medicate"
	OpMoveToEnclosure      = "move_to_enclosure"
	OpReleaseFromEnclosure = "release_from_enclosure"
)

// Admitter evaluates admission policies.
type Admitter interface {
	Evaluate(ctx context.Context, input policy.Input) (*policy.Result, error)
}

// Keeper drives the intake workflow on a Registry by primate name, the way
// the keepers at the front desk do: admit, medicate, move to the enclosure.
//
// Mutating calls are serialized so multi-step flows such as MoveToEnclosure
// can be rolled back without interference.
type Keeper struct {
	registry *sanctuary.Registry
	policy   Admitter
	logger   *telemetry.Logger
	tracer   *telemetry.Tracer
	metrics  *telemetry.Metrics
	events   *telemetry.EventPublisher

	mu sync.Mutex
}

// Option configures a Keeper.
type Option func(*Keeper)

// WithPolicy evaluates admission policies before intake and transfer.
func WithPolicy(a Admitter) Option {
	return func(k *Keeper) { k.policy = a }
}

// WithLogger sets the logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(k *Keeper) {
		if l != nil {
			k.logger = l.NewComponentLogger("keeper")
		}
	}
}

// WithMetrics records operation metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(k *Keeper) { k.metrics = m }
}

// WithTracer records a span per operation.
func WithTracer(t *telemetry.Tracer) Option {
	return func(k *Keeper) {
		if t != nil {
			k.tracer = t
		}
	}
}

// WithEvents publishes domain events.
func WithEvents(p *telemetry.EventPublisher) Option {
	return func(k *Keeper) { k.events = p }
}

// WithTelemetry wires logger, tracer, metrics and events from t.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(k *Keeper) {
		if t == nil {
			return
		}
		WithLogger(t.Logger)(k)
		WithTracer(t.Tracer)(k)
		WithMetrics(t.Metrics)(k)
		WithEvents(t.Events)(k)
	}
}

// New creates a Keeper over registry.
func New(registry *sanctuary.Registry, opts ...Option) *Keeper {
	k := &Keeper{
		registry: registry,
		logger:   telemetry.NopLogger(),
		tracer:   telemetry.NopTracer(),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.refreshGauges()
	return k
}

// Registry returns the underlying registry.
func (k *Keeper) Registry() *sanctuary.Registry {
	return k.registry
}

// Admit evaluates the intake policies and admits the primate into the first
// free isolation unit.
func (k *Keeper) Admit(ctx context.Context, req sanctuary.IntakeRequest) (p *sanctuary.Primate, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ctx, span, done := k.begin(ctx, OpAdmit, req.Name)
	defer func() { done(err) }()
	span.SetAttributes(telemetry.AttrPrimateSpecies.String(string(req.Species)))

	if err := k.registry.ValidateIntake(req); err != nil {
		return nil, err
	}

	if k.policy != nil {
		input := policy.IntakeInput(req, k.registry.Names(), k.registry.Occupancy())
		if err := k.admit(ctx, span, OpAdmit, input); err != nil {
			return nil, err
		}
	}

	p, err = k.registry.Intake(req)
	if err != nil {
		return nil, err
	}

	unit := ""
	if u, ok := k.registry.IsolationUnitOf(p); ok {
		unit = u.ID()
	}
	span.SetAttributes(
		telemetry.AttrPrimateID.String(p.ID().String()),
		telemetry.AttrHousing.String(unit),
	)

	k.metrics.RecordIntake(string(p.Species()))
	_ = k.events.PublishAdmitted(p.ID().String(), p.Name(), string(p.Species()), unit)
	telemetry.FromContext(ctx).Info().
		Str("primate", p.Name()).
		Str("species", string(p.Species())).
		Str("unit", unit).
		Msg("Primate admitted")
	return p, nil
}

// Medicate records medical care for the named isolated primate.
func (k *Keeper) Medicate(ctx context.Context, name string) (p *sanctuary.Primate, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ctx, _, done := k.begin(ctx, OpMedicate, name)
	defer func() { done(err) }()

	p, err = k.findIsolated(name, OpMedicate)
	if err != nil {
		return nil, err
	}

	k.registry.Medicate(p)
	_ = k.events.PublishMedicated(p.ID().String(), p.Name())
	telemetry.FromContext(ctx).Info().Str("primate", p.Name()).Msg("Primate medicated")
	return p, nil
}

// MoveToEnclosure releases the named primate from isolation and transfers it
// to its species enclosure. If the transfer fails the primate is returned to
// the isolation unit it came from, so a failed call leaves the registry as it
// was.
func (k *Keeper) MoveToEnclosure(ctx context.Context, name string) (p *sanctuary.Primate, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ctx, span, done := k.begin(ctx, OpMoveToEnclosure, name)
	defer func() { done(err) }()

	p, err = k.findIsolated(name, OpMoveToEnclosure)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		telemetry.AttrPrimateID.String(p.ID().String()),
		telemetry.AttrPrimateSpecies.String(string(p.Species())),
	)

	if k.policy != nil {
		input := policy.TransferInput(p, k.registry.Names(), k.registry.Occupancy())
		if err := k.admit(ctx, span, OpMoveToEnclosure, input); err != nil {
			return nil, err
		}
	}

	unit, ok := k.registry.IsolationUnitOf(p)
	if !ok {
		return nil, k.unknown(name, OpMoveToEnclosure)
	}
	if err := k.registry.ReleaseFromIsolation(p); err != nil {
		return nil, err
	}

	if err := k.registry.TransferToEnclosure(p); err != nil {
		if rbErr := k.registry.ReturnToIsolation(p, unit.ID()); rbErr != nil {
			_ = k.events.PublishDetached(p.ID().String(), p.Name(), string(p.Species()))
			telemetry.FromContext(ctx).Error().Err(rbErr).
				Str("primate", p.Name()).
				Msg("Rollback to isolation failed, primate is detached")
			return nil, err
		}
		telemetry.FromContext(ctx).Warn().Err(err).
			Str("primate", p.Name()).
			Str("unit", unit.ID()).
			Msg("Transfer failed, primate returned to isolation")
		return nil, err
	}

	_ = k.events.PublishReleased(p.ID().String(), p.Name())
	_ = k.events.PublishTransferred(p.ID().String(), p.Name(), string(p.Species()))
	telemetry.FromContext(ctx).Info().
		Str("primate", p.Name()).
		Str("enclosure", string(p.Species())).
		Msg("Primate moved to enclosure")
	return p, nil
}

// ReleaseFromEnclosure removes the named primate from its enclosure. The
// primate is no longer tracked afterwards.
func (k *Keeper) ReleaseFromEnclosure(ctx context.Context, name string) (p *sanctuary.Primate, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ctx, _, done := k.begin(ctx, OpReleaseFromEnclosure, name)
	defer func() { done(err) }()

	p, ok := k.registry.FindInEnclosures(name)
	if !ok {
		return nil, k.unknown(name, OpReleaseFromEnclosure)
	}

	if err := k.registry.ReleaseFromEnclosure(p); err != nil {
		return nil, err
	}

	_ = k.events.PublishDetached(p.ID().String(), p.Name(), string(p.Species()))
	telemetry.FromContext(ctx).Info().Str("primate", p.Name()).Msg("Primate released from enclosure")
	return p, nil
}

// Find looks the name up in isolation first, then in the enclosures.
func (k *Keeper) Find(name string) (*sanctuary.Primate, bool) {
	if p, ok := k.registry.FindByName(name); ok {
		return p, true
	}
	return k.registry.FindInEnclosures(name)
}

// IsolationView returns the details line of every isolated primate.
func (k *Keeper) IsolationView() []string {
	return k.registry.IsolationDetails()
}

// EnclosureView returns the rendered summary of every enclosure.
func (k *Keeper) EnclosureView() []string {
	summaries := k.registry.EnclosureSummaries()
	out := make([]string, len(summaries))
	for i, s := range summaries {
		out[i] = s.String()
	}
	return out
}

// Roster returns the alphabetical roster with its header.
func (k *Keeper) Roster() []string {
	return k.registry.Roster()
}

func (k *Keeper) findIsolated(name, op string) (*sanctuary.Primate, error) {
	p, ok := k.registry.FindByName(name)
	if !ok {
		return nil, k.unknown(name, op)
	}
	return p, nil
}

func (k *Keeper) unknown(name, op string) error {
	msg := fmt.Sprintf("no primate named %q", name)
	if s := k.Suggest(name); s != "" {
		msg += fmt.Sprintf(", did you mean %q?", s)
	}
	return sanctuary.NewNotFoundError(msg).
		WithCode(sanctuary.ErrCodeUnknownPrimate).
		WithOperation(op).
		WithPrimate(name)
}

// admit evaluates input and turns a denial into a validation error.
// Evaluation failures are logged and do not block.
func (k *Keeper) admit(ctx context.Context, span trace.Span, op string, input policy.Input) error {
	logger := telemetry.FromContext(ctx)

	result, err := k.policy.Evaluate(ctx, input)
	if err != nil {
		logger.Error().Err(err).Msg("Policy evaluation failed")
		return nil
	}

	for _, v := range result.Violations {
		k.metrics.RecordPolicyViolation(v.Policy, string(v.Severity))
		_ = k.events.PublishPolicyViolation(input.Primate.Name, v.Policy, string(v.Severity), v.Message, !result.Allowed)
		logger.Warn().Str("policy", v.Policy).Str("severity", string(v.Severity)).Msg(v.Message)
	}
	for _, w := range result.Warnings {
		k.metrics.RecordPolicyViolation(w.Policy, string(w.Severity))
		_ = k.events.PublishPolicyViolation(input.Primate.Name, w.Policy, string(w.Severity), w.Message, false)
		logger.Info().Str("policy", w.Policy).Str("severity", string(w.Severity)).Msg(w.Message)
	}
	span.SetAttributes(telemetry.AttrPolicyViolations.Int(len(result.Violations) + len(result.Warnings)))

	if result.Allowed {
		return nil
	}

	v := result.Violations[0]
	return sanctuary.NewValidationError("", fmt.Sprintf("denied by policy %s: %s", v.Policy, v.Message)).
		WithCode(sanctuary.ErrCodePolicyDenied).
		WithOperation(op).
		WithPrimate(input.Primate.Name)
}

// begin opens the span and operation logger. The returned func records the
// outcome and must be called exactly once.
func (k *Keeper) begin(ctx context.Context, op, name string) (context.Context, trace.Span, func(error)) {
	ctx, span := k.tracer.StartOperationSpan(ctx, op, name)
	logger := k.logger.WithOperation(op).WithField("primate", name)
	if span.SpanContext().IsValid() {
		logger = logger.WithField("trace_id", span.SpanContext().TraceID().String())
	}
	ctx = logger.WithContext(ctx)
	timer := telemetry.NewTimer()

	return ctx, span, func(err error) {
		status := "success"
		if err != nil {
			status = "failure"
			class := string(sanctuary.ClassOf(err))
			code := sanctuary.CodeOf(err)
			if class == "" {
				class = "internal"
			}
			span.SetAttributes(
				telemetry.AttrErrorClass.String(class),
				telemetry.AttrErrorCode.String(code),
			)
			telemetry.RecordError(span, err)
			k.metrics.RecordError(class, code)
			_ = k.events.PublishError(op, name, err)
			logger.Debug().Err(err).Msg("Operation failed")
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
		k.metrics.RecordOperation(op, status, timer.Duration())
		k.refreshGauges()
	}
}

func (k *Keeper) refreshGauges() {
	if !k.metrics.Enabled() {
		return
	}
	occ := k.registry.Occupancy()
	k.metrics.SetIsolation(occ.IsolationUsed, occ.IsolationTotal)
	for _, sp := range sanctuary.AllSpecies() {
		k.metrics.SetEnclosurePopulation(string(sp), occ.Enclosures[sp])
	}
}
