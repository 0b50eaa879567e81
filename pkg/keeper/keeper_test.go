package keeper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primatehaven/sanctuary/pkg/policy"
	"github.com/primatehaven/sanctuary/pkg/sanctuary"
	"github.com/primatehaven/sanctuary/pkg/telemetry"
)

func request(name string, species sanctuary.Species) sanctuary.IntakeRequest {
	return sanctuary.IntakeRequest{
		Name:    name,
		Species: species,
		Sex:     sanctuary.SexMale,
		Size:    10,
		Weight:  20,
		Age:     5,
		Food:    sanctuary.FoodNuts,
	}
}

type recorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *recorder) record(e telemetry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func syncEvents(t *testing.T) (*telemetry.EventPublisher, *recorder) {
	t.Helper()
	pub, err := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
	require.NoError(t, err)
	rec := &recorder{}
	pub.Subscribe(rec.record, nil)
	return pub, rec
}

type stubAdmitter struct {
	result *policy.Result
	err    error
	inputs []policy.Input
}

func (s *stubAdmitter) Evaluate(_ context.Context, input policy.Input) (*policy.Result, error) {
	s.inputs = append(s.inputs, input)
	return s.result, s.err
}

func TestAdmit(t *testing.T) {
	pub, rec := syncEvents(t)
	k := New(sanctuary.NewRegistry(), WithEvents(pub))

	p, err := k.Admit(context.Background(), request("Koko", sanctuary.SpeciesMangabey))
	require.NoError(t, err)
	assert.Equal(t, "Koko", p.Name())
	assert.True(t, p.Isolated())

	found, ok := k.Find("Koko")
	require.True(t, ok)
	assert.True(t, found.Same(p))

	assert.Equal(t, []string{telemetry.EventTypeAdmitted}, rec.types())
	assert.Equal(t, "0", rec.events[0].Data["unit"])
}

func TestAdmit_Invalid(t *testing.T) {
	pub, rec := syncEvents(t)
	adm := &stubAdmitter{result: &policy.Result{Allowed: true}}
	k := New(sanctuary.NewRegistry(), WithEvents(pub), WithPolicy(adm))

	req := request("", sanctuary.SpeciesDrill)
	_, err := k.Admit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, sanctuary.IsValidation(err))
	assert.Empty(t, adm.inputs, "invalid requests never reach policy evaluation")
	assert.Empty(t, k.Registry().Isolated())
	assert.Equal(t, []string{telemetry.EventTypeError}, rec.types())
}

func TestAdmit_PolicyDenied(t *testing.T) {
	pub, rec := syncEvents(t)
	adm := &stubAdmitter{result: &policy.Result{
		Allowed: false,
		Violations: []policy.Violation{{
			Policy:   "no-drills",
			Message:  "drills are full this week",
			Severity: policy.SeverityError,
		}},
	}}
	k := New(sanctuary.NewRegistry(), WithEvents(pub), WithPolicy(adm))

	_, err := k.Admit(context.Background(), request("Bob", sanctuary.SpeciesDrill))
	require.Error(t, err)
	assert.True(t, sanctuary.IsValidation(err))
	assert.Equal(t, sanctuary.ErrCodePolicyDenied, sanctuary.CodeOf(err))
	assert.Contains(t, err.Error(), "drills are full this week")
	assert.Empty(t, k.Registry().Isolated())

	require.Len(t, adm.inputs, 1)
	assert.Equal(t, policy.OperationIntake, adm.inputs[0].Operation)
	assert.Equal(t, 20, adm.inputs[0].Sanctuary.IsolationTotal)

	assert.Equal(t, []string{telemetry.EventTypePolicyViolation, telemetry.EventTypeError}, rec.types())
	assert.Equal(t, true, rec.events[0].Data["blocking"])
}

func TestAdmit_PolicyEvaluationFailureDoesNotBlock(t *testing.T) {
	adm := &stubAdmitter{err: errors.New("opa exploded")}
	k := New(sanctuary.NewRegistry(), WithPolicy(adm))

	_, err := k.Admit(context.Background(), request("Bob", sanctuary.SpeciesDrill))
	require.NoError(t, err)
}

func TestAdmit_BuiltinPoliciesWarnOnly(t *testing.T) {
	eng, err := policy.NewEngine(zerolog.Nop())
	require.NoError(t, err)
	pub, rec := syncEvents(t)
	k := New(sanctuary.NewRegistry(sanctuary.WithIsolationUnits(2)), WithPolicy(eng), WithEvents(pub))

	ctx := context.Background()
	_, err = k.Admit(ctx, request("Bob", sanctuary.SpeciesDrill))
	require.NoError(t, err)
	_, err = k.Admit(ctx, request("Bob", sanctuary.SpeciesDrill))
	require.NoError(t, err, "duplicate names are allowed")

	var warned []string
	for _, e := range rec.events {
		if e.Type == telemetry.EventTypePolicyViolation {
			warned = append(warned, e.Data["policy"].(string))
		}
	}
	assert.ElementsMatch(t, []string{"isolation-pressure", "duplicate-name"}, warned)
	assert.Len(t, k.Registry().Isolated(), 2)
}

func TestAdmit_DuplicateOfEnclosedName(t *testing.T) {
	eng, err := policy.NewEngine(zerolog.Nop())
	require.NoError(t, err)
	pub, rec := syncEvents(t)
	k := New(sanctuary.NewRegistry(), WithPolicy(eng), WithEvents(pub))

	ctx := context.Background()
	_, err = k.Admit(ctx, request("Bob", sanctuary.SpeciesDrill))
	require.NoError(t, err)
	_, err = k.Medicate(ctx, "Bob")
	require.NoError(t, err)
	_, err = k.MoveToEnclosure(ctx, "Bob")
	require.NoError(t, err)

	_, err = k.Admit(ctx, request("Bob", sanctuary.SpeciesSaki))
	require.NoError(t, err)

	var messages []string
	for _, e := range rec.events {
		if e.Type == telemetry.EventTypePolicyViolation && e.Data["policy"] == "duplicate-name" {
			messages = append(messages, e.Message)
		}
	}
	assert.Equal(t, []string{"duplicate-name: a primate named Bob is already in the sanctuary"}, messages)
}

func TestMedicate(t *testing.T) {
	k := New(sanctuary.NewRegistry())
	ctx := context.Background()

	_, err := k.Admit(ctx, request("Koko", sanctuary.SpeciesSaki))
	require.NoError(t, err)

	p, err := k.Medicate(ctx, "Koko")
	require.NoError(t, err)
	assert.True(t, p.Medicated())

	_, err = k.Medicate(ctx, "Koko")
	require.NoError(t, err, "medicating twice is harmless")
}

func TestMedicate_Unknown(t *testing.T) {
	k := New(sanctuary.NewRegistry())
	ctx := context.Background()

	_, err := k.Admit(ctx, request("Bubbles", sanctuary.SpeciesSaki))
	require.NoError(t, err)

	_, err = k.Medicate(ctx, "Bubles")
	require.Error(t, err)
	assert.True(t, sanctuary.IsNotFound(err))
	assert.Equal(t, sanctuary.ErrCodeUnknownPrimate, sanctuary.CodeOf(err))
	assert.Contains(t, err.Error(), `did you mean "Bubbles"?`)

	_, err = k.Medicate(ctx, "Zzzzzzzz")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestMoveToEnclosure(t *testing.T) {
	pub, rec := syncEvents(t)
	k := New(sanctuary.NewRegistry(), WithEvents(pub))
	ctx := context.Background()

	_, err := k.Admit(ctx, request("Koko", sanctuary.SpeciesSpider))
	require.NoError(t, err)

	_, err = k.MoveToEnclosure(ctx, "Koko")
	require.Error(t, err)
	assert.True(t, sanctuary.IsPrecondition(err))
	assert.Equal(t, sanctuary.ErrCodeNotMedicated, sanctuary.CodeOf(err))
	assert.Len(t, k.Registry().Isolated(), 1, "failed move leaves the primate in isolation")

	_, err = k.Medicate(ctx, "Koko")
	require.NoError(t, err)

	p, err := k.MoveToEnclosure(ctx, "Koko")
	require.NoError(t, err)
	assert.Equal(t, sanctuary.StageEnclosed, k.Registry().StageOf(p))
	assert.Empty(t, k.IsolationView())

	views := k.EnclosureView()
	assert.Contains(t, views[5], "Enclosure for SPIDER:\n")
	assert.Contains(t, views[5], "Name: Koko, Sex: MALE, Favorite Food: NUTS")

	assert.Equal(t, []string{
		telemetry.EventTypeAdmitted,
		telemetry.EventTypeError,
		telemetry.EventTypeMedicated,
		telemetry.EventTypeReleased,
		telemetry.EventTypeTransferred,
	}, rec.types())

	_, err = k.MoveToEnclosure(ctx, "Koko")
	require.Error(t, err)
	assert.True(t, sanctuary.IsNotFound(err), "enclosed primates are not found in isolation")
}

func TestMoveToEnclosure_RollbackWhenFull(t *testing.T) {
	reg := sanctuary.NewRegistry(sanctuary.WithEnclosureCapacity(1))
	k := New(reg)
	ctx := context.Background()

	for _, name := range []string{"First", "Second"} {
		_, err := k.Admit(ctx, request(name, sanctuary.SpeciesHowler))
		require.NoError(t, err)
		_, err = k.Medicate(ctx, name)
		require.NoError(t, err)
	}

	_, err := k.MoveToEnclosure(ctx, "First")
	require.NoError(t, err)

	_, err = k.MoveToEnclosure(ctx, "Second")
	require.Error(t, err)
	assert.True(t, sanctuary.IsCapacity(err))
	assert.Equal(t, sanctuary.ErrCodeEnclosureFull, sanctuary.CodeOf(err))

	p, ok := reg.FindByName("Second")
	require.True(t, ok, "primate is back in isolation")
	assert.Equal(t, sanctuary.StageMedicated, reg.StageOf(p))
	assert.Equal(t, 1, reg.Occupancy().IsolationUsed)
	assert.Equal(t, 1, reg.Occupancy().Enclosures[sanctuary.SpeciesHowler])
}

func TestMoveToEnclosure_RollbackKeepsUnit(t *testing.T) {
	reg := sanctuary.NewRegistry(
		sanctuary.WithIsolationUnits(3),
		sanctuary.WithEnclosureCapacity(1),
	)
	k := New(reg)
	ctx := context.Background()

	for _, r := range []sanctuary.IntakeRequest{
		request("A", sanctuary.SpeciesHowler),
		request("B", sanctuary.SpeciesDrill),
		request("C", sanctuary.SpeciesHowler),
	} {
		_, err := k.Admit(ctx, r)
		require.NoError(t, err)
	}
	for _, name := range []string{"A", "C"} {
		_, err := k.Medicate(ctx, name)
		require.NoError(t, err)
	}

	// Frees unit 0, below the units of B and C.
	_, err := k.MoveToEnclosure(ctx, "A")
	require.NoError(t, err)

	before := k.IsolationView()
	c, ok := reg.FindByName("C")
	require.True(t, ok)
	unit, ok := reg.IsolationUnitOf(c)
	require.True(t, ok)
	require.Equal(t, "2", unit.ID())

	_, err = k.MoveToEnclosure(ctx, "C")
	require.Error(t, err)
	assert.True(t, sanctuary.IsCapacity(err))

	assert.Equal(t, before, k.IsolationView())
	unit, ok = reg.IsolationUnitOf(c)
	require.True(t, ok)
	assert.Equal(t, "2", unit.ID(), "primate returns to the unit it left")
	assert.Zero(t, reg.IsolationUnits()[0].Len())
}

func TestMoveToEnclosure_PolicyDeniedBeforeRelease(t *testing.T) {
	adm := &stubAdmitter{result: &policy.Result{Allowed: true}}
	reg := sanctuary.NewRegistry()
	k := New(reg, WithPolicy(adm))
	ctx := context.Background()

	_, err := k.Admit(ctx, request("Koko", sanctuary.SpeciesTamarin))
	require.NoError(t, err)
	_, err = k.Medicate(ctx, "Koko")
	require.NoError(t, err)

	adm.result = &policy.Result{
		Violations: []policy.Violation{{Policy: "hold", Message: "vet hold", Severity: policy.SeverityCritical}},
	}
	_, err = k.MoveToEnclosure(ctx, "Koko")
	require.Error(t, err)
	assert.Equal(t, sanctuary.ErrCodePolicyDenied, sanctuary.CodeOf(err))
	assert.Len(t, reg.Isolated(), 1)

	last := adm.inputs[len(adm.inputs)-1]
	assert.Equal(t, policy.OperationTransfer, last.Operation)
	assert.True(t, last.Primate.Medicated)
}

func TestReleaseFromEnclosure(t *testing.T) {
	pub, rec := syncEvents(t)
	k := New(sanctuary.NewRegistry(), WithEvents(pub))
	ctx := context.Background()

	_, err := k.ReleaseFromEnclosure(ctx, "Ghost")
	require.Error(t, err)
	assert.True(t, sanctuary.IsNotFound(err))

	_, err = k.Admit(ctx, request("Koko", sanctuary.SpeciesGuereza))
	require.NoError(t, err)
	_, err = k.Medicate(ctx, "Koko")
	require.NoError(t, err)
	_, err = k.MoveToEnclosure(ctx, "Koko")
	require.NoError(t, err)

	p, err := k.ReleaseFromEnclosure(ctx, "Koko")
	require.NoError(t, err)
	assert.Equal(t, sanctuary.StageDetached, k.Registry().StageOf(p))
	_, ok := k.Find("Koko")
	assert.False(t, ok)

	types := rec.types()
	assert.Equal(t, telemetry.EventTypeDetached, types[len(types)-1])
}

func TestRoster(t *testing.T) {
	k := New(sanctuary.NewRegistry())
	ctx := context.Background()

	for _, name := range []string{"Zed", "Abe"} {
		_, err := k.Admit(ctx, request(name, sanctuary.SpeciesSquirrel))
		require.NoError(t, err)
	}
	_, err := k.Medicate(ctx, "Zed")
	require.NoError(t, err)
	_, err = k.MoveToEnclosure(ctx, "Zed")
	require.NoError(t, err)

	roster := k.Roster()
	require.Len(t, roster, 3)
	assert.Equal(t, sanctuary.RosterHeader, roster[0])
	assert.True(t, strings.HasPrefix(roster[1], "Name: Abe"))
	assert.True(t, strings.HasPrefix(roster[2], "Name: Zed"))
	assert.Len(t, k.IsolationView(), 1)
}

func TestMetrics(t *testing.T) {
	m, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Namespace: "test"})
	require.NoError(t, err)
	k := New(sanctuary.NewRegistry(sanctuary.WithIsolationUnits(3)), WithMetrics(m))
	ctx := context.Background()

	_, err = k.Admit(ctx, request("Koko", sanctuary.SpeciesDrill))
	require.NoError(t, err)
	_, err = k.Medicate(ctx, "Nobody")
	require.Error(t, err)

	expected := `
# HELP test_isolation_units_in_use Current number of occupied isolation units
# TYPE test_isolation_units_in_use gauge
test_isolation_units_in_use 1
# HELP test_isolation_units_total Number of provisioned isolation units
# TYPE test_isolation_units_total gauge
test_isolation_units_total 3
# HELP test_errors_by_class_total Total number of errors by error class
# TYPE test_errors_by_class_total counter
test_errors_by_class_total{class="not_found"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"test_isolation_units_in_use", "test_isolation_units_total", "test_errors_by_class_total"))

	count, err := testutil.GatherAndCount(m.Registry(), "test_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one success series and one failure series")
}

func TestConcurrentKeepers(t *testing.T) {
	k := New(sanctuary.NewRegistry())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('A' + i))
			if _, err := k.Admit(ctx, request(name, sanctuary.SpeciesDrill)); err != nil {
				t.Error(err)
				return
			}
			if _, err := k.Medicate(ctx, name); err != nil {
				t.Error(err)
				return
			}
			if _, err := k.MoveToEnclosure(ctx, name); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	occ := k.Registry().Occupancy()
	assert.Equal(t, 0, occ.IsolationUsed)
	assert.Equal(t, 20, occ.Enclosures[sanctuary.SpeciesDrill])
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		candidates []string
		want       string
	}{
		{"typo", "Bubles", []string{"Bubbles", "Koko"}, "Bubbles"},
		{"case", "koko", []string{"Bubbles", "Koko"}, "Koko"},
		{"too far", "Xylophone", []string{"Bubbles", "Koko"}, ""},
		{"exact match skipped", "Koko", []string{"Koko"}, ""},
		{"tie goes alphabetical", "Bo", []string{"Co", "Ao"}, "Ao"},
		{"empty", "", []string{"Koko"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, closest(tt.input, tt.candidates))
		})
	}
}
