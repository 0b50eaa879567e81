package sanctuary

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest(name string) IntakeRequest {
	return IntakeRequest{
		Name:    name,
		Species: SpeciesDrill,
		Sex:     SexMale,
		Size:    10,
		Weight:  20,
		Age:     5,
		Food:    FoodEggs,
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	units := r.IsolationUnits()
	require.Len(t, units, DefaultIsolationUnits)
	for i, u := range units {
		assert.Equal(t, fmt.Sprint(i), u.ID())
		assert.Equal(t, KindIsolation, u.Kind())
		assert.Equal(t, 1, u.Capacity())
	}

	for _, sp := range AllSpecies() {
		enc, ok := r.EnclosureFor(sp)
		require.True(t, ok, "enclosure for %s", sp)
		assert.Equal(t, sp, enc.Species())
		assert.Equal(t, Unlimited, enc.Capacity())
		assert.Equal(t, 0, enc.Len())
	}

	occ := r.Occupancy()
	assert.Equal(t, 0, occ.IsolationUsed)
	assert.Equal(t, DefaultIsolationUnits, occ.Free())
}

func TestNewRegistry_IsolationUnits(t *testing.T) {
	assert.Len(t, NewRegistry(WithIsolationUnits(3)).IsolationUnits(), 3)
	assert.Len(t, NewRegistry(WithIsolationUnits(0)).IsolationUnits(), DefaultIsolationUnits)
}

func TestIntake(t *testing.T) {
	r := NewRegistry()

	p, err := r.Intake(validRequest("Bob"))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "Bob", p.Name())
	assert.True(t, p.Isolated())
	assert.False(t, p.Medicated())
	assert.True(t, r.InIsolation(p))
	assert.Equal(t, StageIsolated, r.StageOf(p))

	found, ok := r.FindByName("Bob")
	require.True(t, ok)
	assert.True(t, found.Same(p))
}

func TestIntake_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*IntakeRequest)
		field  string
	}{
		{"empty name", func(r *IntakeRequest) { r.Name = "" }, "name"},
		{"blank name", func(r *IntakeRequest) { r.Name = "   " }, "name"},
		{"missing species", func(r *IntakeRequest) { r.Species = "" }, "species"},
		{"unknown species", func(r *IntakeRequest) { r.Species = "GORILLA" }, "species"},
		{"missing sex", func(r *IntakeRequest) { r.Sex = "" }, "sex"},
		{"zero size", func(r *IntakeRequest) { r.Size = 0 }, "size"},
		{"negative weight", func(r *IntakeRequest) { r.Weight = -1 }, "weight"},
		{"zero age", func(r *IntakeRequest) { r.Age = 0 }, "age"},
		{"missing food", func(r *IntakeRequest) { r.Food = "" }, "food"},
		{"first failing field wins", func(r *IntakeRequest) {
			r.Name = ""
			r.Age = 0
		}, "name"},
		{"size before age", func(r *IntakeRequest) {
			r.Size = 0
			r.Age = -3
		}, "size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			req := validRequest("Bob")
			tt.modify(&req)

			p, err := r.Intake(req)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, IsValidation(err))

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.field, serr.Field)
			assert.Empty(t, r.Isolated())
		})
	}
}

func TestIntake_KeepsNameAsGiven(t *testing.T) {
	r := NewRegistry()
	p, err := r.Intake(validRequest(" Bob "))
	require.NoError(t, err)
	assert.Equal(t, " Bob ", p.Name())

	_, ok := r.FindByName("Bob")
	assert.False(t, ok)
}

func TestIntake_CapacityExhausted(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < DefaultIsolationUnits; i++ {
		_, err := r.Intake(validRequest(fmt.Sprintf("P%02d", i)))
		require.NoError(t, err)
	}

	p, err := r.Intake(validRequest("Overflow"))
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, IsCapacity(err))
	assert.ErrorIs(t, err, &Error{Class: ErrorClassCapacity, Code: ErrCodeNoIsolation})

	assert.Len(t, r.Isolated(), DefaultIsolationUnits)
	_, ok := r.FindByName("Overflow")
	assert.False(t, ok)
	assert.Len(t, r.Roster(), DefaultIsolationUnits+1)
}

func TestIntake_FillsFirstFreeUnit(t *testing.T) {
	r := NewRegistry(WithIsolationUnits(3))
	a, _ := r.Intake(validRequest("A"))
	_, _ = r.Intake(validRequest("B"))
	_, _ = r.Intake(validRequest("C"))

	r.Medicate(a)
	require.NoError(t, r.ReleaseFromIsolation(a))

	d, err := r.Intake(validRequest("D"))
	require.NoError(t, err)
	assert.True(t, r.IsolationUnits()[0].Contains(d))
}

func TestMedicate_Idempotent(t *testing.T) {
	r := NewRegistry()
	p, err := r.Intake(validRequest("Bob"))
	require.NoError(t, err)

	r.Medicate(p)
	r.Medicate(p)
	assert.True(t, p.Medicated())
	assert.True(t, r.InIsolation(p))
	assert.Equal(t, StageMedicated, r.StageOf(p))
}

func TestReleaseFromIsolation(t *testing.T) {
	t.Run("not medicated", func(t *testing.T) {
		r := NewRegistry()
		p, _ := r.Intake(validRequest("Bob"))

		err := r.ReleaseFromIsolation(p)
		require.Error(t, err)
		assert.True(t, IsPrecondition(err))
		assert.True(t, r.InIsolation(p))
	})

	t.Run("medicated", func(t *testing.T) {
		r := NewRegistry()
		p, _ := r.Intake(validRequest("Bob"))
		r.Medicate(p)

		require.NoError(t, r.ReleaseFromIsolation(p))
		assert.False(t, r.InIsolation(p))
		assert.Equal(t, StageDetached, r.StageOf(p))
	})

	t.Run("not present", func(t *testing.T) {
		r := NewRegistry()
		p, _ := r.Intake(validRequest("Bob"))
		r.Medicate(p)
		require.NoError(t, r.ReleaseFromIsolation(p))

		err := r.ReleaseFromIsolation(p)
		assert.True(t, IsNotFound(err))
	})
}

func TestTransferToEnclosure(t *testing.T) {
	r := NewRegistry()
	p, err := r.Intake(validRequest("Bob"))
	require.NoError(t, err)
	unit, ok := r.IsolationUnitOf(p)
	require.True(t, ok)

	err = r.TransferToEnclosure(p)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.ErrorIs(t, err, &Error{Class: ErrorClassPrecondition, Code: ErrCodeNotMedicated})

	assert.True(t, r.InIsolation(p), "a failed transfer leaves the primate in isolation")
	after, ok := r.IsolationUnitOf(p)
	require.True(t, ok)
	assert.Same(t, unit, after)
	assert.Equal(t, StageIsolated, r.StageOf(p))

	r.Medicate(p)
	require.NoError(t, r.ReleaseFromIsolation(p))
	require.NoError(t, r.TransferToEnclosure(p))

	assert.False(t, r.InIsolation(p))
	enc, _ := r.EnclosureFor(SpeciesDrill)
	assert.True(t, enc.Contains(p))
	assert.Equal(t, StageEnclosed, r.StageOf(p))

	_, ok = r.FindByName("Bob")
	assert.False(t, ok, "enclosure occupants are not found by FindByName")
	found, ok := r.FindInEnclosures("Bob")
	require.True(t, ok)
	assert.True(t, found.Same(p))
}

func TestTransferToEnclosure_NeverIsolated(t *testing.T) {
	r := NewRegistry()
	p := newPrimate(validRequest("Stray"), r.now())
	p.markMedicated()

	err := r.TransferToEnclosure(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, &Error{Class: ErrorClassPrecondition, Code: ErrCodeNotIsolated})
	assert.Equal(t, StageUntracked, r.StageOf(p))
}

func TestTransferToEnclosure_Full(t *testing.T) {
	r := NewRegistry(WithEnclosureCapacity(1))
	enc, _ := r.EnclosureFor(SpeciesDrill)
	assert.Equal(t, 1, enc.Capacity())

	for _, name := range []string{"First", "Second"} {
		p, err := r.Intake(validRequest(name))
		require.NoError(t, err)
		r.Medicate(p)
		require.NoError(t, r.ReleaseFromIsolation(p))
	}

	first, _ := r.FindByName("First")
	assert.Nil(t, first, "released primates are no longer found in isolation")

	p := newPrimate(validRequest("Third"), r.now())
	require.NoError(t, r.PlaceInIsolation(p))
	r.Medicate(p)
	require.NoError(t, r.ReleaseFromIsolation(p))
	require.NoError(t, r.TransferToEnclosure(p))

	q := newPrimate(validRequest("Fourth"), r.now())
	require.NoError(t, r.PlaceInIsolation(q))
	r.Medicate(q)
	require.NoError(t, r.ReleaseFromIsolation(q))
	err := r.TransferToEnclosure(q)
	require.Error(t, err)
	assert.True(t, IsCapacity(err))
	assert.Equal(t, ErrCodeEnclosureFull, CodeOf(err))
	assert.Equal(t, StageDetached, r.StageOf(q))
}

func TestReturnToIsolation(t *testing.T) {
	r := NewRegistry(WithIsolationUnits(3))
	a, err := r.Intake(validRequest("A"))
	require.NoError(t, err)
	b, err := r.Intake(validRequest("B"))
	require.NoError(t, err)

	r.Medicate(b)
	require.NoError(t, r.ReleaseFromIsolation(b))
	r.Medicate(a)
	require.NoError(t, r.ReleaseFromIsolation(a))

	require.NoError(t, r.ReturnToIsolation(b, "1"))
	unit, ok := r.IsolationUnitOf(b)
	require.True(t, ok)
	assert.Equal(t, "1", unit.ID(), "the lower free unit is not used")

	err = r.ReturnToIsolation(a, "1")
	assert.True(t, IsCapacity(err))
	err = r.ReturnToIsolation(a, "7")
	assert.True(t, IsNotFound(err))
	assert.False(t, r.InIsolation(a))
}

func TestNilPrimate(t *testing.T) {
	r := NewRegistry()

	for name, err := range map[string]error{
		"place":            r.PlaceInIsolation(nil),
		"return":           r.ReturnToIsolation(nil, "0"),
		"release":          r.ReleaseFromIsolation(nil),
		"transfer":         r.TransferToEnclosure(nil),
		"release_enclosed": r.ReleaseFromEnclosure(nil),
	} {
		assert.True(t, IsNotFound(err), name)
		assert.Equal(t, ErrCodeUnknownPrimate, CodeOf(err), name)
	}

	assert.NotPanics(t, func() { r.Medicate(nil) })
	assert.False(t, r.InIsolation(nil))
	assert.Equal(t, StageUntracked, r.StageOf(nil))
}

func TestReleaseFromEnclosure(t *testing.T) {
	r := NewRegistry()
	p, _ := r.Intake(validRequest("Bob"))

	err := r.ReleaseFromEnclosure(p)
	assert.True(t, IsNotFound(err))

	r.Medicate(p)
	require.NoError(t, r.ReleaseFromIsolation(p))
	require.NoError(t, r.TransferToEnclosure(p))
	require.NoError(t, r.ReleaseFromEnclosure(p))

	assert.Equal(t, StageDetached, r.StageOf(p))
	assert.Equal(t, []string{RosterHeader}, r.Roster())
}

func TestFindByName_FirstMatchByUnitOrder(t *testing.T) {
	r := NewRegistry()
	first, _ := r.Intake(validRequest("Twin"))
	second, _ := r.Intake(validRequest("Twin"))
	require.False(t, first.Same(second))

	found, ok := r.FindByName("Twin")
	require.True(t, ok)
	assert.True(t, found.Same(first))

	_, ok = r.FindByName("twin")
	assert.False(t, ok, "matching is case sensitive")
}

func TestRegistry_ConcurrentIntake(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Intake(validRequest(fmt.Sprintf("P%d", i)))
			errs <- err
			_ = r.Roster()
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, full int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case IsCapacity(err):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, DefaultIsolationUnits, ok)
	assert.Equal(t, 20, full)
}
