package sanctuary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetails(t *testing.T) {
	r := NewRegistry()
	p, err := r.Intake(IntakeRequest{
		Name: "Bob", Species: SpeciesDrill, Sex: SexMale,
		Size: 10, Weight: 20, Age: 5, Food: FoodEggs,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bob - 5 - DRILL - MALE - EGGS - Not Medicated", p.Details())
	r.Medicate(p)
	assert.Equal(t, "Bob - 5 - DRILL - MALE - EGGS - Medicated", p.Details())
	assert.Equal(t, []string{"Bob - 5 - DRILL - MALE - EGGS - Medicated"}, r.IsolationDetails())
}

func TestEnclosureSummaries(t *testing.T) {
	r := NewRegistry()

	sums := r.EnclosureSummaries()
	require.Len(t, sums, len(AllSpecies()))
	for i, sp := range AllSpecies() {
		assert.Equal(t, sp, sums[i].Species)
		assert.Empty(t, sums[i].Lines)
	}
	assert.Equal(t, "Enclosure for DRILL:\n", sums[0].String())

	for _, name := range []string{"Zed", "Amy"} {
		req := validRequest(name)
		req.Species = SpeciesHowler
		req.Sex = SexFemale
		req.Food = FoodLeaves
		p, err := r.Intake(req)
		require.NoError(t, err)
		r.Medicate(p)
		require.NoError(t, r.ReleaseFromIsolation(p))
		require.NoError(t, r.TransferToEnclosure(p))
	}

	howler := r.EnclosureSummaries()[2]
	assert.Equal(t, SpeciesHowler, howler.Species)
	assert.Equal(t,
		"Enclosure for HOWLER:\n"+
			"Name: Zed, Sex: FEMALE, Favorite Food: LEAVES\n"+
			"Name: Amy, Sex: FEMALE, Favorite Food: LEAVES\n",
		howler.String())
}

func TestRoster(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{RosterHeader}, r.Roster())

	charlie, _ := r.Intake(validRequest("Charlie"))
	_, _ = r.Intake(validRequest("Alice"))
	_, _ = r.Intake(validRequest("Bob"))

	r.Medicate(charlie)
	require.NoError(t, r.ReleaseFromIsolation(charlie))
	require.NoError(t, r.TransferToEnclosure(charlie))

	assert.Equal(t, []string{
		RosterHeader,
		"Name: Alice, Age: 5, Sex: MALE, Food: EGGS",
		"Name: Bob, Age: 5, Sex: MALE, Food: EGGS",
		"Name: Charlie, Age: 5, Sex: MALE, Food: EGGS",
	}, r.Roster())
}

func TestRoster_AlphabeticalAfterHeader(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"Zoe", "Amy", "Ben"} {
		_, err := r.Intake(validRequest(name))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		RosterHeader,
		"Name: Amy, Age: 5, Sex: MALE, Food: EGGS",
		"Name: Ben, Age: 5, Sex: MALE, Food: EGGS",
		"Name: Zoe, Age: 5, Sex: MALE, Food: EGGS",
	}, r.Roster())
}

func TestRoster_ExcludesDetached(t *testing.T) {
	r := NewRegistry()
	p, _ := r.Intake(validRequest("Gone"))
	r.Medicate(p)
	require.NoError(t, r.ReleaseFromIsolation(p))

	assert.Equal(t, []string{RosterHeader}, r.Roster())
}
