package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func TestToStructured_SplitsDoseFromName(t *testing.T) {
	got := ToStructured("Candesartan 4mg")
	assert.Equal(t, "Candesartan", got.Name)
	assert.Equal(t, "4mg", got.Dose)
}

func TestToStructured_NoDosePatternKeepsWholeStringAsName(t *testing.T) {
	got := ToStructured("Fish oil")
	assert.Equal(t, "Fish oil", got.Name)
	assert.Empty(t, got.Dose)
}

// TestParseList_MergeList_RoundTrip is Property 5 (structured-list
// round-trip): merging a canonical list with itself is a fixed point —
// it neither grows the list nor changes any field.
func TestParseList_MergeList_RoundTrip(t *testing.T) {
	seed := MergeList("", []domain.StructuredItem{
		{Name: "Lisinopril", Dose: "10mg", Timing: "morning"},
		{Name: "Vitamin D3", Dose: "2000 IU"},
	})
	require.NotEmpty(t, seed)

	items := ParseList(seed)
	require.Len(t, items, 2)

	again := MergeList(seed, items)
	require.Equal(t, seed, again, "merging a canonical list with itself must be a fixed point")

	roundTripped := ParseList(again)
	require.Len(t, roundTripped, 2)
	for i, item := range items {
		assert.Equal(t, item.Name, roundTripped[i].Name)
		assert.Equal(t, item.Dose, roundTripped[i].Dose)
		assert.Equal(t, item.Timing, roundTripped[i].Timing)
	}
}

func TestMergeList_LowSignalFamilyFragmentAbsorbedNotDuplicated(t *testing.T) {
	existing := MergeList("", []domain.StructuredItem{{Name: "Vitamin D3"}})

	merged := MergeList(existing, []domain.StructuredItem{{Name: "d3", Dose: "2000 IU"}})

	items := ParseList(merged)
	require.Len(t, items, 1, "a low-signal family fragment must be absorbed, not appended as a second row")
	assert.Equal(t, "Vitamin D3", items[0].Name)
	assert.Equal(t, "2000 IU", items[0].Dose)
}

func TestMergeList_DistinctSupplementsStayDistinct(t *testing.T) {
	merged := MergeList("", []domain.StructuredItem{
		{Name: "Magnesium Glycinate", Dose: "200mg"},
		{Name: "Omega-3", Dose: "1000mg"},
	})

	items := ParseList(merged)
	require.Len(t, items, 2)
}

func TestMergeList_ExactNameMatchUpdatesDoseInPlace(t *testing.T) {
	existing := MergeList("", []domain.StructuredItem{{Name: "Metformin", Dose: "500mg"}})

	merged := MergeList(existing, []domain.StructuredItem{{Name: "metformin", Dose: "1000mg"}})

	items := ParseList(merged)
	require.Len(t, items, 1)
	assert.Equal(t, "1000mg", items[0].Dose)
}

func TestIsGenericMedicationName_RejectsPlaceholders(t *testing.T) {
	assert.True(t, IsGenericMedicationName("my meds"))
	assert.True(t, IsGenericMedicationName("morning medication"))
	assert.True(t, IsGenericMedicationName(""))
	assert.False(t, IsGenericMedicationName("Lisinopril"))
}

func TestIsGenericSupplementName_RejectsPlaceholders(t *testing.T) {
	assert.True(t, IsGenericSupplementName("my vitamins"))
	assert.True(t, IsGenericSupplementName("daily supplement"))
	assert.False(t, IsGenericSupplementName("Vitamin D3"))
}

func TestCleanupList_MergesFamilyDuplicatesFromLegacyData(t *testing.T) {
	raw := `[{"name":"D3"},{"name":"Vitamin D3","dose":"5000 IU"}]`
	cleaned := CleanupList(raw)

	items := ParseList(cleaned)
	require.Len(t, items, 1)
	assert.Equal(t, "5000 IU", items[0].Dose)
}
