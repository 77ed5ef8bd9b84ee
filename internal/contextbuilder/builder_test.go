package contextbuilder

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSelectSections_NeverExceedsBudgetProperty is Properties 1 and 6
// (context budget containment): whatever mix of required/optional sections
// is handed in, the assembled prompt never exceeds bud.maxTotal, since
// required sections are clipped to fit and optional sections are dropped
// whole rather than partially included.
func TestSelectSections_NeverExceedsBudgetProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("selectSections output never exceeds bud.maxTotal", prop.ForAll(
		func(lens []int, requireds []bool, isLog bool) bool {
			category := "ask_nutrition"
			if isLog {
				category = "log_food"
			}
			bud := budgetFor(category)

			n := len(lens)
			if len(requireds) < n {
				n = len(requireds)
			}
			sections := make([]section, 0, n)
			for i := 0; i < n; i++ {
				sections = append(sections, section{
					text:     strings.Repeat("x", lens[i]),
					required: requireds[i],
				})
			}

			return len(selectSections(sections, bud)) <= bud.maxTotal
		},
		gen.SliceOfN(6, gen.IntRange(0, 25000)),
		gen.SliceOfN(6, gen.Bool()),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestSelectSections_RequiredSectionSurvivesClippingWhenOversized(t *testing.T) {
	bud := budgetFor("ask_nutrition")
	oversized := strings.Repeat("y", bud.maxTotal*2)

	out := selectSections([]section{{text: oversized, required: true}}, bud)

	if out == "" {
		t.Fatal("a required section must survive in clipped form, not be dropped entirely")
	}
	if len(out) > bud.maxTotal {
		t.Fatalf("clipped required section length %d exceeds budget %d", len(out), bud.maxTotal)
	}
}

func TestSelectSections_OptionalSectionDroppedWholeWhenItWouldOverflow(t *testing.T) {
	bud := budgetFor("ask_nutrition")
	fitsAlone := strings.Repeat("a", bud.maxTotal-100)
	optionalOverflow := strings.Repeat("b", 500)

	out := selectSections([]section{
		{text: fitsAlone, required: true},
		{text: optionalOverflow, required: false},
	}, bud)

	if strings.Contains(out, "b") {
		t.Fatal("optional section that would overflow the budget must be dropped whole, never partially included")
	}
}
