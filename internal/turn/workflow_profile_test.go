package turn

import (
	"testing"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestStructuredItemNames(t *testing.T) {
	items := []domain.StructuredItem{
		{Name: "Metformin", Dose: "500mg", Timing: "morning"},
		{Name: "Vitamin D"},
	}
	require.Equal(t, []string{"Metformin", "Vitamin D"}, structuredItemNames(items))
	require.Equal(t, []string{}, structuredItemNames(nil))
}

func TestJoinOrNone(t *testing.T) {
	require.Equal(t, "none", joinOrNone(nil))
	require.Equal(t, "none", joinOrNone([]string{}))
	require.Equal(t, "a, b", joinOrNone([]string{"a", "b"}))
}
