package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderTemplate_SubstitutesDottedPath(t *testing.T) {
	values := map[string]any{
		"tx": map[string]any{"amount": 25000.0},
	}
	got := renderTemplate("transfer of ${tx.amount} detected", values)
	require.Equal(t, "transfer of 25.00K detected", got)
}

func TestRenderTemplate_MissingPathLeftUntouched(t *testing.T) {
	values := map[string]any{"tx": map[string]any{"amount": 1.0}}
	got := renderTemplate("see ${tx.nonexistent}", values)
	require.Equal(t, "see ${tx.nonexistent}", got)
}

func TestRenderTemplate_IdentifierPathsRenderVerbatim(t *testing.T) {
	values := map[string]any{
		"slot":      uint64(123456789),
		"signature": "5vC9...xyz",
	}
	got := renderTemplate("slot ${slot} sig ${signature}", values)
	require.Equal(t, "slot 123456789 sig 5vC9...xyz", got)
}

func TestRenderTemplate_ArrayIndexing(t *testing.T) {
	values := map[string]any{
		"matches": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
	}
	got := renderTemplate("${matches.1.name}", values)
	require.Equal(t, "second", got)
}

func TestFormatNumeric_MagnitudeSuffixes(t *testing.T) {
	require.Equal(t, "1.00K", formatNumeric(1000))
	require.Equal(t, "2.50M", formatNumeric(2_500_000))
	require.Equal(t, "42", formatNumeric(42))
}
