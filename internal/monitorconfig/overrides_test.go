package monitorconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

func TestApplyEnvOverrides_RewritesThresholdWhenSet(t *testing.T) {
	filters := []models.FilterConfig{
		{
			ID: "usdc-large-transfer",
			Condition: models.ConditionSet{
				AllOf: []models.Condition{
					{Kind: models.ConditionTokenTransfer, Amount: 50000},
				},
			},
		},
	}

	env := map[string]string{"FILTER_USDC_LARGE_TRANSFER_THRESHOLD": "75000"}
	got := ApplyEnvOverrides(filters, func(k string) string { return env[k] })

	require.Equal(t, float64(75000), got[0].Condition.AllOf[0].Amount)
}

func TestApplyEnvOverrides_LeavesUnmatchedFiltersAlone(t *testing.T) {
	filters := []models.FilterConfig{
		{
			ID: "usdc-large-transfer",
			Condition: models.ConditionSet{
				AllOf: []models.Condition{{Kind: models.ConditionTokenTransfer, Amount: 50000}},
			},
		},
	}

	got := ApplyEnvOverrides(filters, func(string) string { return "" })
	require.Equal(t, float64(50000), got[0].Condition.AllOf[0].Amount)
}

func TestApplyEnvOverrides_IgnoresUnparsableValue(t *testing.T) {
	filters := []models.FilterConfig{
		{
			ID: "usdc-large-transfer",
			Condition: models.ConditionSet{
				AllOf: []models.Condition{{Kind: models.ConditionTokenTransfer, Amount: 50000}},
			},
		},
	}

	env := map[string]string{"FILTER_USDC_LARGE_TRANSFER_THRESHOLD": "not-a-number"}
	got := ApplyEnvOverrides(filters, func(k string) string { return env[k] })
	require.Equal(t, float64(50000), got[0].Condition.AllOf[0].Amount)
}

func TestEnvKeyForFilter_NonAlphanumericBecomesUnderscore(t *testing.T) {
	require.Equal(t, "FILTER_USDC_LARGE_TRANSFER_THRESHOLD", envKeyForFilter("usdc-large-transfer"))
}

func TestBuiltinExamples_EmptyMintReturnsNil(t *testing.T) {
	require.Nil(t, BuiltinExamples(""))
}

func TestBuiltinExamples_ThreeTiersWithIncreasingSeverity(t *testing.T) {
	filters := BuiltinExamples("mint123")
	require.Len(t, filters, 3)

	require.Equal(t, "watched_mint_1m", filters[0].ID)
	require.Equal(t, "watched_mint_30m", filters[2].ID)

	require.Equal(t, "critical", filters[2].Actions[0].Severity)
	require.Equal(t, "info", filters[0].Actions[0].Severity)
}
