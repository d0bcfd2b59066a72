package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

func TestDedup_KeepsHighestThresholdPerCategory(t *testing.T) {
	d := NewDeduper()

	matches := []models.MatchedFilter{
		{FilterID: "yuya_mint_1m"},
		{FilterID: "yuya_mint_10m"},
		{FilterID: "yuya_mint_30m"},
	}

	out := d.Dedup(matches)
	require.Len(t, out, 1)
	require.Equal(t, "yuya_mint_30m", out[0].FilterID)
}

func TestDedup_MintAndBurnRankedIndependently(t *testing.T) {
	d := NewDeduper()

	matches := []models.MatchedFilter{
		{FilterID: "yuya_mint_1m"},
		{FilterID: "yuya_mint_10m"},
		{FilterID: "yuya_burn_1m"},
		{FilterID: "yuya_burn_30m"},
	}

	out := d.Dedup(matches)
	ids := map[string]bool{}
	for _, m := range out {
		ids[m.FilterID] = true
	}
	require.Len(t, out, 2)
	require.True(t, ids["yuya_mint_10m"])
	require.True(t, ids["yuya_burn_30m"])
}

func TestDedup_UnrecognizedSuffixPassesThrough(t *testing.T) {
	d := NewDeduper()

	matches := []models.MatchedFilter{
		{FilterID: "usdc-large-transfer"},
		{FilterID: "usdc-large-burn"},
	}

	out := d.Dedup(matches)
	require.Len(t, out, 2)
}

func TestDedup_SingleMatchIsNoOp(t *testing.T) {
	d := NewDeduper()
	matches := []models.MatchedFilter{{FilterID: "only-one"}}
	require.Equal(t, matches, d.Dedup(matches))
}

func TestCategoryFor(t *testing.T) {
	require.Equal(t, "mint", categoryFor("yuya_mint_1m"))
	require.Equal(t, "burn", categoryFor("yuya_burn_30m"))
	require.Equal(t, "usdc-large-transfer", categoryFor("usdc-large-transfer"))
}

func TestParseThresholdSuffix(t *testing.T) {
	v, ok := parseThresholdSuffix("yuya_mint_30m")
	require.True(t, ok)
	require.Equal(t, 30, v)

	_, ok = parseThresholdSuffix("usdc-large-transfer")
	require.False(t, ok)
}
