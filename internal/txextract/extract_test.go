package txextract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

func TestDiffTokenBalances_ChangeIsUIScaledNotRawAmount(t *testing.T) {
	// A mint with 6 decimals: raw amount delta is 1_000_000 (1 token's worth
	// of base units), but the UI-scaled delta is exactly 1.0. If Change were
	// computed from raw Amount instead of UIAmount, this test would see
	// 1_000_000 instead of 1.
	pre := []models.TokenBalance{
		{AccountIndex: 0, Mint: testMint, Amount: 5_000_000, Decimals: 6, UIAmount: 5.0},
	}
	post := []models.TokenBalance{
		{AccountIndex: 0, Mint: testMint, Amount: 6_000_000, Decimals: 6, UIAmount: 6.0},
	}

	changes := diffTokenBalances(pre, post)
	require.Len(t, changes, 1)

	c := changes[0]
	require.Equal(t, 1.0, c.Change, "Change must be the UI-scaled delta (6.0 - 5.0), not the raw delta (1_000_000)")
	require.Equal(t, int64(5_000_000), c.PreAmount)
	require.Equal(t, int64(6_000_000), c.PostAmount)
	require.Equal(t, 5.0, c.PreUIAmount)
	require.Equal(t, 6.0, c.PostUIAmount)
	require.Equal(t, uint8(6), c.Decimals)
}

func TestDiffTokenBalances_NoChangeWhenUIAmountEqual(t *testing.T) {
	pre := []models.TokenBalance{
		{AccountIndex: 1, Mint: testMint, Amount: 100, Decimals: 9, UIAmount: 0.0000001},
	}
	post := []models.TokenBalance{
		{AccountIndex: 1, Mint: testMint, Amount: 100, Decimals: 9, UIAmount: 0.0000001},
	}

	require.Empty(t, diffTokenBalances(pre, post))
}

func TestDiffTokenBalances_OneSidedKeyZeroFillsTheOther(t *testing.T) {
	// Account only appears post-transaction: a freshly created token account.
	post := []models.TokenBalance{
		{AccountIndex: 2, Mint: testMint, Amount: 2_500_000, Decimals: 6, UIAmount: 2.5},
	}

	changes := diffTokenBalances(nil, post)
	require.Len(t, changes, 1)
	require.Equal(t, 2.5, changes[0].Change)
	require.Equal(t, int64(0), changes[0].PreAmount)
	require.Equal(t, int64(2_500_000), changes[0].PostAmount)
}

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
