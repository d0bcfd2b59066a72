package filterengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func tokenTransferFilter(id string, op models.ComparisonOperator, amount float64) models.FilterConfig {
	return models.FilterConfig{
		ID:      id,
		Name:    id,
		Enabled: true,
		Condition: models.ConditionSet{
			AllOf: []models.Condition{
				{Kind: models.ConditionTokenTransfer, Mint: testMint, Op: op, Amount: amount},
			},
		},
	}
}

func TestEvaluate_TokenTransfer_MagnitudeIgnoresSign(t *testing.T) {
	engine := New([]models.FilterConfig{tokenTransferFilter("big-transfer", models.OpGreaterThanOrEqual, 1000)})

	tx := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{
			{Mint: testMint, Change: -5000},
		},
	}

	matches := engine.Evaluate(tx)
	require.Len(t, matches, 1)
	require.Equal(t, "big-transfer", matches[0].FilterID)
}

func TestEvaluate_DisabledFilterNeverMatches(t *testing.T) {
	filter := tokenTransferFilter("disabled", models.OpGreaterThanOrEqual, 1)
	filter.Enabled = false
	engine := New([]models.FilterConfig{filter})

	tx := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{{Mint: testMint, Change: 999999}},
	}

	require.Empty(t, engine.Evaluate(tx))
}

func TestEvaluateTokenMint_RequiresPositiveChangeAndSignal(t *testing.T) {
	c := models.Condition{Kind: models.ConditionTokenMint, Mint: testMint, Op: models.OpGreaterThanOrEqual, Amount: 100}

	// Positive change, zero pre-amount (freshly created position): matches.
	tx := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{
			{Mint: testMint, Change: 500, PreAmount: 0},
		},
	}
	require.True(t, evaluateTokenMint(c, tx))

	// Positive change, nonzero pre-amount, no parsed/log mint signal: no match.
	tx2 := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{
			{Mint: testMint, Change: 500, PreAmount: 10},
		},
	}
	require.False(t, evaluateTokenMint(c, tx2))

	// Negative change never matches mint regardless of signals.
	tx3 := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{
			{Mint: testMint, Change: -500, PreAmount: 0},
		},
		LogMessages: []string{"Program log: Instruction: MintTo"},
	}
	require.False(t, evaluateTokenMint(c, tx3))
}

func TestEvaluateTokenBurn_RequiresNegativeChangeAndSignal(t *testing.T) {
	c := models.Condition{Kind: models.ConditionTokenBurn, Mint: testMint, Op: models.OpGreaterThanOrEqual, Amount: 100}

	tx := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{
			{Mint: testMint, Change: -500},
		},
		LogMessages: []string{"Program log: Instruction: Burn"},
	}
	require.True(t, evaluateTokenBurn(c, tx))

	// No burn signal at all: no match, even though the change is negative.
	tx2 := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{
			{Mint: testMint, Change: -500},
		},
	}
	require.False(t, evaluateTokenBurn(c, tx2))
}

func TestEvaluateBalanceChange_ScalesToLamports(t *testing.T) {
	c := models.Condition{Kind: models.ConditionBalanceChange, Account: "wallet1", Op: models.OpGreaterThanOrEqual, Amount: 1.5}

	tx := &models.CanonicalTransaction{
		BalanceChanges: map[string]models.AccountBalance{
			"wallet1": {Pubkey: "wallet1", Delta: -2 * lamportsPerSOL},
		},
	}
	require.True(t, evaluateBalanceChange(c, tx))

	tx2 := &models.CanonicalTransaction{
		BalanceChanges: map[string]models.AccountBalance{
			"wallet1": {Pubkey: "wallet1", Delta: lamportsPerSOL / 2},
		},
	}
	require.False(t, evaluateBalanceChange(c, tx2))
}

func TestEvaluateSet_AllOfAnyOfNoneOf(t *testing.T) {
	set := models.ConditionSet{
		AllOf: []models.Condition{
			{Kind: models.ConditionTransactionStatus, Success: true},
		},
		AnyOf: []models.Condition{
			{Kind: models.ConditionProgramInvoked, ProgramID: "prog-a"},
			{Kind: models.ConditionProgramInvoked, ProgramID: "prog-b"},
		},
		NoneOf: []models.Condition{
			{Kind: models.ConditionProgramInvoked, ProgramID: "banned"},
		},
	}

	matching := &models.CanonicalTransaction{
		Success:      true,
		Instructions: []models.Instruction{{ProgramID: "prog-b"}},
	}
	require.True(t, evaluateSet(set, matching))

	excluded := &models.CanonicalTransaction{
		Success:      true,
		Instructions: []models.Instruction{{ProgramID: "prog-b"}, {ProgramID: "banned"}},
	}
	require.False(t, evaluateSet(set, excluded))

	noAnyOfMatch := &models.CanonicalTransaction{
		Success:      true,
		Instructions: []models.Instruction{{ProgramID: "prog-z"}},
	}
	require.False(t, evaluateSet(set, noAnyOfMatch))
}

func TestEvaluateCondition_InstructionCountIgnoresInnerInstructions(t *testing.T) {
	c := models.Condition{Kind: models.ConditionInstructionCount, Op: models.OpEqual, Amount: 2}

	tx := &models.CanonicalTransaction{
		Instructions: []models.Instruction{{ProgramID: "a"}, {ProgramID: "b"}},
		InnerInstructions: []models.InnerInstructionGroup{
			{OuterIndex: 0, Instructions: []models.Instruction{{ProgramID: "c"}, {ProgramID: "d"}, {ProgramID: "e"}}},
		},
	}

	// Top-level count is 2, matching the condition; including the three
	// inner instructions would make AllInstructions() report 5 instead.
	require.True(t, evaluateCondition(c, tx))
}

func TestEvaluateLogContains_CaseSensitivity(t *testing.T) {
	tx := &models.CanonicalTransaction{LogMessages: []string{"Program log: Swap executed"}}

	caseInsensitive := models.Condition{Kind: models.ConditionLogContains, Pattern: "swap"}
	require.True(t, evaluateLogContains(caseInsensitive, tx))

	caseSensitive := models.Condition{Kind: models.ConditionLogContains, Pattern: "swap", CaseSensitive: true}
	require.False(t, evaluateLogContains(caseSensitive, tx))
}
