package monitorconfig

import "github.com/0xkanth/slot-monitor/pkg/models"

// BuiltinExamples returns a starter filter set mirroring the original Rust
// monitor's target_filters.rs: three threshold tiers (1M/10M/30M tokens,
// compared against the decimal-adjusted TokenBalanceChange.Change) on a
// single watched mint, each alerting to group-chat. This is not named
// in the distilled specification; it supplements it so a freshly checked
// out deployment has a working starting point rather than an empty filter
// list. Callers pass the real mint; an empty mint returns nil.
func BuiltinExamples(mint string) []models.FilterConfig {
	if mint == "" {
		return nil
	}

	tiers := []struct {
		suffix string
		amount float64
	}{
		{"1m", 1_000_000},
		{"10m", 10_000_000},
		{"30m", 30_000_000},
	}

	filters := make([]models.FilterConfig, 0, len(tiers))
	for _, tier := range tiers {
		id := "watched_mint_" + tier.suffix
		filters = append(filters, models.FilterConfig{
			ID:      id,
			Name:    "Watched mint transfer >= " + tier.suffix,
			Enabled: true,
			Condition: models.ConditionSet{
				AnyOf: []models.Condition{
					{
						Kind:   models.ConditionTokenMint,
						Mint:   mint,
						Op:     models.OpGreaterThanOrEqual,
						Amount: tier.amount,
					},
					{
						Kind:   models.ConditionTokenBurn,
						Mint:   mint,
						Op:     models.OpGreaterThanOrEqual,
						Amount: tier.amount,
					},
				},
			},
			Actions: []models.Action{
				{
					Kind:     models.ActionAlert,
					Severity: tierSeverity(tier.suffix),
					Channels: []string{"group-chat"},
				},
				{Kind: models.ActionLog, Level: "info", Message: "watched mint threshold crossed"},
			},
		})
	}
	return filters
}

func tierSeverity(suffix string) string {
	switch suffix {
	case "30m":
		return "critical"
	case "10m":
		return "warning"
	default:
		return "info"
	}
}
