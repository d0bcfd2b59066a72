package monitorconfig

import (
	"strconv"
	"strings"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

// ApplyEnvOverrides supplements the distilled spec with the original Rust
// monitor's config_manager.rs behavior: an operator can override a filter's
// threshold amount at deploy time via an environment variable named
// `FILTER_<FILTER_ID>_THRESHOLD` (filter id upper-cased, non-alphanumerics
// turned to underscores), without editing the filter file. getenv is
// injected so tests don't depend on process environment.
func ApplyEnvOverrides(filters []models.FilterConfig, getenv func(string) string) []models.FilterConfig {
	for i := range filters {
		key := envKeyForFilter(filters[i].ID)
		raw := getenv(key)
		if raw == "" {
			continue
		}
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		overrideThresholds(&filters[i].Condition, amount)
	}
	return filters
}

func envKeyForFilter(filterID string) string {
	var b strings.Builder
	b.WriteString("FILTER_")
	for _, r := range strings.ToUpper(filterID) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteString("_THRESHOLD")
	return b.String()
}

// overrideThresholds rewrites Amount on every threshold-bearing condition
// (TokenTransfer/TokenMint/TokenBurn/FeeAmount) across all three ConditionSet
// lists.
func overrideThresholds(set *models.ConditionSet, amount float64) {
	overrideList(set.AllOf, amount)
	overrideList(set.AnyOf, amount)
	overrideList(set.NoneOf, amount)
}

func overrideList(conditions []models.Condition, amount float64) {
	for i := range conditions {
		switch conditions[i].Kind {
		case models.ConditionTokenTransfer, models.ConditionTokenMint, models.ConditionTokenBurn, models.ConditionFeeAmount:
			conditions[i].Amount = amount
		}
	}
}
