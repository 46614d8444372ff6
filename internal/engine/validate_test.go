package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapflow/mapflow/internal/model"
)

func TestValidateExactMatchOverride(t *testing.T) {
	eng := newTestEngine(nil)
	accounts := accountSet("Trade Sales", 100)

	set := model.NewMappingSet("fuzzy")
	set.Entries = []model.MappingEntry{
		{
			Label:   "40050 - Trade Sales",
			Account: "Trade Sales",
			Value:   decimal.NewFromInt(100),
			Score:   82,
			Tier:    model.TierMedium,
		},
	}

	eng.Validate(set, accounts)

	entry := set.Entries[0]
	assert.Equal(t, 100, entry.Score, "label and account normalize identically")
	assert.Equal(t, model.TierHigh, entry.Tier)
}

func TestValidateDuplicateTargets(t *testing.T) {
	eng := newTestEngine(nil)
	accounts := accountSet("Revenue", 100)

	set := model.NewMappingSet("fuzzy")
	set.Entries = []model.MappingEntry{
		{Label: "Sales", Account: "Revenue", Value: decimal.NewFromInt(100), Score: 80, Tier: model.TierMedium},
		{Label: "Turnover", Account: "Revenue", Value: decimal.NewFromInt(100), Score: 75, Tier: model.TierMedium},
	}

	stats := eng.Validate(set, accounts)

	assert.Equal(t, 1, stats.DuplicateTargets)
	// Duplicates are flagged, never auto-resolved.
	assert.Equal(t, "Revenue", set.Entries[0].Account)
	assert.Equal(t, "Revenue", set.Entries[1].Account)
}

func TestValidateStats(t *testing.T) {
	eng := newTestEngine(nil)
	accounts := accountSet("Revenue", 100, "Cash", 50)

	set := model.NewMappingSet("fuzzy")
	set.Entries = []model.MappingEntry{
		{Label: "Sales", Account: "Revenue", Value: decimal.NewFromInt(100), Score: 95, Tier: model.TierHigh},
		{Label: "Petty Cash", Account: "Cash", Value: decimal.NewFromInt(50), Score: 60, Tier: model.TierLow},
		{Label: "Goodwill", Value: decimal.Zero, Tier: model.TierLow},
	}

	stats := eng.Validate(set, accounts)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)
	assert.GreaterOrEqual(t, stats.LowConfidence, 1)
	assert.Zero(t, stats.DuplicateTargets)
}

func TestValidateIdempotent(t *testing.T) {
	eng := newTestEngine(nil)
	accounts := accountSet("Trade Sales", 100, "Cash", 50)

	set := model.NewMappingSet("fuzzy")
	set.Entries = []model.MappingEntry{
		{Label: "Trade Sales", Account: "Trade Sales", Value: decimal.NewFromInt(100), Score: 88, Tier: model.TierMedium},
		{Label: "Cash Reserve", Account: "Cash", Value: decimal.NewFromInt(50), Score: 72, Tier: model.TierMedium},
		{Label: "Goodwill", Value: decimal.Zero, Tier: model.TierLow},
	}

	first := eng.Validate(set, accounts)
	afterFirst := make([]model.MappingEntry, len(set.Entries))
	copy(afterFirst, set.Entries)

	second := eng.Validate(set, accounts)

	assert.Equal(t, afterFirst, set.Entries, "re-validating must not change entries")
	assert.Equal(t, first, second, "re-validating must report identical stats")
}

func TestValidateEmptySet(t *testing.T) {
	eng := newTestEngine(nil)
	set := model.NewMappingSet("fuzzy")

	stats := eng.Validate(set, accountSet("Cash", 1))

	assert.Zero(t, stats.Total)
	require.Empty(t, set.Entries)
}
