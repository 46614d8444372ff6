package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapflow/mapflow/internal/model"
	"github.com/mapflow/mapflow/internal/oracle"
)

func TestRepairAccountName(t *testing.T) {
	names := []string{"Trade Sales", "Cash and Cash Equivalents", "Bank Loan"}

	tests := []struct {
		name     string
		proposed string
		want     string
	}{
		{"exact match", "Trade Sales", "Trade Sales"},
		{"case-insensitive exact", "trade sales", "Trade Sales"},
		{"proposed is substring of real", "Cash and Cash", "Cash and Cash Equivalents"},
		{"real is substring of proposed", "Bank Loan (long term)", "Bank Loan"},
		{"no relation discards", "Imaginary Account", ""},
		{"empty proposal", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairAccountName(tt.proposed, names))
		})
	}
}

func TestRepairAccountNameExactBeatsSubstring(t *testing.T) {
	names := []string{"Cash and Cash Equivalents", "Cash"}
	assert.Equal(t, "Cash", repairAccountName("cash", names))
}

func TestApplyProposal(t *testing.T) {
	accounts := accountSet("Trade Sales", 100)
	entry := model.MappingEntry{Label: "Sales", Tier: model.TierLow}

	applyProposal(&entry, "Trade Sales", oracle.Proposal{
		Account:    "trade sales",
		Confidence: 0.93,
		Rationale:  "same line item",
	}, accounts, " [Re-validated]")

	assert.Equal(t, "Trade Sales", entry.Account)
	assert.Equal(t, 93, entry.Score)
	assert.Equal(t, model.TierHigh, entry.Tier)
	assert.Equal(t, "same line item [Re-validated]", entry.Rationale)
	assert.True(t, entry.Value.Equal(decimal.NewFromInt(100)))
}

func TestApplyProposalDefaultRationale(t *testing.T) {
	accounts := accountSet("Cash", 1)
	entry := model.MappingEntry{Label: "Cash on Hand"}

	applyProposal(&entry, "Cash", oracle.Proposal{Confidence: 0.75}, accounts, "")

	assert.Equal(t, "Oracle match", entry.Rationale)
	assert.Equal(t, model.TierMedium, entry.Tier)
}

func TestRefineUncertainUpgradesMediumEntries(t *testing.T) {
	refiner := &stubRefiner{proposals: map[string]oracle.Proposal{
		"Vehicle Fleet": {Account: "Motor Vehicles", Confidence: 0.95, Rationale: "fleet"},
	}}
	eng := newTestEngine(refiner)
	accounts := accountSet("Motor Vehicles", 80, "Cash", 10)

	set := model.NewMappingSet("hybrid")
	set.Entries = []model.MappingEntry{
		{Label: "Cash", Account: "Cash", Value: decimal.NewFromInt(10), Score: 100, Tier: model.TierHigh},
		{Label: "Vehicle Fleet", Account: "Cash", Value: decimal.NewFromInt(10), Score: 72, Tier: model.TierMedium},
	}

	stats := eng.RefineUncertain(context.Background(), set, accounts)

	assert.Equal(t, 1, stats.OracleCalls, "High tier entries are not re-examined")
	assert.Zero(t, stats.OracleFailures)

	refined := set.Entries[1]
	assert.Equal(t, "Motor Vehicles", refined.Account)
	assert.Equal(t, 95, refined.Score)
	assert.Equal(t, model.TierHigh, refined.Tier)
	assert.Equal(t, "fleet [Re-validated]", refined.Rationale)
	assert.True(t, refined.Value.Equal(decimal.NewFromInt(80)))

	assert.Equal(t, "Cash", set.Entries[0].Account, "confident entries are untouched")
}

func TestRefineUncertainFailuresLeaveEntriesUnchanged(t *testing.T) {
	refiner := &stubRefiner{err: errors.New("oracle down")}
	eng := newTestEngine(refiner)
	accounts := accountSet("Motor Vehicles", 80)

	set := model.NewMappingSet("hybrid")
	original := model.MappingEntry{Label: "Vehicle Fleet", Account: "Motor Vehicles", Value: decimal.NewFromInt(80), Score: 72, Tier: model.TierMedium, Rationale: "Fuzzy match"}
	set.Entries = []model.MappingEntry{original}

	stats := eng.RefineUncertain(context.Background(), set, accounts)

	assert.Equal(t, 1, stats.OracleCalls)
	assert.Equal(t, 1, stats.OracleFailures)
	assert.Equal(t, original, set.Entries[0])
}

func TestRefineUncertainUnrepairableProposalKeepsEntry(t *testing.T) {
	refiner := &stubRefiner{proposals: map[string]oracle.Proposal{
		"Vehicle Fleet": {Account: "Nonexistent Thing", Confidence: 0.9},
	}}
	eng := newTestEngine(refiner)
	accounts := accountSet("Motor Vehicles", 80)

	set := model.NewMappingSet("hybrid")
	set.Entries = []model.MappingEntry{
		{Label: "Vehicle Fleet", Account: "Motor Vehicles", Value: decimal.NewFromInt(80), Score: 72, Tier: model.TierMedium},
	}

	stats := eng.RefineUncertain(context.Background(), set, accounts)

	assert.Equal(t, 1, stats.OracleCalls)
	assert.Equal(t, "Motor Vehicles", set.Entries[0].Account)
	assert.Equal(t, 72, set.Entries[0].Score)
}

func TestRefineUncertainNilRefinerIsNoOp(t *testing.T) {
	eng := newTestEngine(nil)
	accounts := accountSet("Cash", 1)

	set := model.NewMappingSet("fuzzy")
	set.Entries = []model.MappingEntry{
		{Label: "Petty Cash", Account: "Cash", Value: decimal.NewFromInt(1), Score: 60, Tier: model.TierLow},
	}

	stats := eng.RefineUncertain(context.Background(), set, accounts)

	assert.Zero(t, stats.OracleCalls)
	assert.Equal(t, 60, set.Entries[0].Score)
}

func TestRefineUncertainCancelledContextStopsEarly(t *testing.T) {
	refiner := &stubRefiner{}
	eng := newTestEngine(refiner)
	accounts := accountSet("Cash", 1)

	set := model.NewMappingSet("fuzzy")
	set.Entries = []model.MappingEntry{
		{Label: "A", Account: "Cash", Value: decimal.NewFromInt(1), Score: 60, Tier: model.TierLow},
		{Label: "B", Account: "Cash", Value: decimal.NewFromInt(1), Score: 60, Tier: model.TierLow},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := eng.RefineUncertain(ctx, set, accounts)

	require.Zero(t, stats.OracleCalls)
}
