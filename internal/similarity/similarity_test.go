package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreIdentical(t *testing.T) {
	assert.Equal(t, 100, Score("Trade Sales", "Trade Sales"))
	assert.Equal(t, 100, Score("cash", "CASH"), "scoring is case-insensitive")
	assert.Equal(t, 100, Score("  cash ", "cash"), "scoring trims whitespace")
}

func TestScoreEmpty(t *testing.T) {
	assert.Equal(t, 0, Score("", "cash"))
	assert.Equal(t, 0, Score("cash", ""))
	assert.Equal(t, 0, Score("", ""))
}

func TestScoreSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Trade Sales", "Sales Trade"},
		{"Accounts Receivable", "Trade Receivables"},
		{"Cash", "Cash and Cash Equivalents"},
		{"Operating Expenses", "Total Revenue"},
	}
	for _, p := range pairs {
		assert.Equal(t, Score(p[0], p[1]), Score(p[1], p[0]), "Score(%q,%q) must be symmetric", p[0], p[1])
	}
}

func TestScoreBounds(t *testing.T) {
	pairs := [][2]string{
		{"a", "zzzzzzzzzz"},
		{"Trade Sales", "Equity Reserve"},
		{"x", "x y z"},
	}
	for _, p := range pairs {
		s := Score(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)
	}
}

func TestScoreOrdering(t *testing.T) {
	// A near-identical pair must outscore an unrelated pair.
	near := Score("Trade Sales", "Trade Sale")
	far := Score("Trade Sales", "Deferred Tax Liability")
	assert.Greater(t, near, far)
}

func TestTokenSetRatioWordOrder(t *testing.T) {
	// Same tokens in a different order score 100.
	assert.Equal(t, 100, TokenSetRatio("trade sales total", "total trade sales"))
}

func TestTokenSetRatioSubset(t *testing.T) {
	// A token subset still scores 100 via the intersection comparison.
	assert.Equal(t, 100, TokenSetRatio("cash", "cash equivalents"))
}

func TestPartialRatioSubstring(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("cash", "cash and cash equivalents"))
	assert.Equal(t, 100, PartialRatio("cash and cash equivalents", "cash"))
}

func TestPartialRatioEmpty(t *testing.T) {
	assert.Equal(t, 0, PartialRatio("", "cash"))
}

func TestTopN(t *testing.T) {
	candidates := []string{"Deferred Tax", "Trade Sales", "Trade Sale", "Cash"}

	ranked := TopN("Trade Sales", candidates, 2)

	assert.Len(t, ranked, 2)
	assert.Equal(t, "Trade Sales", ranked[0].Name)
	assert.Equal(t, 100, ranked[0].Score)
	assert.Equal(t, "Trade Sale", ranked[1].Name)
}

func TestTopNTiesKeepInputOrder(t *testing.T) {
	candidates := []string{"alpha", "beta"}
	ranked := TopN("unrelated zzz", candidates, 0)
	assert.Len(t, ranked, 2)
	if ranked[0].Score == ranked[1].Score {
		assert.Equal(t, "alpha", ranked[0].Name)
	}
}

func TestTopNLargerThanCandidates(t *testing.T) {
	ranked := TopN("cash", []string{"Cash"}, 10)
	assert.Len(t, ranked, 1)
}
