package render

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapflow/mapflow/internal/model"
)

func sampleMappingSet() *model.MappingSet {
	set := model.NewMappingSet("hybrid")
	set.Entries = []model.MappingEntry{
		{
			Label:     "Total Revenue",
			Account:   "Revenue from Sales",
			Value:     decimal.NewFromInt(1_000_000),
			Score:     95,
			Tier:      model.TierHigh,
			Category:  "Revenue",
			Rationale: "Synonym match: same canonical term",
		},
		{
			Label: "Goodwill",
			Value: decimal.Zero,
			Tier:  model.TierLow,
		},
	}
	return set
}

func TestCSVRendererRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	r := NewCSVRenderer(nil)
	require.NoError(t, r.Render(context.Background(), sampleMappingSet(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one row per entry")

	assert.Equal(t, []string{"label", "matched_account", "value", "score", "tier", "category", "rationale"}, records[0])
	assert.Equal(t, "Total Revenue", records[1][0])
	assert.Equal(t, "Revenue from Sales", records[1][1])
	assert.Equal(t, "1000000", records[1][2])
	assert.Equal(t, "95", records[1][3])
	assert.Equal(t, "HIGH", records[1][4])

	assert.Equal(t, "Goodwill", records[2][0])
	assert.Equal(t, "", records[2][1], "unmatched entries keep an empty account column")
	assert.Equal(t, "0", records[2][2])
}

func TestCSVRendererBadPath(t *testing.T) {
	r := NewCSVRenderer(nil)
	err := r.Render(context.Background(), sampleMappingSet(), "/nonexistent/dir/out.csv")
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	set := sampleMappingSet()
	stats := model.RunStats{Total: 2, Matched: 1, Unmatched: 1, DuplicateTargets: 1, OracleCalls: 3, OracleFailures: 1}

	var sb strings.Builder
	WriteSummary(&sb, set, stats)
	out := sb.String()

	assert.Contains(t, out, set.ID)
	assert.Contains(t, out, "matched:    1")
	assert.Contains(t, out, "unmatched:  1")
	assert.Contains(t, out, "HIGH 1 / MEDIUM 0 / LOW 1")
	assert.Contains(t, out, "duplicates")
	assert.Contains(t, out, "oracle:     3 calls, 1 failures")
	assert.Contains(t, out, "Goodwill")
	assert.Contains(t, out, "(unmatched)")
}
