package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mapflow/mapflow/internal/model"
)

// WriteSummary prints a human-readable digest of a mapping run and its
// statistics, grouped by confidence tier.
func WriteSummary(w io.Writer, set *model.MappingSet, stats model.RunStats) {
	byTier := map[model.Tier]int{}
	for _, entry := range set.Entries {
		byTier[entry.Tier]++
	}

	fmt.Fprintf(w, "Mapping run %s (%s)\n", set.ID, set.Method)
	fmt.Fprintf(w, "  labels:     %d\n", stats.Total)
	fmt.Fprintf(w, "  matched:    %d\n", stats.Matched)
	fmt.Fprintf(w, "  unmatched:  %d\n", stats.Unmatched)
	fmt.Fprintf(w, "  tiers:      HIGH %d / MEDIUM %d / LOW %d\n",
		byTier[model.TierHigh], byTier[model.TierMedium], byTier[model.TierLow])
	if stats.DuplicateTargets > 0 {
		fmt.Fprintf(w, "  duplicates: %d accounts matched by more than one label\n", stats.DuplicateTargets)
	}
	if stats.OracleCalls > 0 {
		fmt.Fprintf(w, "  oracle:     %d calls, %d failures\n", stats.OracleCalls, stats.OracleFailures)
	}

	if stats.Unmatched > 0 || stats.LowConfidence > 0 {
		fmt.Fprintln(w, "\nNeeds review:")
		for _, entry := range set.Entries {
			if entry.Matched() && entry.Tier != model.TierLow {
				continue
			}
			target := entry.Account
			if target == "" {
				target = "(unmatched)"
			}
			fmt.Fprintf(w, "  %-40s -> %s [%d]\n", truncate(entry.Label, 40), target, entry.Score)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
