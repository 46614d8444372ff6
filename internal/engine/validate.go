package engine

import (
	"github.com/mapflow/mapflow/internal/model"
	"github.com/mapflow/mapflow/internal/normalize"
)

// Validate applies the post-hoc consistency checks to a mapping set in
// place and returns the run statistics. It is idempotent: validating an
// already-validated set changes nothing.
//
// Checks: the exact-match override (a label that normalizes identically
// to its matched account is forced to score 100 / High), duplicate
// target detection (flagged, never auto-resolved), and the unmatched /
// low-confidence counts.
func (e *MatchEngine) Validate(set *model.MappingSet, accounts *model.AccountSet) model.RunStats {
	stats := model.RunStats{Total: len(set.Entries)}

	targets := make(map[string]int)
	for i := range set.Entries {
		entry := &set.Entries[i]

		if !entry.Matched() {
			stats.Unmatched++
			continue
		}

		stats.Matched++
		targets[entry.Account]++

		if normalize.Normalize(entry.Label) == normalize.Normalize(entry.Account) {
			entry.Score = 100
			entry.Tier = model.TierHigh
		}

		if entry.Score < model.LowConfidenceScore {
			stats.LowConfidence++
		}
	}

	for account, n := range targets {
		if n > 1 {
			stats.DuplicateTargets++
			e.logger.Warn("multiple labels mapped to the same account",
				"account", account,
				"labels", n)
		}
	}

	if stats.Unmatched > 0 {
		e.logger.Info("labels left unmatched", "count", stats.Unmatched)
	}
	if stats.LowConfidence > 0 {
		e.logger.Info("low-confidence mappings need review", "count", stats.LowConfidence)
	}

	return stats
}
