package engine

import (
	"context"
	"math"
	"strings"

	"github.com/mapflow/mapflow/internal/model"
	"github.com/mapflow/mapflow/internal/oracle"
)

const revalidatedSuffix = " [Re-validated]"

// RefineUncertain runs the second validation pass: every entry that is
// not already High tier is re-examined by the oracle against a
// similarity shortlist, in batches. A per-label oracle failure leaves
// that entry unchanged; the pass never fails the run.
func (e *MatchEngine) RefineUncertain(ctx context.Context, set *model.MappingSet, accounts *model.AccountSet) model.RunStats {
	stats := model.RunStats{Total: len(set.Entries)}

	if e.refiner == nil {
		e.logger.Debug("no oracle configured, skipping refinement pass")
		return stats
	}

	var uncertain []int
	for i := range set.Entries {
		if set.Entries[i].Tier != model.TierHigh || !set.Entries[i].Matched() {
			uncertain = append(uncertain, i)
		}
	}
	if len(uncertain) == 0 {
		e.logger.Info("no uncertain mappings to refine")
		return stats
	}

	e.logger.Info("refining uncertain mappings",
		"uncertain", len(uncertain),
		"batch_size", e.config.BatchSize)

	names := accounts.Names()
	for start := 0; start < len(uncertain); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(uncertain) {
			end = len(uncertain)
		}

		for _, idx := range uncertain[start:end] {
			select {
			case <-ctx.Done():
				e.logger.Warn("refinement pass cancelled", "refined", stats.OracleCalls)
				return stats
			default:
			}

			entry := &set.Entries[idx]

			req := e.shortlistRequest(entry.Label, entry.Account, accounts)
			stats.OracleCalls++

			proposal, err := e.refiner.Refine(ctx, req)
			if err != nil {
				stats.OracleFailures++
				e.logger.Warn("refinement failed, keeping existing mapping",
					"label", entry.Label,
					"error", err)
				continue
			}

			account := repairAccountName(proposal.Account, names)
			if account == "" {
				e.logger.Debug("oracle proposed no usable account",
					"label", entry.Label,
					"proposed", proposal.Account)
				continue
			}

			applyProposal(entry, account, proposal, accounts, revalidatedSuffix)
		}
	}

	for i := range set.Entries {
		if set.Entries[i].Matched() {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
	}

	e.logger.Info("refinement pass complete",
		"oracle_calls", stats.OracleCalls,
		"oracle_failures", stats.OracleFailures)

	return stats
}

// applyProposal overwrites an entry with an accepted oracle proposal.
// The account name must already be repaired to a real account.
func applyProposal(entry *model.MappingEntry, account string, proposal oracle.Proposal, accounts *model.AccountSet, rationaleSuffix string) {
	entry.Account = account
	if value, ok := accounts.Get(account); ok {
		entry.Value = value
	}
	entry.Score = int(math.Round(proposal.Confidence * 100))
	entry.Tier = tierForConfidence(proposal.Confidence)

	rationale := proposal.Rationale
	if rationale == "" {
		rationale = "Oracle match"
	}
	entry.Rationale = rationale + rationaleSuffix
}

// repairAccountName maps an oracle-proposed name onto a real account.
// Exact case-insensitive equality wins; otherwise substring containment
// in either direction; otherwise the proposal is discarded.
func repairAccountName(proposed string, names []string) string {
	proposed = strings.TrimSpace(proposed)
	if proposed == "" {
		return ""
	}

	lowered := strings.ToLower(proposed)
	for _, name := range names {
		if strings.ToLower(name) == lowered {
			return name
		}
	}
	for _, name := range names {
		nameLower := strings.ToLower(name)
		if strings.Contains(nameLower, lowered) || strings.Contains(lowered, nameLower) {
			return name
		}
	}
	return ""
}
