package engine

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mapflow/mapflow/internal/category"
	"github.com/mapflow/mapflow/internal/model"
	"github.com/mapflow/mapflow/internal/normalize"
	"github.com/mapflow/mapflow/internal/oracle"
	"github.com/mapflow/mapflow/internal/similarity"
)

// Knowledge-pass confidence levels, by match quality.
const (
	confidenceCanonical = 0.95
	confidenceOverlap   = 0.85
	confidenceWeak      = 0.75
)

// matchHybrid runs the knowledge-first strategy: synonym suggestions
// establish a first-pass mapping, and labels with no suggestion or low
// confidence are queued for oracle refinement. With no oracle, or when
// the oracle fails for a label, the engine degrades to fuzzy scoring so
// the mapping always completes.
func (e *MatchEngine) matchHybrid(ctx context.Context, labels []string, accounts *model.AccountSet) ([]model.MappingEntry, error) {
	names := accounts.Names()
	entries := make([]model.MappingEntry, len(labels))

	var uncertain []int
	for i, label := range labels {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		suggestions := e.knowledge.Suggest(label, names)
		if len(suggestions) == 0 {
			entries[i] = model.MappingEntry{Label: label, Value: decimal.Zero, Tier: model.TierLow, Rationale: "No candidate account"}
			uncertain = append(uncertain, i)
		} else {
			best := suggestions[0]
			confidence := e.suggestionConfidence(label, best)

			entries[i] = e.buildEntry(label, best, int(math.Round(confidence*100)), accounts,
				e.config.FuzzyHighThreshold, e.config.FuzzyMediumThreshold,
				suggestionRationale(confidence))
			entries[i].Category = category.Categorize(label).Title()

			if confidence < e.config.HybridRefineBelow {
				uncertain = append(uncertain, i)
			}
		}

		if e.config.Progress != nil {
			e.config.Progress(i+1, len(labels))
		}
	}

	e.logger.Info("knowledge pass complete",
		"labels", len(labels),
		"uncertain", len(uncertain))

	e.refineHybrid(ctx, labels, accounts, entries, uncertain)

	return entries, nil
}

// suggestionConfidence grades a knowledge-base suggestion: exact
// canonical equality, full coverage of the label's tokens, or a weak
// partial-token hit. Weak hits fall under the refine threshold and get
// queued for the oracle.
func (e *MatchEngine) suggestionConfidence(label, account string) float64 {
	if e.knowledge.CanonicalTerm(label) == e.knowledge.CanonicalTerm(account) {
		return confidenceCanonical
	}
	labelTokens := normalize.TokenSet(label)
	if len(labelTokens) > 0 && tokenOverlap(label, account) == len(labelTokens) {
		return confidenceOverlap
	}
	return confidenceWeak
}

func suggestionRationale(confidence float64) string {
	switch confidence {
	case confidenceCanonical:
		return "Synonym match: same canonical term"
	case confidenceOverlap:
		return "Synonym match: shared tokens"
	default:
		return "Synonym match: partial tokens"
	}
}

// refineHybrid resolves the queued uncertain labels, preferring the
// oracle and falling back to fuzzy scoring per label on failure.
func (e *MatchEngine) refineHybrid(ctx context.Context, labels []string, accounts *model.AccountSet, entries []model.MappingEntry, uncertain []int) {
	names := accounts.Names()

	for _, idx := range uncertain {
		label := labels[idx]

		if e.refiner == nil {
			e.fuzzyFallback(label, accounts, &entries[idx])
			continue
		}

		req := e.shortlistRequest(label, entries[idx].Account, accounts)
		proposal, err := e.refiner.Refine(ctx, req)
		if err != nil {
			e.logger.Warn("oracle refinement failed, using fuzzy fallback",
				"label", label,
				"error", err)
			e.fuzzyFallback(label, accounts, &entries[idx])
			continue
		}

		account := repairAccountName(proposal.Account, names)
		if account == "" {
			// No usable proposal; keep whatever the knowledge pass found.
			if !entries[idx].Matched() {
				entries[idx].Rationale = "No match proposed"
			}
			continue
		}

		applyProposal(&entries[idx], account, proposal, accounts, "")
	}
}

// fuzzyFallback replaces an uncertain entry with the plain fuzzy result
// when it improves on what the knowledge pass found. Scores below the
// medium threshold are noise and never displace the entry: a label with
// no real candidate stays unmatched.
func (e *MatchEngine) fuzzyFallback(label string, accounts *model.AccountSet, entry *model.MappingEntry) {
	best, score := bestByScore(label, accounts.Names())
	if best == "" || score <= entry.Score || score < e.config.FuzzyMediumThreshold {
		return
	}
	*entry = e.buildEntry(label, best, score, accounts,
		e.config.FuzzyHighThreshold, e.config.FuzzyMediumThreshold,
		"Fuzzy match (oracle unavailable)")
}

// shortlistRequest builds the oracle request: the label, its current
// match, and the top accounts by similarity.
func (e *MatchEngine) shortlistRequest(label, currentMatch string, accounts *model.AccountSet) oracle.Request {
	ranked := similarity.TopN(label, accounts.Names(), e.config.ShortlistSize)
	candidates := make([]oracle.Candidate, len(ranked))
	for i, r := range ranked {
		value, _ := accounts.Get(r.Name)
		candidates[i] = oracle.Candidate{Name: r.Name, Value: value, Similarity: r.Score}
	}
	return oracle.Request{Label: label, CurrentMatch: currentMatch, Candidates: candidates}
}

func tokenOverlap(a, b string) int {
	setB := normalize.TokenSet(b)
	overlap := 0
	for tok := range normalize.TokenSet(a) {
		if _, ok := setB[tok]; ok {
			overlap++
		}
	}
	return overlap
}
