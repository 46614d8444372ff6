// Package engine implements the core label-to-account matching engine:
// strategy selection, pairwise scoring, confidence tiering, validation,
// and oracle-assisted refinement of uncertain mappings.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mapflow/mapflow/internal/category"
	"github.com/mapflow/mapflow/internal/common"
	"github.com/mapflow/mapflow/internal/knowledge"
	"github.com/mapflow/mapflow/internal/model"
	"github.com/mapflow/mapflow/internal/normalize"
	"github.com/mapflow/mapflow/internal/oracle"
	"github.com/mapflow/mapflow/internal/similarity"
)

// Strategy selects how labels are matched to accounts.
type Strategy string

// Matching strategies.
const (
	// StrategyFuzzy scores every label against every account with the
	// blended similarity measure and takes the maximum.
	StrategyFuzzy Strategy = "fuzzy"
	// StrategyCategoryAware restricts candidates to accounts in the
	// label's financial category before fuzzy scoring.
	StrategyCategoryAware Strategy = "category"
	// StrategyHybrid consults the synonym knowledge base first and
	// queues uncertain labels for oracle refinement.
	StrategyHybrid Strategy = "hybrid"
)

// ParseStrategy converts a strategy name from config or CLI flags.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyFuzzy, StrategyCategoryAware, StrategyHybrid:
		return Strategy(name), nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", common.ErrInvalidConfig, name)
	}
}

// Refiner is the oracle surface the engine depends on. A nil Refiner
// disables oracle-assisted refinement entirely.
type Refiner interface {
	Refine(ctx context.Context, req oracle.Request) (oracle.Proposal, error)
}

// Config holds the tunable constants of the matching engine. The tier
// thresholds are deliberately configurable rather than hard invariants.
type Config struct {
	Progress                func(done, total int)
	FuzzyHighThreshold      int
	FuzzyMediumThreshold    int
	CategoryHighThreshold   int
	CategoryMediumThreshold int
	CategoryBoost           float64
	HybridRefineBelow       float64
	ShortlistSize           int
	BatchSize               int
	Workers                 int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyHighThreshold:      90,
		FuzzyMediumThreshold:    70,
		CategoryHighThreshold:   85,
		CategoryMediumThreshold: 65,
		CategoryBoost:           1.1,
		HybridRefineBelow:       0.80,
		ShortlistSize:           10,
		BatchSize:               20,
		Workers:                 4,
	}
}

// MatchEngine orchestrates one-to-one best-match selection between
// template labels and account names.
type MatchEngine struct {
	knowledge *knowledge.Base
	refiner   Refiner
	logger    *slog.Logger
	config    Config
}

// New creates a match engine. The refiner may be nil to run without a
// scoring oracle; every strategy still produces a complete mapping.
func New(kb *knowledge.Base, refiner Refiner, cfg Config, logger *slog.Logger) *MatchEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.ShortlistSize <= 0 {
		cfg.ShortlistSize = DefaultConfig().ShortlistSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &MatchEngine{
		knowledge: kb,
		refiner:   refiner,
		config:    cfg,
		logger:    logger,
	}
}

// Match maps every label to its best account under the chosen strategy.
// The result always holds exactly one entry per input label, in input
// order; unmatched labels get an empty account, zero value, and Low tier.
func (e *MatchEngine) Match(ctx context.Context, labels []string, accounts *model.AccountSet, strategy Strategy) (*model.MappingSet, error) {
	if accounts == nil || accounts.Len() == 0 {
		return nil, common.ErrNoAccounts
	}

	e.logger.Info("starting mapping run",
		"strategy", string(strategy),
		"labels", len(labels),
		"accounts", accounts.Len())

	set := model.NewMappingSet(string(strategy))

	var err error
	switch strategy {
	case StrategyFuzzy:
		set.Entries, err = e.matchFuzzy(ctx, labels, accounts)
	case StrategyCategoryAware:
		set.Entries, err = e.matchCategoryAware(ctx, labels, accounts)
	case StrategyHybrid:
		set.Entries, err = e.matchHybrid(ctx, labels, accounts)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", common.ErrInvalidConfig, strategy)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("mapping run complete", "strategy", string(strategy), "entries", len(set.Entries))
	return set, nil
}

// matchFuzzy implements the pure-similarity strategy: max blended score
// over all accounts, ties broken by account insertion order.
func (e *MatchEngine) matchFuzzy(ctx context.Context, labels []string, accounts *model.AccountSet) ([]model.MappingEntry, error) {
	names := accounts.Names()
	return e.scoreLabels(ctx, labels, func(label string) model.MappingEntry {
		best, bestScore := bestByScore(label, names)
		return e.buildEntry(label, best, bestScore, accounts,
			e.config.FuzzyHighThreshold, e.config.FuzzyMediumThreshold, "Fuzzy match")
	})
}

// matchCategoryAware restricts the candidate pool to same-category
// accounts, falling back to the full set when the pool is empty, and
// boosts the score when the winner shares the label's category.
func (e *MatchEngine) matchCategoryAware(ctx context.Context, labels []string, accounts *model.AccountSet) ([]model.MappingEntry, error) {
	names := accounts.Names()
	pools := category.Partition(names)

	return e.scoreLabels(ctx, labels, func(label string) model.MappingEntry {
		labelCategory := category.Categorize(label)

		candidates := pools[labelCategory]
		if len(candidates) == 0 {
			candidates = names
		}

		best, bestScore := bestByScore(label, candidates)

		if best != "" && category.Categorize(best) == labelCategory {
			boosted := int(float64(bestScore) * e.config.CategoryBoost)
			if boosted > 100 {
				boosted = 100
			}
			bestScore = boosted
		}

		entry := e.buildEntry(label, best, bestScore, accounts,
			e.config.CategoryHighThreshold, e.config.CategoryMediumThreshold,
			"Category-aware match")
		entry.Category = labelCategory.Title()
		return entry
	})
}

// scoreLabels runs the per-label scoring function across a bounded
// worker pool, preserving input order and reporting progress.
func (e *MatchEngine) scoreLabels(ctx context.Context, labels []string, score func(label string) model.MappingEntry) ([]model.MappingEntry, error) {
	entries := make([]model.MappingEntry, len(labels))

	sem := make(chan struct{}, e.config.Workers)
	var wg sync.WaitGroup
	var done int
	var mu sync.Mutex

	for i, label := range labels {
		select {
		case <-ctx.Done():
			// Drain in-flight workers so no score or progress callback
			// runs after Match has returned.
			wg.Wait()
			return nil, ctx.Err()
		default:
		}

		wg.Add(1)
		go func(idx int, label string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			entries[idx] = score(label)

			if e.config.Progress != nil {
				mu.Lock()
				done++
				e.config.Progress(done, len(labels))
				mu.Unlock()
			}
		}(i, label)
	}

	wg.Wait()
	return entries, nil
}

// bestByScore returns the highest-scoring candidate for the label, with
// ties broken by candidate order. A candidate whose normalized form
// equals the label's beats every near-match outright. A zero score
// means no match at all.
func bestByScore(label string, candidates []string) (string, int) {
	labelNorm := normalize.Normalize(label)
	if labelNorm != "" {
		for _, name := range candidates {
			if normalize.Normalize(name) == labelNorm {
				return name, 100
			}
		}
	}

	best := ""
	bestScore := 0
	for _, name := range candidates {
		if s := similarity.Score(label, name); s > bestScore {
			bestScore = s
			best = name
		}
	}
	return best, bestScore
}

// buildEntry assembles a MappingEntry enforcing the unmatched invariant:
// empty account means zero value and Low tier.
func (e *MatchEngine) buildEntry(label, account string, score int, accounts *model.AccountSet, high, medium int, rationale string) model.MappingEntry {
	entry := model.MappingEntry{
		Label:     label,
		Score:     score,
		Tier:      tierFor(score, high, medium),
		Rationale: rationale,
	}

	if account == "" {
		entry.Value = decimal.Zero
		entry.Tier = model.TierLow
		entry.Rationale = "No candidate account"
		return entry
	}

	entry.Account = account
	if value, ok := accounts.Get(account); ok {
		entry.Value = value
	} else {
		entry.Value = decimal.Zero
	}
	return entry
}

// tierFor buckets a 0-100 score against the given thresholds.
func tierFor(score, high, medium int) model.Tier {
	switch {
	case score >= high:
		return model.TierHigh
	case score >= medium:
		return model.TierMedium
	default:
		return model.TierLow
	}
}

// tierForConfidence buckets an oracle confidence in [0,1].
func tierForConfidence(confidence float64) model.Tier {
	switch {
	case confidence >= 0.90:
		return model.TierHigh
	case confidence >= 0.70:
		return model.TierMedium
	default:
		return model.TierLow
	}
}
