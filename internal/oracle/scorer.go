package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mapflow/mapflow/internal/common"
)

// Config holds configuration for the oracle scorer.
type Config struct {
	BaseURL     string
	APIKey      string
	Models      []string
	MaxRetries  int
	RetryDelay  time.Duration
	CallTimeout time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// Scorer is the high-level oracle adapter: a fallback chain of model
// clients behind a rate limiter, retry policy, and proposal cache.
type Scorer struct {
	client      Client
	cache       *proposalCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   common.RetryOptions
	callTimeout time.Duration
}

// NewScorer creates a scorer backed by the configured model chain.
func NewScorer(cfg Config, logger *slog.Logger) (*Scorer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := newFallbackClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle client: %w", err)
	}

	return newScorerWithClient(cfg, client, logger), nil
}

// NewScorerWithClient creates a scorer around an existing client.
// Used by tests to inject mocks.
func NewScorerWithClient(cfg Config, client Client, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return newScorerWithClient(cfg, client, logger)
}

func newScorerWithClient(cfg Config, client Client, logger *slog.Logger) *Scorer {
	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	callTimeout := cfg.CallTimeout
	if callTimeout == 0 {
		callTimeout = 60 * time.Second
	}

	return &Scorer{
		client:      client,
		cache:       newProposalCache(cfg.CacheTTL),
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
		callTimeout: callTimeout,
	}
}

// Refine asks the oracle to validate or improve a single mapping.
func (s *Scorer) Refine(ctx context.Context, req Request) (Proposal, error) {
	key := requestKey(req)
	if proposal, found := s.cache.get(key); found {
		s.logger.Debug("oracle cache hit", "label", req.Label)
		return proposal, nil
	}

	if err := s.rateLimiter.wait(ctx); err != nil {
		return Proposal{}, fmt.Errorf("rate limit error: %w", err)
	}

	var proposal Proposal
	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		result, err := s.client.Propose(callCtx, req)
		if err != nil {
			s.logger.Warn("oracle refinement attempt failed",
				"label", req.Label,
				"error", err)
			return &common.RetryableError{Err: err, Retryable: common.IsRetryable(err)}
		}
		proposal = result
		return nil
	}, s.retryOpts)

	if err != nil {
		return Proposal{}, fmt.Errorf("oracle refinement failed: %w", err)
	}

	s.cache.set(key, proposal)

	s.logger.Debug("oracle proposal received",
		"label", req.Label,
		"account", proposal.Account,
		"confidence", proposal.Confidence)

	return proposal, nil
}

// Result pairs a request with its outcome in a batch.
type Result struct {
	Err      error
	Proposal Proposal
	Request  Request
}

// RefineBatch refines a batch of requests sequentially, respecting the
// rate limiter. A failed call is recorded and does not abort the batch.
func (s *Scorer) RefineBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	for i, req := range reqs {
		select {
		case <-ctx.Done():
			results[i] = Result{Request: req, Err: ctx.Err()}
			continue
		default:
		}

		proposal, err := s.Refine(ctx, req)
		results[i] = Result{Request: req, Proposal: proposal, Err: err}
	}
	return results
}

// CacheSize reports the number of cached proposals.
func (s *Scorer) CacheSize() int {
	return s.cache.size()
}
