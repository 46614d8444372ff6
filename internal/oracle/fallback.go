package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mapflow/mapflow/internal/common"
)

// fallbackClient tries an ordered list of model-specific clients,
// advancing to the next model when the current one is rate limited or
// unavailable. The advance is sticky: once a model has failed, later
// calls start from its successor.
type fallbackClient struct {
	logger  *slog.Logger
	clients []Client
	models  []string
	current int
	mu      sync.Mutex
}

func newFallbackClient(cfg Config, logger *slog.Logger) (Client, error) {
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("%w: at least one oracle model is required", common.ErrMissingConfig)
	}

	clients := make([]Client, len(cfg.Models))
	for i, model := range cfg.Models {
		client, err := newOpenRouterClient(cfg, model)
		if err != nil {
			return nil, err
		}
		clients[i] = client
	}

	return &fallbackClient{
		clients: clients,
		models:  cfg.Models,
		logger:  logger,
	}, nil
}

// Propose delegates to the current model, advancing down the fallback
// list on rate-limit or unavailability signals. Other errors are
// returned as-is so the caller's retry policy can handle them.
func (f *fallbackClient) Propose(ctx context.Context, req Request) (Proposal, error) {
	for {
		client, model, ok := f.currentClient()
		if !ok {
			return Proposal{}, fmt.Errorf("%w: all oracle models exhausted", common.ErrOracleUnavailable)
		}

		proposal, err := client.Propose(ctx, req)
		if err == nil {
			return proposal, nil
		}

		if errors.Is(err, common.ErrRateLimit) || errors.Is(err, common.ErrOracleUnavailable) {
			f.logger.Warn("oracle model failed, switching to fallback",
				"model", model,
				"error", err)
			f.advance(model)
			continue
		}

		return Proposal{}, err
	}
}

func (f *fallbackClient) currentClient() (Client, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current >= len(f.clients) {
		return nil, "", false
	}
	return f.clients[f.current], f.models[f.current], true
}

// advance moves past the named model unless a concurrent caller already did.
func (f *fallbackClient) advance(failedModel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current < len(f.models) && f.models[f.current] == failedModel {
		f.current++
	}
}
