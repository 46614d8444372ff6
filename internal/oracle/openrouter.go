package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mapflow/mapflow/internal/common"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// openRouterClient implements Client against an OpenRouter-style
// chat-completions endpoint with a fixed model.
type openRouterClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func newOpenRouterClient(cfg Config, model string) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: oracle API key is required", common.ErrMissingConfig)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.05
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &openRouterClient{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Propose sends a single-label refinement request.
func (c *openRouterClient) Propose(ctx context.Context, oreq Request) (Proposal, error) {
	systemPrompt := "You are a senior financial auditor validating statement line-item mappings. Be precise and respond with valid JSON only."

	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildRefinePrompt(oreq)},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Proposal{}, fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return Proposal{}, fmt.Errorf("%w: model %s rate limited", common.ErrRateLimit, c.model)
	case http.StatusServiceUnavailable:
		return Proposal{}, fmt.Errorf("%w: model %s unavailable", common.ErrOracleUnavailable, c.model)
	default:
		return Proposal{}, fmt.Errorf("oracle API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Proposal{}, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	if len(response.Choices) == 0 {
		return Proposal{}, fmt.Errorf("%w: no choices in response", common.ErrMalformedResponse)
	}

	return parseProposal(response.Choices[0].Message.Content)
}

// buildRefinePrompt renders the second-pass validation prompt: the label,
// its current match, and the shortlist of candidate accounts.
func buildRefinePrompt(req Request) string {
	current := req.CurrentMatch
	if current == "" {
		current = "NONE"
	}

	var candidates strings.Builder
	for i, c := range req.Candidates {
		fmt.Fprintf(&candidates, "%d. %s (%s) - Text similarity: %d%%\n",
			i+1, c.Name, c.Value.StringFixed(2), c.Similarity)
	}

	return fmt.Sprintf(`You are validating one financial statement line-item mapping.

TEMPLATE LABEL TO MAP:
%q

CURRENT MAPPING (from first pass):
Account: %q

CANDIDATE ACCOUNTS (sorted by relevance):
%s
YOUR TASK:
1. Review the current mapping critically
2. Consider all candidate accounts
3. Choose the MOST ACCURATE match based on financial meaning
4. If none are good matches, set account to empty string

Return ONLY valid JSON:
{
  "account": "Best matching account name (or empty string)",
  "confidence": 0.XX,
  "rationale": "Why this is correct"
}`, req.Label, current, candidates.String())
}

// chatResponse is the subset of the chat-completions payload we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
