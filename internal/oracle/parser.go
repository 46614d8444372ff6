package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mapflow/mapflow/internal/common"
)

// parseProposal extracts a Proposal from raw model output. Models wrap
// JSON in markdown fences or surround it with prose often enough that
// both are stripped before unmarshaling.
func parseProposal(content string) (Proposal, error) {
	content = cleanMarkdownWrapper(content)
	content = extractJSONObject(content)

	var resp struct {
		Account    string  `json:"account"`
		Confidence float64 `json:"confidence"`
		Rationale  string  `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return Proposal{}, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	if resp.Confidence < 0 {
		resp.Confidence = 0
	} else if resp.Confidence > 1 {
		resp.Confidence = 1
	}

	return Proposal{
		Account:    strings.TrimSpace(resp.Account),
		Confidence: resp.Confidence,
		Rationale:  strings.TrimSpace(resp.Rationale),
	}, nil
}

// cleanMarkdownWrapper removes ```json fences around a payload.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

// extractJSONObject pulls the outermost {...} from mixed prose output.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
