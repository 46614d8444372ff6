// Package knowledge holds the synonym knowledge base used to resolve
// financial terms to canonical forms before fuzzy matching.
package knowledge

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mapflow/mapflow/internal/normalize"
)

// maxSuggestions caps how many candidate accounts Suggest returns.
const maxSuggestions = 3

// Base maps term variants to their canonical financial term. It is built
// from a static table, optionally overlaid from a YAML file, and is
// read-only after construction.
type Base struct {
	synonyms map[string]string
	// keys holds the synonym variants sorted longest first so that
	// containment lookups are deterministic and prefer the most
	// specific variant.
	keys   []string
	logger *slog.Logger
}

// builtinSynonyms covers the common variations seen in charts of accounts.
// Keys and values are in normalized (lowercase) form.
var builtinSynonyms = map[string]string{
	"total revenue":                 "revenue",
	"sales":                         "revenue",
	"turnover":                      "revenue",
	"gross revenue":                 "revenue",
	"revenue from sales":            "revenue",
	"net profit":                    "net income",
	"net earnings":                  "net income",
	"bottom line":                   "net income",
	"profit after tax":              "net income",
	"total assets":                  "assets",
	"gross assets":                  "assets",
	"total liabilities":             "liabilities",
	"shareholders equity":           "equity",
	"owner equity":                  "equity",
	"owners equity":                 "equity",
	"net worth":                     "equity",
	"cash and equivalents":          "cash",
	"cash and cash equivalents":     "cash",
	"cash on hand":                  "cash",
	"total expenses":                "expenses",
	"operating expenses":            "expenses",
	"ebit":                          "operating income",
	"operating profit":              "operating income",
	"gross margin":                  "gross profit",
	"gross earnings":                "gross profit",
	"cost of sales":                 "cost of goods sold",
	"cogs":                          "cost of goods sold",
	"trade receivables":             "accounts receivable",
	"debtors":                       "accounts receivable",
	"trade payables":                "accounts payable",
	"creditors":                     "accounts payable",
	"fixed assets":                  "property plant and equipment",
	"tangible assets":               "property plant and equipment",
	"property, plant & equipment":   "property plant and equipment",
	"property, plant and equipment": "property plant and equipment",
}

// Config controls knowledge base construction.
type Config struct {
	// OverlayPath optionally points at a YAML file of additional
	// variant -> canonical pairs. Load failures degrade to the built-in
	// table rather than failing the run.
	OverlayPath string
}

// New builds a knowledge base from the built-in table plus any overlay.
func New(cfg Config, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}

	synonyms := make(map[string]string, len(builtinSynonyms))
	for variant, canonical := range builtinSynonyms {
		synonyms[normalize.Normalize(variant)] = normalize.Normalize(canonical)
	}

	if cfg.OverlayPath != "" {
		overlay, err := loadOverlay(cfg.OverlayPath)
		if err != nil {
			logger.Warn("synonym overlay unavailable, using built-in table only",
				"path", cfg.OverlayPath,
				"error", err)
		} else {
			for variant, canonical := range overlay {
				synonyms[normalize.Normalize(variant)] = normalize.Normalize(canonical)
			}
			logger.Info("loaded synonym overlay", "path", cfg.OverlayPath, "terms", len(overlay))
		}
	}

	keys := make([]string, 0, len(synonyms))
	for variant := range synonyms {
		keys = append(keys, variant)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	return &Base{synonyms: synonyms, keys: keys, logger: logger}
}

func loadOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay: %w", err)
	}
	var overlay map[string]string
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse overlay: %w", err)
	}
	return overlay, nil
}

// CanonicalTerm resolves a name to its canonical financial term. Exact
// table lookups win, then containment against the table's variants in
// either direction (longest variant first), and finally the normalized
// name is returned as-is.
func (b *Base) CanonicalTerm(name string) string {
	norm := normalize.Normalize(name)
	if canonical, ok := b.synonyms[norm]; ok {
		return canonical
	}
	if norm != "" {
		for _, variant := range b.keys {
			if strings.Contains(norm, variant) || strings.Contains(variant, norm) {
				return b.synonyms[variant]
			}
		}
	}
	return norm
}

// Suggest returns up to three candidate accounts whose canonical term
// equals the label's, or that share at least one normalized token.
// Ordering: exact canonical matches first, then by token overlap count
// descending, then original candidate order. Deduplicated.
func (b *Base) Suggest(label string, candidates []string) []string {
	labelCanonical := b.CanonicalTerm(label)
	labelTokens := normalize.TokenSet(label)

	type scored struct {
		name    string
		overlap int
		pos     int
		exact   bool
	}

	var matches []scored
	seen := make(map[string]struct{})
	for i, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		exact := b.CanonicalTerm(candidate) == labelCanonical
		overlap := 0
		for tok := range normalize.TokenSet(candidate) {
			if _, ok := labelTokens[tok]; ok {
				overlap++
			}
		}
		if !exact && overlap == 0 {
			continue
		}
		matches = append(matches, scored{name: candidate, exact: exact, overlap: overlap, pos: i})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].exact != matches[j].exact {
			return matches[i].exact
		}
		if matches[i].overlap != matches[j].overlap {
			return matches[i].overlap > matches[j].overlap
		}
		return matches[i].pos < matches[j].pos
	})

	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// Size returns the number of synonym entries loaded.
func (b *Base) Size() int {
	return len(b.synonyms)
}
