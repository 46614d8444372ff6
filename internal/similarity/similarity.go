// Package similarity computes textual similarity scores between account
// and label names.
package similarity

import (
	"math"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Blend weights: token-set similarity dominates, the partial ratio catches
// substring relationships the token view misses.
const (
	tokenSetWeight = 0.7
	partialWeight  = 0.3
)

// Score returns a similarity score in [0,100] between two strings. It is
// case-insensitive and symmetric, returns 100 for identical non-empty
// inputs, and 0 when either input is empty.
func Score(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	blended := tokenSetWeight*float64(TokenSetRatio(a, b)) + partialWeight*float64(PartialRatio(a, b))
	return int(math.Round(blended))
}

// TokenSetRatio measures order-independent token overlap: the inputs are
// split into sorted unique token sets and the best Levenshtein ratio over
// the intersection/difference combinations is taken. Inputs sharing all
// tokens score 100 regardless of word order.
func TokenSetRatio(a, b string) int {
	setA := uniqueTokens(a)
	setB := uniqueTokens(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var inter, diffA, diffB []string
	for _, tok := range setA {
		if contains(setB, tok) {
			inter = append(inter, tok)
		} else {
			diffA = append(diffA, tok)
		}
	}
	for _, tok := range setB {
		if !contains(setA, tok) {
			diffB = append(diffB, tok)
		}
	}

	base := strings.Join(inter, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(diffA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(diffB, " "))

	best := ratio(base, combinedA)
	if r := ratio(base, combinedB); r > best {
		best = r
	}
	if r := ratio(combinedA, combinedB); r > best {
		best = r
	}
	return best
}

// PartialRatio measures how well the shorter string matches the best
// aligned window of the longer one. A full substring scores 100.
func PartialRatio(a, b string) int {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if shorter == "" {
		return 0
	}
	if strings.Contains(longer, shorter) {
		return 100
	}

	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := longer[i : i+len(shorter)]
		if r := ratio(shorter, window); r > best {
			best = r
		}
		if best == 100 {
			break
		}
	}
	// Sliding windows miss alignments near the tail of the longer string.
	if r := ratio(shorter, longer[len(longer)-len(shorter):]); r > best {
		best = r
	}
	return best
}

// ratio converts Levenshtein distance to a 0-100 similarity.
func ratio(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 0
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	r := int(math.Round(float64(total-2*dist) / float64(total) * 100))
	if r < 0 {
		return 0
	}
	return r
}

// TopN returns the n candidates most similar to the target, scored with
// Score, highest first; ties keep the original candidate order.
func TopN(target string, candidates []string, n int) []Ranked {
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Name: c, Score: Score(target, c), pos: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].pos < ranked[j].pos
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Ranked is a candidate name with its similarity score against a target.
type Ranked struct {
	Name  string
	Score int
	pos   int
}

func uniqueTokens(s string) []string {
	seen := make(map[string]struct{})
	var toks []string
	for _, tok := range strings.Fields(s) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		toks = append(toks, tok)
	}
	sort.Strings(toks)
	return toks
}

func contains(toks []string, t string) bool {
	for _, tok := range toks {
		if tok == t {
			return true
		}
	}
	return false
}
