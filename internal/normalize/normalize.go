// Package normalize canonicalizes account and label strings for comparison.
package normalize

import (
	"regexp"
	"strings"
)

var (
	codePrefix = regexp.MustCompile(`^\d+\s*-\s*`)
	whitespace = regexp.MustCompile(`\s+`)
)

// internalMarker flags intercompany accounts in exported charts of accounts.
const internalMarker = "IC_"

// Normalize canonicalizes a raw account or label string: strips a leading
// numeric account-code prefix ("40050 - Trade Sales" -> "Trade Sales"),
// removes the intercompany marker, lowercases, and collapses whitespace.
// It is pure and total; input that matches nothing comes back lowercased
// and trimmed.
func Normalize(raw string) string {
	s := codePrefix.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, internalMarker, "")
	s = strings.ToLower(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripCodePrefix removes a leading numeric account-code prefix and the
// intercompany marker while preserving the original casing. Used when a
// display name is needed rather than a comparison key.
func StripCodePrefix(raw string) string {
	s := codePrefix.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, internalMarker, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens splits a normalized form of s into its word tokens.
func Tokens(s string) []string {
	norm := Normalize(s)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

// TokenSet returns the unique tokens of s as a membership set.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}
