// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the coarse confidence bucket derived from a numeric score.
type Tier string

// Confidence tier constants.
const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Label is a line-item caption extracted from the prior-period template.
// Page/X/Y/Font are passthrough metadata from ingestion and are never
// consulted by matching.
type Label struct {
	Text string
	Font string
	Page int
	X    float64
	Y    float64
}

// Account is a named financial line item with a numeric value from the
// current period's data source. Names are unique within one run.
type Account struct {
	Name  string
	Value decimal.Decimal
}

// AccountSet is an ordered collection of accounts with unique names.
// Insertion order is preserved so that tie-breaking stays deterministic;
// duplicate names overwrite the value in place (last write wins).
type AccountSet struct {
	index map[string]int
	items []Account
}

// NewAccountSet creates an empty account set.
func NewAccountSet() *AccountSet {
	return &AccountSet{index: make(map[string]int)}
}

// Add inserts or overwrites an account by name.
func (s *AccountSet) Add(name string, value decimal.Decimal) {
	if i, ok := s.index[name]; ok {
		s.items[i].Value = value
		return
	}
	s.index[name] = len(s.items)
	s.items = append(s.items, Account{Name: name, Value: value})
}

// Get returns the value for an account name.
func (s *AccountSet) Get(name string) (decimal.Decimal, bool) {
	i, ok := s.index[name]
	if !ok {
		return decimal.Zero, false
	}
	return s.items[i].Value, true
}

// Contains reports whether the set holds an account with the given name.
func (s *AccountSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns account names in insertion order.
func (s *AccountSet) Names() []string {
	names := make([]string, len(s.items))
	for i, a := range s.items {
		names[i] = a.Name
	}
	return names
}

// Accounts returns the accounts in insertion order.
func (s *AccountSet) Accounts() []Account {
	out := make([]Account, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of accounts in the set.
func (s *AccountSet) Len() int {
	return len(s.items)
}

// MappingEntry is one row of the final mapping: a template label together
// with its matched account, value, and confidence.
type MappingEntry struct {
	Label     string          `json:"label"`
	Account   string          `json:"account"`
	Value     decimal.Decimal `json:"value"`
	Tier      Tier            `json:"tier"`
	Category  string          `json:"category,omitempty"`
	Rationale string          `json:"rationale,omitempty"`
	Score     int             `json:"score"`
}

// Matched reports whether the entry has a matched account.
func (e *MappingEntry) Matched() bool {
	return e.Account != ""
}

// MappingSet is the ordered result of one mapping run, one entry per
// input label.
type MappingSet struct {
	CreatedAt time.Time      `json:"created_at"`
	ID        string         `json:"id"`
	Method    string         `json:"method"`
	Entries   []MappingEntry `json:"entries"`
}

// NewMappingSet creates an empty mapping set for the given strategy name.
func NewMappingSet(method string) *MappingSet {
	return &MappingSet{
		ID:        uuid.New().String(),
		Method:    method,
		CreatedAt: time.Now().UTC(),
	}
}

// Reassign points the entry at index i to a different account, keeping the
// value invariant: the entry's value always tracks the assigned account, or
// zero when the account is cleared or unknown.
func (m *MappingSet) Reassign(i int, account string, accounts *AccountSet) {
	if i < 0 || i >= len(m.Entries) {
		return
	}
	entry := &m.Entries[i]
	entry.Account = account
	if value, ok := accounts.Get(account); ok && account != "" {
		entry.Value = value
	} else {
		entry.Account = ""
		entry.Value = decimal.Zero
		entry.Tier = TierLow
	}
	entry.Rationale = strings.TrimSpace(entry.Rationale + " [User edited]")
}

// LowConfidenceScore is the score below which a matched entry is
// counted as needing review.
const LowConfidenceScore = 70

// Stats recomputes the counts derivable from the entries alone, for
// summarizing a stored mapping set. Oracle counters are run-scoped and
// stay zero here.
func (m *MappingSet) Stats() RunStats {
	stats := RunStats{Total: len(m.Entries)}

	targets := make(map[string]int)
	for i := range m.Entries {
		entry := &m.Entries[i]
		if !entry.Matched() {
			stats.Unmatched++
			continue
		}
		stats.Matched++
		targets[entry.Account]++
		if entry.Score < LowConfidenceScore {
			stats.LowConfidence++
		}
	}
	for _, n := range targets {
		if n > 1 {
			stats.DuplicateTargets++
		}
	}
	return stats
}

// RunStats summarizes a mapping run for observability. Warnings captured
// here never block output.
type RunStats struct {
	Total            int
	Matched          int
	Unmatched        int
	LowConfidence    int
	DuplicateTargets int
	OracleCalls      int
	OracleFailures   int
}
