// Package oracle adapts a remote LLM-backed scoring service for
// refining uncertain label-to-account mappings. The adapter is fallible
// by contract: callers must treat every proposal as optional and keep a
// deterministic fallback.
package oracle

import (
	"context"

	"github.com/shopspring/decimal"
)

// Candidate is one shortlisted account presented to the oracle.
type Candidate struct {
	Name       string
	Value      decimal.Decimal
	Similarity int
}

// Request asks the oracle to pick the best account for a single label.
type Request struct {
	Label        string
	CurrentMatch string
	Candidates   []Candidate
}

// Proposal is the oracle's answer: a proposed account (may be empty for
// "no good match"), a confidence in [0,1], and a free-text rationale.
type Proposal struct {
	Account    string
	Rationale  string
	Confidence float64
}

// Client defines the transport-level interface to a scoring oracle.
type Client interface {
	Propose(ctx context.Context, req Request) (Proposal, error)
}
