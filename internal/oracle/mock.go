package oracle

import (
	"context"
	"sync"
)

// MockClient is a test implementation of the Client interface. It
// returns canned proposals by label and can be told to fail.
type MockClient struct {
	proposals map[string]Proposal
	err       error
	calls     []Request
	mu        sync.Mutex
}

// NewMockClient creates an empty mock oracle client.
func NewMockClient() *MockClient {
	return &MockClient{proposals: make(map[string]Proposal)}
}

// SetProposal registers the proposal returned for a label.
func (m *MockClient) SetProposal(label string, proposal Proposal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[label] = proposal
}

// SetError makes every call fail with err until cleared.
func (m *MockClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Propose returns the canned proposal for the request's label, or an
// empty no-match proposal when none is registered.
func (m *MockClient) Propose(_ context.Context, req Request) (Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if m.err != nil {
		return Proposal{}, m.err
	}
	if proposal, ok := m.proposals[req.Label]; ok {
		return proposal, nil
	}
	return Proposal{}, nil
}

// Calls returns a copy of the recorded requests.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
