package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// proposalCache memoizes oracle proposals for identical refinement
// requests within one process. Expired entries are evicted on access.
type proposalCache struct {
	entries map[string]proposalEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

type proposalEntry struct {
	expiry   time.Time
	proposal Proposal
}

func newProposalCache(ttl time.Duration) *proposalCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &proposalCache{
		entries: make(map[string]proposalEntry),
		ttl:     ttl,
	}
}

func (c *proposalCache) get(key string) (Proposal, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return Proposal{}, false
	}
	if time.Now().After(entry.expiry) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return Proposal{}, false
	}
	return entry.proposal, true
}

func (c *proposalCache) set(key string, proposal Proposal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = proposalEntry{
		proposal: proposal,
		expiry:   time.Now().Add(c.ttl),
	}
}

func (c *proposalCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// requestKey hashes the label, current match, and shortlist so that
// identical refinement requests share a cache slot.
func requestKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Label))
	h.Write([]byte{0})
	h.Write([]byte(req.CurrentMatch))
	for _, c := range req.Candidates {
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(c.Name)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
