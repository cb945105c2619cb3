package provider

import (
	"context"
	"sync"
	"time"
)

// AccountCache is the in-process cache of synced account data. The pipeline
// only needs the refresh side; reads happen in the advisory layers.
type AccountCache struct {
	mu        sync.RWMutex
	refreshed map[string]map[string]time.Time // clientID -> accountID -> refreshed at
}

// NewAccountCache creates an empty account cache.
func NewAccountCache() *AccountCache {
	return &AccountCache{refreshed: make(map[string]map[string]time.Time)}
}

// RefreshAccounts marks the given accounts as refreshed now. Re-running for
// the same accounts is harmless, which keeps redelivery idempotent.
func (c *AccountCache) RefreshAccounts(_ context.Context, clientID string, accountIDs []string) error {
	now := time.Now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshed[clientID] == nil {
		c.refreshed[clientID] = make(map[string]time.Time)
	}
	for _, id := range accountIDs {
		c.refreshed[clientID][id] = now
	}
	return nil
}

// LastRefreshed returns when an account was last refreshed.
func (c *AccountCache) LastRefreshed(clientID, accountID string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.refreshed[clientID][accountID]
	return t, ok
}

// QuoteCache holds the latest market quote timestamps per symbol.
type QuoteCache struct {
	mu      sync.RWMutex
	updated map[string]time.Time
}

// NewQuoteCache creates an empty quote cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{updated: make(map[string]time.Time)}
}

// UpdateQuotes marks the symbols as refreshed now.
func (c *QuoteCache) UpdateQuotes(_ context.Context, symbols []string) error {
	now := time.Now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		c.updated[s] = now
	}
	return nil
}

// LastUpdated returns when a symbol was last refreshed.
func (c *QuoteCache) LastUpdated(symbol string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.updated[symbol]
	return t, ok
}
