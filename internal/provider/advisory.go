package provider

import (
	"context"
	"sync"

	"github.com/francis/platform/internal/domain"
)

// RecalcScheduler collects pending recalculation requests per client. The tax
// and succession engines drain this asynchronously; duplicate reasons for the
// same client coalesce, so re-triggering on redelivery is idempotent.
type RecalcScheduler struct {
	mu      sync.Mutex
	pending map[string]map[string]bool // clientID -> reason -> queued
}

// NewRecalcScheduler creates an empty scheduler.
func NewRecalcScheduler() *RecalcScheduler {
	return &RecalcScheduler{pending: make(map[string]map[string]bool)}
}

// TriggerRecalculation queues a recalculation for the client.
func (s *RecalcScheduler) TriggerRecalculation(_ context.Context, clientID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[clientID] == nil {
		s.pending[clientID] = make(map[string]bool)
	}
	s.pending[clientID][reason] = true
	return nil
}

// Pending returns the queued recalculation reasons for a client.
func (s *RecalcScheduler) Pending(clientID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for reason := range s.pending[clientID] {
		out = append(out, reason)
	}
	return out
}

// ThresholdAnomalyChecker flags transactions whose absolute amount reaches a
// fixed limit. A stand-in for the fraud detection collaborator.
type ThresholdAnomalyChecker struct {
	Limit int64
}

// CheckTransaction flags transactions at or above the limit.
func (c *ThresholdAnomalyChecker) CheckTransaction(_ context.Context, _ string, tx *domain.TransactionPayload) (bool, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = 500000
	}
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}
	return amount >= limit, nil
}

// ProfileStore applies classified documents to in-memory client tax profiles,
// keyed by document ID so redelivery is a no-op.
type ProfileStore struct {
	mu        sync.Mutex
	documents map[string]map[string]domain.DocumentPayload // clientID -> documentID -> doc
}

// NewProfileStore creates an empty profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{documents: make(map[string]map[string]domain.DocumentPayload)}
}

// ApplyDocument records the document's classification on the client profile.
func (s *ProfileStore) ApplyDocument(_ context.Context, clientID string, doc *domain.DocumentPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.documents[clientID] == nil {
		s.documents[clientID] = make(map[string]domain.DocumentPayload)
	}
	s.documents[clientID][doc.DocumentID] = *doc
	return nil
}

// Documents returns the applied documents for a client.
func (s *ProfileStore) Documents(clientID string) []domain.DocumentPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DocumentPayload
	for _, d := range s.documents[clientID] {
		out = append(out, d)
	}
	return out
}
