// Package registry tracks webhook subscriptions and their delivery health.
package registry

import (
	"sync"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/google/uuid"
)

// entry pairs a subscription with its own lock so delivery outcomes for the
// same subscription are serialized while different subscriptions update
// concurrently.
type entry struct {
	mu  sync.Mutex
	sub domain.Subscription
}

// Registry is a concurrency-safe in-memory subscription store. Reads during a
// processing batch take the outer RLock; per-subscription counters are
// guarded by the entry lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*entry)}
}

// Subscribe validates the spec and registers a new active subscription.
func (r *Registry) Subscribe(spec domain.SubscriptionSpec) (uuid.UUID, error) {
	if err := spec.Validate(); err != nil {
		return uuid.Nil, domain.ErrValidation(err.Error())
	}

	sub := domain.Subscription{
		ID:         uuid.New(),
		ClientID:   spec.ClientID,
		EventTypes: append([]domain.EventType(nil), spec.EventTypes...),
		Endpoint:   spec.Endpoint,
		Secret:     spec.Secret,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.entries[sub.ID] = &entry{sub: sub}
	r.mu.Unlock()

	return sub.ID, nil
}

// Unsubscribe removes a subscription. The clientID must match the owner;
// mismatches report false rather than leaking existence.
func (r *Registry) Unsubscribe(id uuid.UUID, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.sub.ClientID != clientID {
		return false
	}
	delete(r.entries, id)
	return true
}

// For returns snapshots of the active subscriptions matching the client and
// event type. Snapshots keep delivery code off the shared records.
func (r *Registry) For(clientID string, t domain.EventType) []domain.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Subscription
	for _, e := range r.entries {
		e.mu.Lock()
		if e.sub.Active && e.sub.ClientID == clientID && e.sub.Wants(t) {
			out = append(out, cloneSub(&e.sub))
		}
		e.mu.Unlock()
	}
	return out
}

// ByClient returns snapshots of all subscriptions for a client, active or not.
func (r *Registry) ByClient(clientID string) []domain.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Subscription
	for _, e := range r.entries {
		e.mu.Lock()
		if e.sub.ClientID == clientID {
			out = append(out, cloneSub(&e.sub))
		}
		e.mu.Unlock()
	}
	return out
}

// Get returns a snapshot of a subscription by ID.
func (r *Registry) Get(id uuid.UUID) (domain.Subscription, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Subscription{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSub(&e.sub), true
}

// RecordSuccess resets the failure counter and stamps the delivery time.
func (r *Registry) RecordSuccess(id uuid.UUID, at time.Time) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sub.FailureCount = 0
	t := at
	e.sub.LastDelivery = &t
}

// RecordFailure increments the failure counter and deactivates the
// subscription once the threshold is reached. Returns true when this call
// tripped the deactivation.
func (r *Registry) RecordFailure(id uuid.UUID) (deactivated bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sub.FailureCount++
	if e.sub.Active && e.sub.FailureCount >= domain.FailureThreshold {
		e.sub.Active = false
		return true
	}
	return false
}

func cloneSub(s *domain.Subscription) domain.Subscription {
	out := *s
	out.EventTypes = append([]domain.EventType(nil), s.EventTypes...)
	if s.LastDelivery != nil {
		t := *s.LastDelivery
		out.LastDelivery = &t
	}
	return out
}
