package domain

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// FailureThreshold is the number of consecutive delivery failures after which
// a subscription is deactivated. The subscriber must re-subscribe to resume.
const FailureThreshold = 10

// Subscription is a client-registered webhook endpoint interested in a set of
// event types. Deactivation is a soft delete so delivery history stays
// auditable.
type Subscription struct {
	ID           uuid.UUID
	ClientID     string
	EventTypes   []EventType
	Endpoint     string
	Secret       string
	Active       bool
	CreatedAt    time.Time
	LastDelivery *time.Time
	FailureCount int
}

// Wants reports whether the subscription covers the given event type.
func (s *Subscription) Wants(t EventType) bool {
	for _, et := range s.EventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// SubscriptionSpec is the input to Subscribe.
type SubscriptionSpec struct {
	ClientID   string
	EventTypes []EventType
	Endpoint   string
	Secret     string
}

// Validate rejects malformed subscription requests at the API boundary.
func (s SubscriptionSpec) Validate() error {
	if s.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}
	if len(s.EventTypes) == 0 {
		return fmt.Errorf("at least one event type is required")
	}
	for _, t := range s.EventTypes {
		if !t.Valid() {
			return fmt.Errorf("unknown event type: %s", t)
		}
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %s", u.Scheme)
	}
	if s.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return nil
}
