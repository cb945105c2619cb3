package domain

import "fmt"

// ValidateEnqueue rejects malformed enqueue calls before they reach the
// queue: unknown type, missing clientId, or a payload that does not match
// the event type.
func ValidateEnqueue(t EventType, clientID string, payload Payload) error {
	if !t.Valid() {
		return fmt.Errorf("unknown event type: %q", t)
	}
	if clientID == "" {
		return fmt.Errorf("clientId is required")
	}
	if payload == nil {
		return fmt.Errorf("payload is required")
	}
	if payload.EventType() != t {
		return fmt.Errorf("payload type %s does not match event type %s", payload.EventType(), t)
	}
	return payload.Validate()
}

// ValidateMaxRetries bounds producer-supplied retry ceilings.
func ValidateMaxRetries(n int) error {
	if n < 0 {
		return fmt.Errorf("maxRetries must not be negative, got %d", n)
	}
	if n > 10 {
		return fmt.Errorf("maxRetries must not exceed 10, got %d", n)
	}
	return nil
}
