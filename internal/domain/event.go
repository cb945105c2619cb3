package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types the pipeline accepts.
type EventType string

const (
	EventAccountSync       EventType = "ACCOUNT_SYNC"
	EventTransactionNew    EventType = "TRANSACTION_NEW"
	EventBalanceChange     EventType = "BALANCE_CHANGE"
	EventDocumentProcessed EventType = "DOCUMENT_PROCESSED"
	EventComplianceUpdate  EventType = "COMPLIANCE_UPDATE"
	EventMarketDataUpdate  EventType = "MARKET_DATA_UPDATE"
)

// EventTypes lists every valid event type, in declaration order.
var EventTypes = []EventType{
	EventAccountSync,
	EventTransactionNew,
	EventBalanceChange,
	EventDocumentProcessed,
	EventComplianceUpdate,
	EventMarketDataUpdate,
}

// Valid reports whether t is a member of the closed event type set.
func (t EventType) Valid() bool {
	switch t {
	case EventAccountSync, EventTransactionNew, EventBalanceChange,
		EventDocumentProcessed, EventComplianceUpdate, EventMarketDataUpdate:
		return true
	}
	return false
}

// Priority orders events within the queue. Higher values sort first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ParsePriority maps the wire representation to a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "HIGH":
		return PriorityHigh, true
	case "MEDIUM":
		return PriorityMedium, true
	case "LOW":
		return PriorityLow, true
	}
	return PriorityLow, false
}

// Retry ceilings. Banking events get extra attempts because provider sync
// endpoints are flaky during nightly maintenance windows.
const (
	DefaultMaxRetries = 3
	BankingMaxRetries = 5
)

// DomainEvent is a single occurrence flowing through the dispatch pipeline.
// Only the scheduler mutates Processed, RetryCount and NextRetry; producers
// hand the event over at enqueue time and never touch it again.
type DomainEvent struct {
	ID         uuid.UUID
	Type       EventType
	Source     string
	ClientID   string
	Timestamp  time.Time
	Payload    Payload
	Priority   Priority
	Processed  bool
	RetryCount int
	MaxRetries int
	NextRetry  *time.Time

	// Seq is assigned by the queue at enqueue time and breaks timestamp
	// ties so ordering stays stable under concurrent producers.
	Seq uint64
}

// EligibleAt reports whether the event may be picked into a batch at now.
func (e *DomainEvent) EligibleAt(now time.Time) bool {
	if e.Processed {
		return false
	}
	return e.NextRetry == nil || !e.NextRetry.After(now)
}
