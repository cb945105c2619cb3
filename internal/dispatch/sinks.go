package dispatch

import (
	"context"

	"github.com/francis/platform/internal/domain"
	"github.com/google/uuid"
)

// EventPublisher mirrors successfully processed events to internal consumers
// (Kafka in production).
type EventPublisher interface {
	PublishProcessed(ctx context.Context, ev *domain.DomainEvent) error
}

// AuditSink archives terminal outcomes for operational forensics.
type AuditSink interface {
	RecordAbandoned(ctx context.Context, ev domain.DomainEvent, lastError string) error
	RecordDelivery(ctx context.Context, subscriptionID, eventID uuid.UUID, success bool, detail string) error
}

// NopPublisher discards mirrored events.
type NopPublisher struct{}

func (NopPublisher) PublishProcessed(context.Context, *domain.DomainEvent) error { return nil }

// NopAudit discards audit records.
type NopAudit struct{}

func (NopAudit) RecordAbandoned(context.Context, domain.DomainEvent, string) error { return nil }

func (NopAudit) RecordDelivery(context.Context, uuid.UUID, uuid.UUID, bool, string) error {
	return nil
}
