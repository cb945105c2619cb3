package repository

import (
	"context"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// AuditRecord is one archived pipeline outcome.
type AuditRecord struct {
	ID             int64
	Kind           string // "abandoned" or "delivery"
	EventID        uuid.UUID
	SubscriptionID *uuid.UUID
	EventType      string
	ClientID       string
	Success        *bool
	Attempts       *int
	Detail         string
	RecordedAt     time.Time
}

// AuditRepository provides access to event_audit.
type AuditRepository interface {
	// InsertAbandoned archives a terminally failed event.
	InsertAbandoned(ctx context.Context, db DBTX, ev domain.DomainEvent, lastError string) error

	// InsertDelivery archives one webhook delivery attempt outcome.
	InsertDelivery(ctx context.Context, db DBTX, subscriptionID, eventID uuid.UUID, success bool, detail string) error

	// Recent returns the newest audit records, most recent first.
	Recent(ctx context.Context, db DBTX, limit int) ([]AuditRecord, error)
}
