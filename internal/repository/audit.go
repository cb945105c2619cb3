package repository

import (
	"context"
	"fmt"

	"github.com/francis/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditRepo struct{}

// NewAuditRepository returns a pgx-backed AuditRepository.
func NewAuditRepository() AuditRepository {
	return &auditRepo{}
}

func (r *auditRepo) InsertAbandoned(ctx context.Context, db DBTX, ev domain.DomainEvent, lastError string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO event_audit (kind, event_id, event_type, client_id, attempts, detail)
		VALUES ('abandoned', $1, $2, $3, $4, $5)`,
		ev.ID, string(ev.Type), ev.ClientID, ev.RetryCount, lastError,
	)
	if err != nil {
		return fmt.Errorf("insert abandoned record: %w", err)
	}
	return nil
}

func (r *auditRepo) InsertDelivery(ctx context.Context, db DBTX, subscriptionID, eventID uuid.UUID, success bool, detail string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO event_audit (kind, event_id, subscription_id, success, detail)
		VALUES ('delivery', $1, $2, $3, $4)`,
		eventID, subscriptionID, success, detail,
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

func (r *auditRepo) Recent(ctx context.Context, db DBTX, limit int) ([]AuditRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT id, kind, event_id, subscription_id, COALESCE(event_type, ''),
		       COALESCE(client_id, ''), success, attempts, COALESCE(detail, ''), recorded_at
		FROM event_audit
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch audit records: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.EventID, &rec.SubscriptionID,
			&rec.EventType, &rec.ClientID, &rec.Success, &rec.Attempts, &rec.Detail, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AuditSink binds an AuditRepository to a pool so the scheduler can archive
// outcomes without carrying database handles.
type AuditSink struct {
	pool *pgxpool.Pool
	repo AuditRepository
}

// NewAuditSink creates a pool-bound audit sink.
func NewAuditSink(pool *pgxpool.Pool, repo AuditRepository) *AuditSink {
	return &AuditSink{pool: pool, repo: repo}
}

func (s *AuditSink) RecordAbandoned(ctx context.Context, ev domain.DomainEvent, lastError string) error {
	return s.repo.InsertAbandoned(ctx, s.pool, ev, lastError)
}

func (s *AuditSink) RecordDelivery(ctx context.Context, subscriptionID, eventID uuid.UUID, success bool, detail string) error {
	return s.repo.InsertDelivery(ctx, s.pool, subscriptionID, eventID, success, detail)
}
