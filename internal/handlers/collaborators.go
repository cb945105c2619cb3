package handlers

import (
	"context"

	"github.com/francis/platform/internal/domain"
)

// Collaborator ports. The pipeline owns none of these capabilities; handlers
// call out through these interfaces and the wiring decides the
// implementations.

// CacheRefresher invalidates or refreshes cached account data for a client.
type CacheRefresher interface {
	RefreshAccounts(ctx context.Context, clientID string, accountIDs []string) error
}

// RecalcTrigger schedules a tax/succession recalculation for a client.
type RecalcTrigger interface {
	TriggerRecalculation(ctx context.Context, clientID, reason string) error
}

// AnomalyChecker screens a transaction for fraud or anomalies.
type AnomalyChecker interface {
	CheckTransaction(ctx context.Context, clientID string, tx *domain.TransactionPayload) (flagged bool, err error)
}

// PushNotifier sends a push notification to the client's devices.
type PushNotifier interface {
	Notify(ctx context.Context, clientID, title, message string) error
}

// ProfileUpdater applies document-derived facts to a client's tax profile.
type ProfileUpdater interface {
	ApplyDocument(ctx context.Context, clientID string, doc *domain.DocumentPayload) error
}

// MarketCache stores the latest market quotes for portfolio valuation.
type MarketCache interface {
	UpdateQuotes(ctx context.Context, symbols []string) error
}
