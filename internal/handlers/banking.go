package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/francis/platform/internal/domain"
)

// AccountSyncHandler refreshes cached account data after a provider sync and
// schedules a recalculation so advisory figures pick up the new data.
type AccountSyncHandler struct {
	cache  CacheRefresher
	recalc RecalcTrigger
	logger *slog.Logger
}

func NewAccountSyncHandler(cache CacheRefresher, recalc RecalcTrigger, logger *slog.Logger) *AccountSyncHandler {
	return &AccountSyncHandler{cache: cache, recalc: recalc, logger: logger}
}

func (h *AccountSyncHandler) Handle(ctx context.Context, clientID string, p domain.Payload) error {
	sp, ok := p.(*domain.AccountSyncPayload)
	if !ok {
		return fmt.Errorf("account sync handler: unexpected payload %T", p)
	}

	if err := h.cache.RefreshAccounts(ctx, clientID, sp.AccountIDs); err != nil {
		return fmt.Errorf("refresh accounts: %w", err)
	}
	if err := h.recalc.TriggerRecalculation(ctx, clientID, "account sync from "+sp.Provider); err != nil {
		return fmt.Errorf("trigger recalculation: %w", err)
	}

	h.logger.Debug("account sync handled", "client_id", clientID, "provider", sp.Provider, "accounts", len(sp.AccountIDs))
	return nil
}

// TransactionHandler screens new transactions for anomalies and notifies the
// client about flagged or large movements. A seen-set keyed by transaction ID
// makes redelivery of the same event a no-op.
type TransactionHandler struct {
	checker  AnomalyChecker
	notifier PushNotifier
	recalc   RecalcTrigger
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]bool
}

func NewTransactionHandler(checker AnomalyChecker, notifier PushNotifier, recalc RecalcTrigger, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		checker:  checker,
		notifier: notifier,
		recalc:   recalc,
		logger:   logger,
		seen:     make(map[string]bool),
	}
}

func (h *TransactionHandler) Handle(ctx context.Context, clientID string, p domain.Payload) error {
	tx, ok := p.(*domain.TransactionPayload)
	if !ok {
		return fmt.Errorf("transaction handler: unexpected payload %T", p)
	}

	key := clientID + ":" + tx.TransactionID
	h.mu.Lock()
	if h.seen[key] {
		h.mu.Unlock()
		h.logger.Debug("transaction already handled", "client_id", clientID, "transaction_id", tx.TransactionID)
		return nil
	}
	h.mu.Unlock()

	flagged, err := h.checker.CheckTransaction(ctx, clientID, tx)
	if err != nil {
		return fmt.Errorf("anomaly check: %w", err)
	}
	if flagged {
		if err := h.notifier.Notify(ctx, clientID, "Unusual transaction",
			fmt.Sprintf("Transaction %s of %d %s looks unusual", tx.TransactionID, tx.Amount, tx.Currency)); err != nil {
			return fmt.Errorf("notify flagged transaction: %w", err)
		}
	}
	if err := h.recalc.TriggerRecalculation(ctx, clientID, "new transaction"); err != nil {
		return fmt.Errorf("trigger recalculation: %w", err)
	}

	// Marked seen only after all side effects completed, so a failed run is
	// fully retried.
	h.mu.Lock()
	h.seen[key] = true
	h.mu.Unlock()
	return nil
}

// BalanceChangeHandler refreshes the cached balance for the affected account.
type BalanceChangeHandler struct {
	cache  CacheRefresher
	logger *slog.Logger
}

func NewBalanceChangeHandler(cache CacheRefresher, logger *slog.Logger) *BalanceChangeHandler {
	return &BalanceChangeHandler{cache: cache, logger: logger}
}

func (h *BalanceChangeHandler) Handle(ctx context.Context, clientID string, p domain.Payload) error {
	bc, ok := p.(*domain.BalanceChangePayload)
	if !ok {
		return fmt.Errorf("balance change handler: unexpected payload %T", p)
	}
	if err := h.cache.RefreshAccounts(ctx, clientID, []string{bc.AccountID}); err != nil {
		return fmt.Errorf("refresh account balance: %w", err)
	}
	return nil
}
