package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/francis/platform/internal/domain"
)

// DocumentHandler folds a classified document into the client's tax profile
// and schedules a recalculation.
type DocumentHandler struct {
	profile ProfileUpdater
	recalc  RecalcTrigger
	logger  *slog.Logger
}

func NewDocumentHandler(profile ProfileUpdater, recalc RecalcTrigger, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{profile: profile, recalc: recalc, logger: logger}
}

func (h *DocumentHandler) Handle(ctx context.Context, clientID string, p domain.Payload) error {
	doc, ok := p.(*domain.DocumentPayload)
	if !ok {
		return fmt.Errorf("document handler: unexpected payload %T", p)
	}
	if err := h.profile.ApplyDocument(ctx, clientID, doc); err != nil {
		return fmt.Errorf("apply document: %w", err)
	}
	if err := h.recalc.TriggerRecalculation(ctx, clientID, "document "+doc.Classification); err != nil {
		return fmt.Errorf("trigger recalculation: %w", err)
	}
	h.logger.Debug("document handled", "client_id", clientID, "document_id", doc.DocumentID, "classification", doc.Classification)
	return nil
}

// ComplianceHandler notifies the client of compliance updates. Sanction
// alerts interrupt immediately; regulation changes also schedule a
// recalculation since thresholds may have moved.
type ComplianceHandler struct {
	notifier PushNotifier
	recalc   RecalcTrigger
	logger   *slog.Logger
}

func NewComplianceHandler(notifier PushNotifier, recalc RecalcTrigger, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{notifier: notifier, recalc: recalc, logger: logger}
}

func (h *ComplianceHandler) Handle(ctx context.Context, clientID string, p domain.Payload) error {
	c, ok := p.(*domain.CompliancePayload)
	if !ok {
		return fmt.Errorf("compliance handler: unexpected payload %T", p)
	}

	title := "Compliance update"
	if c.Subtype == domain.ComplianceSanctionAlert {
		title = "Sanction alert"
	}
	if err := h.notifier.Notify(ctx, clientID, title, c.Details); err != nil {
		return fmt.Errorf("notify compliance update: %w", err)
	}
	if c.Subtype == domain.ComplianceRegulationChange {
		if err := h.recalc.TriggerRecalculation(ctx, clientID, "regulation change"); err != nil {
			return fmt.Errorf("trigger recalculation: %w", err)
		}
	}
	return nil
}

// MarketDataHandler updates the quote cache used for portfolio valuation.
type MarketDataHandler struct {
	cache  MarketCache
	logger *slog.Logger
}

func NewMarketDataHandler(cache MarketCache, logger *slog.Logger) *MarketDataHandler {
	return &MarketDataHandler{cache: cache, logger: logger}
}

func (h *MarketDataHandler) Handle(ctx context.Context, clientID string, p domain.Payload) error {
	md, ok := p.(*domain.MarketDataPayload)
	if !ok {
		return fmt.Errorf("market data handler: unexpected payload %T", p)
	}
	if err := h.cache.UpdateQuotes(ctx, md.Symbols); err != nil {
		return fmt.Errorf("update quotes: %w", err)
	}
	return nil
}

// DefaultRegistry wires one handler per event type from the given
// collaborators.
func DefaultRegistry(
	cache CacheRefresher,
	recalc RecalcTrigger,
	checker AnomalyChecker,
	notifier PushNotifier,
	profile ProfileUpdater,
	market MarketCache,
	logger *slog.Logger,
) *Registry {
	r := NewRegistry()
	r.Register(domain.EventAccountSync, NewAccountSyncHandler(cache, recalc, logger))
	r.Register(domain.EventTransactionNew, NewTransactionHandler(checker, notifier, recalc, logger))
	r.Register(domain.EventBalanceChange, NewBalanceChangeHandler(cache, logger))
	r.Register(domain.EventDocumentProcessed, NewDocumentHandler(profile, recalc, logger))
	r.Register(domain.EventComplianceUpdate, NewComplianceHandler(notifier, recalc, logger))
	r.Register(domain.EventMarketDataUpdate, NewMarketDataHandler(market, logger))
	return r
}
