package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/francis/platform/internal/policy"
	"github.com/francis/platform/internal/queue"
	"github.com/google/uuid"
)

// EnqueueOptions carries producer overrides for a generic enqueue.
type EnqueueOptions struct {
	// Priority overrides the policy-assigned priority when non-nil.
	Priority *domain.Priority
	// MaxRetries overrides the default retry ceiling when > 0.
	MaxRetries int
}

// EventService is the ingestion boundary: it validates producer input,
// assigns identity, timestamp, priority and retry ceiling, and enqueues.
type EventService struct {
	queue    *queue.Queue
	priority policy.PriorityPolicy
	trigger  func()
	logger   *slog.Logger
	now      func() time.Time
}

// NewEventService creates the ingestion service. trigger wakes the scheduler
// for HIGH-priority arrivals and may be nil.
func NewEventService(q *queue.Queue, pp policy.PriorityPolicy, trigger func(), logger *slog.Logger) *EventService {
	if trigger == nil {
		trigger = func() {}
	}
	return &EventService{
		queue:    q,
		priority: pp,
		trigger:  trigger,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the service clock. Test seam.
func (s *EventService) SetClock(now func() time.Time) { s.now = now }

// Enqueue validates and enqueues a domain event, returning its assigned ID.
// Malformed input is rejected here and never reaches the queue.
func (s *EventService) Enqueue(t domain.EventType, source, clientID string, p domain.Payload, opts EnqueueOptions) (uuid.UUID, error) {
	if err := domain.ValidateEnqueue(t, clientID, p); err != nil {
		return uuid.Nil, domain.ErrValidation(err.Error())
	}

	maxRetries := domain.DefaultMaxRetries
	if opts.MaxRetries > 0 {
		if err := domain.ValidateMaxRetries(opts.MaxRetries); err != nil {
			return uuid.Nil, domain.ErrValidation(err.Error())
		}
		maxRetries = opts.MaxRetries
	}

	prio := s.priority.Assign(t, p)
	if opts.Priority != nil {
		prio = *opts.Priority
	}

	if source == "" {
		source = "internal"
	}

	ev := &domain.DomainEvent{
		ID:         uuid.New(),
		Type:       t,
		Source:     source,
		ClientID:   clientID,
		Timestamp:  s.now(),
		Payload:    p,
		Priority:   prio,
		MaxRetries: maxRetries,
	}

	if err := s.queue.Enqueue(ev); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("event enqueued",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"client_id", ev.ClientID,
		"source", ev.Source,
		"priority", prio.String(),
	)

	if prio == domain.PriorityHigh {
		s.trigger()
	}
	return ev.ID, nil
}

// HandleBankingEvent enqueues an account sync, new transaction or balance
// change with the extended banking retry ceiling.
func (s *EventService) HandleBankingEvent(t domain.EventType, source, clientID string, p domain.Payload) (uuid.UUID, error) {
	switch t {
	case domain.EventAccountSync, domain.EventTransactionNew, domain.EventBalanceChange:
	default:
		return uuid.Nil, domain.ErrValidation(fmt.Sprintf("%s is not a banking event type", t))
	}
	return s.Enqueue(t, source, clientID, p, EnqueueOptions{MaxRetries: policy.MaxRetriesFor(t)})
}

// HandleComplianceEvent enqueues a compliance update. Sanction alerts get
// HIGH priority through the policy.
func (s *EventService) HandleComplianceEvent(source, clientID string, p *domain.CompliancePayload) (uuid.UUID, error) {
	return s.Enqueue(domain.EventComplianceUpdate, source, clientID, p, EnqueueOptions{})
}

// HandleDocumentEvent enqueues a completed document classification.
func (s *EventService) HandleDocumentEvent(source, clientID string, p *domain.DocumentPayload) (uuid.UUID, error) {
	return s.Enqueue(domain.EventDocumentProcessed, source, clientID, p, EnqueueOptions{})
}

// HandleMarketDataEvent enqueues a market data tick batch.
func (s *EventService) HandleMarketDataEvent(source, clientID string, p *domain.MarketDataPayload) (uuid.UUID, error) {
	return s.Enqueue(domain.EventMarketDataUpdate, source, clientID, p, EnqueueOptions{})
}

// Stats exposes queue counters for the admin surface.
func (s *EventService) Stats() queue.Stats {
	return s.queue.Stats()
}
