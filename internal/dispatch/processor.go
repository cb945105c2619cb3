// Package dispatch drives the event pipeline: a single scheduling loop pulls
// eligible batches from the queue, runs the per-type handlers concurrently
// with isolated failure handling, and fans successes out to subscribers.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/francis/platform/internal/alert"
	"github.com/francis/platform/internal/domain"
	"github.com/francis/platform/internal/handlers"
	"github.com/francis/platform/internal/queue"
	"github.com/francis/platform/internal/registry"
)

// Deliverer sends a processed event to one subscription endpoint.
type Deliverer interface {
	Deliver(ctx context.Context, sub domain.Subscription, ev *domain.DomainEvent) error
}

// Config tunes the scheduling loop.
type Config struct {
	TickInterval   time.Duration // default 2s
	MaxConcurrent  int           // default 5
	HandlerTimeout time.Duration // default 30s
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 2 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	return c
}

// Processor is the scheduler. At most one batch is in flight at any time
// (inFlight mutual exclusion); within a batch, events process concurrently.
type Processor struct {
	queue    *queue.Queue
	registry *registry.Registry
	handlers *handlers.Registry
	deliver  Deliverer
	alerts   *alert.Hub
	mirror   EventPublisher
	audit    AuditSink
	logger   *slog.Logger
	now      func() time.Time
	cfg      Config

	inFlight atomic.Bool
	trigger  chan struct{}
	stopped  chan struct{}
}

// New creates a processor. mirror and audit may be nil; no-ops are wired in
// their place.
func New(
	q *queue.Queue,
	reg *registry.Registry,
	hr *handlers.Registry,
	del Deliverer,
	alerts *alert.Hub,
	mirror EventPublisher,
	audit AuditSink,
	cfg Config,
	logger *slog.Logger,
) *Processor {
	if mirror == nil {
		mirror = NopPublisher{}
	}
	if audit == nil {
		audit = NopAudit{}
	}
	return &Processor{
		queue:    q,
		registry: reg,
		handlers: hr,
		deliver:  del,
		alerts:   alerts,
		mirror:   mirror,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		cfg:      cfg.withDefaults(),
		trigger:  make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}
}

// SetClock replaces the processor's clock. Test seam.
func (p *Processor) SetClock(now func() time.Time) { p.now = now }

// Trigger wakes the loop immediately instead of waiting for the next tick.
// Called on HIGH-priority enqueues; a no-op while a batch is in flight.
func (p *Processor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Start runs the scheduling loop until ctx is cancelled. The in-flight batch
// drains before the loop exits; Wait blocks until then.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("event processor started",
		"tick_interval", p.cfg.TickInterval,
		"max_concurrent", p.cfg.MaxConcurrent,
		"handler_timeout", p.cfg.HandlerTimeout,
	)

	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(p.cfg.TickInterval)
		defer ticker.Stop()

		// Batches run on an uncancelled context so a shutdown signal
		// drains in-flight work instead of aborting it.
		batchCtx := context.WithoutCancel(ctx)

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("event processor stopped")
				return
			case <-ticker.C:
				p.RunBatch(batchCtx)
			case <-p.trigger:
				p.RunBatch(batchCtx)
			}
		}
	}()
}

// Wait blocks until the loop has exited and the last batch has drained.
func (p *Processor) Wait() { <-p.stopped }

// RunBatch selects up to MaxConcurrent eligible events and processes them
// concurrently. Returns the batch size, or 0 when a batch is already in
// flight or nothing is eligible.
func (p *Processor) RunBatch(ctx context.Context) int {
	if !p.inFlight.CompareAndSwap(false, true) {
		return 0
	}
	defer p.inFlight.Store(false)

	batch := p.queue.SelectBatch(p.now(), p.cfg.MaxConcurrent)
	if len(batch) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	for _, ev := range batch {
		wg.Add(1)
		go func(ev *domain.DomainEvent) {
			defer wg.Done()
			p.processOne(ctx, ev)
		}(ev)
	}
	wg.Wait()
	return len(batch)
}

// processOne runs the handler for one event and applies the outcome. Failures
// here never propagate to sibling events or the loop.
func (p *Processor) processOne(ctx context.Context, ev *domain.DomainEvent) {
	start := p.now()
	err := p.invokeHandler(ctx, ev)
	if err == nil {
		p.queue.MarkProcessed(ev.ID, p.now().Sub(start))
		p.logger.Info("event processed",
			"event_id", ev.ID,
			"event_type", ev.Type,
			"client_id", ev.ClientID,
			"priority", ev.Priority.String(),
		)
		p.notifySubscribers(ctx, ev)
		if merr := p.mirror.PublishProcessed(ctx, ev); merr != nil {
			p.logger.Error("event mirror publish failed", "event_id", ev.ID, "error", merr)
		}
		return
	}

	res, ok := p.queue.Fail(ev.ID, p.now())
	if !ok {
		return
	}

	if res.Abandoned {
		p.logger.Error("event abandoned",
			"event_id", ev.ID,
			"event_type", ev.Type,
			"client_id", ev.ClientID,
			"attempts", res.RetryCount,
			"error", err,
		)
		if aerr := p.audit.RecordAbandoned(ctx, res.Event, err.Error()); aerr != nil {
			p.logger.Error("audit abandoned record failed", "event_id", ev.ID, "error", aerr)
		}
		if ev.Priority == domain.PriorityHigh {
			p.alerts.Publish(alert.Alert{
				Severity:  alert.SeverityCritical,
				Message:   fmt.Sprintf("high-priority event abandoned after %d attempts: %v", res.RetryCount, err),
				EventID:   ev.ID.String(),
				EventType: string(ev.Type),
				ClientID:  ev.ClientID,
			})
		}
		return
	}

	p.logger.Warn("event rescheduled",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"retry_count", res.RetryCount,
		"next_retry", res.NextRetry,
		"error", err,
	)
}

// invokeHandler runs the type handler under the per-event timeout with panic
// isolation. A stalled handler forfeits its slot at the timeout; the orphaned
// goroutine is left to finish on its own.
func (p *Processor) invokeHandler(ctx context.Context, ev *domain.DomainEvent) error {
	h, err := p.handlers.Lookup(ev.Type)
	if err != nil {
		return err
	}

	hctx, cancel := context.WithTimeout(ctx, p.cfg.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panicked: %v", r)
			}
		}()
		done <- h.Handle(hctx, ev.ClientID, ev.Payload)
	}()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		return fmt.Errorf("handler for %s timed out after %s", ev.Type, p.cfg.HandlerTimeout)
	}
}

// notifySubscribers delivers the processed event to every matching active
// subscription exactly once. Delivery failures are isolated per subscription
// and never roll back the event's processed state.
func (p *Processor) notifySubscribers(ctx context.Context, ev *domain.DomainEvent) {
	subs := p.registry.For(ev.ClientID, ev.Type)
	for _, sub := range subs {
		err := p.deliver.Deliver(ctx, sub, ev)
		if err == nil {
			p.registry.RecordSuccess(sub.ID, p.now())
			if aerr := p.audit.RecordDelivery(ctx, sub.ID, ev.ID, true, ""); aerr != nil {
				p.logger.Error("audit delivery record failed", "subscription_id", sub.ID, "error", aerr)
			}
			continue
		}

		deactivated := p.registry.RecordFailure(sub.ID)
		p.logger.Warn("webhook delivery failed",
			"subscription_id", sub.ID,
			"event_id", ev.ID,
			"endpoint", sub.Endpoint,
			"error", err,
		)
		if aerr := p.audit.RecordDelivery(ctx, sub.ID, ev.ID, false, err.Error()); aerr != nil {
			p.logger.Error("audit delivery record failed", "subscription_id", sub.ID, "error", aerr)
		}
		if deactivated {
			p.alerts.Publish(alert.Alert{
				Severity: alert.SeverityInfo,
				Message:  fmt.Sprintf("subscription %s deactivated after %d consecutive delivery failures", sub.ID, domain.FailureThreshold),
				EventID:  ev.ID.String(),
				ClientID: sub.ClientID,
			})
		}
	}
}
