// Package queue holds pending domain events in priority order until the
// scheduler picks them up.
package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/francis/platform/internal/policy"
	"github.com/google/uuid"
)

// DefaultCapacity bounds the queue so sustained high ingest surfaces as
// backpressure instead of unguarded memory growth.
const DefaultCapacity = 10000

// Stats is the operational snapshot served by the admin API.
type Stats struct {
	TotalEvents           uint64        `json:"totalEvents"`
	PendingEvents         int           `json:"pendingEvents"`
	FailedEvents          uint64        `json:"failedEvents"`
	AverageProcessingTime time.Duration `json:"averageProcessingTime"`
}

// FailResult reports the transition applied by Fail.
type FailResult struct {
	Event      domain.DomainEvent
	Abandoned  bool
	RetryCount int
	NextRetry  time.Time
}

// Queue is the in-memory holding area for pending events. Events are kept
// totally ordered by (priority desc, timestamp asc, seq asc); the seq tie
// break keeps ordering deterministic under concurrent producers.
type Queue struct {
	mu       sync.Mutex
	events   []*domain.DomainEvent
	byID     map[uuid.UUID]*domain.DomainEvent
	capacity int
	seq      uint64

	total        uint64
	abandoned    uint64
	processed    uint64
	totalProcDur time.Duration
}

// New creates a queue bounded at capacity. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		byID:     make(map[uuid.UUID]*domain.DomainEvent),
		capacity: capacity,
	}
}

// Enqueue inserts an event, re-establishing the total order. Returns
// ErrQueueFull when the capacity bound is reached.
func (q *Queue) Enqueue(ev *domain.DomainEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) >= q.capacity {
		return domain.ErrQueueFull()
	}

	q.seq++
	ev.Seq = q.seq

	idx := sort.Search(len(q.events), func(i int) bool {
		return less(ev, q.events[i])
	})
	q.events = append(q.events, nil)
	copy(q.events[idx+1:], q.events[idx:])
	q.events[idx] = ev

	q.byID[ev.ID] = ev
	q.total++
	return nil
}

// less orders a before b: priority desc, timestamp asc, seq asc.
func less(a, b *domain.DomainEvent) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Seq < b.Seq
}

// SelectBatch returns up to limit events eligible at now, honoring the total
// order. Ineligible events (future nextRetry) are passed over.
func (q *Queue) SelectBatch(now time.Time, limit int) []*domain.DomainEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	var batch []*domain.DomainEvent
	for _, ev := range q.events {
		if len(batch) >= limit {
			break
		}
		if ev.EligibleAt(now) {
			batch = append(batch, ev)
		}
	}
	return batch
}

// MarkProcessed records a successful handler run: the event is flagged
// processed, removed exactly once, and its duration feeds the average.
func (q *Queue) MarkProcessed(id uuid.UUID, dur time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev, ok := q.byID[id]
	if !ok {
		return false
	}
	ev.Processed = true
	ev.NextRetry = nil
	q.removeLocked(id)
	q.processed++
	q.totalProcDur += dur
	return true
}

// Fail records a handler failure at now. The retry counter is incremented;
// the event is either rescheduled with a backoff delay or, once the ceiling
// is exceeded, abandoned and removed. Either way the event leaves the queue
// exactly once over its lifetime.
func (q *Queue) Fail(id uuid.UUID, now time.Time) (FailResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev, ok := q.byID[id]
	if !ok {
		return FailResult{}, false
	}

	ev.RetryCount++
	res := FailResult{RetryCount: ev.RetryCount}

	if ev.RetryCount > ev.MaxRetries {
		res.Abandoned = true
		res.Event = *ev
		q.removeLocked(id)
		q.abandoned++
		return res, true
	}

	next := policy.NextRetryAt(now, ev.RetryCount)
	ev.NextRetry = &next
	res.NextRetry = next
	res.Event = *ev
	return res, true
}

// Remove deletes an event by ID.
func (q *Queue) Remove(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id)
}

func (q *Queue) removeLocked(id uuid.UUID) bool {
	if _, ok := q.byID[id]; !ok {
		return false
	}
	delete(q.byID, id)
	for i, ev := range q.events {
		if ev.ID == id {
			q.events = append(q.events[:i], q.events[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of resident events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Snapshot returns a copy of the event with the given ID.
func (q *Queue) Snapshot(id uuid.UUID) (domain.DomainEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ev, ok := q.byID[id]
	if !ok {
		return domain.DomainEvent{}, false
	}
	return *ev, true
}

// Pending returns copies of all resident events in queue order.
func (q *Queue) Pending() []domain.DomainEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.DomainEvent, len(q.events))
	for i, ev := range q.events {
		out[i] = *ev
	}
	return out
}

// Stats returns the operational counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var avg time.Duration
	if q.processed > 0 {
		avg = q.totalProcDur / time.Duration(q.processed)
	}
	return Stats{
		TotalEvents:           q.total,
		PendingEvents:         len(q.events),
		FailedEvents:          q.abandoned,
		AverageProcessingTime: avg,
	}
}
