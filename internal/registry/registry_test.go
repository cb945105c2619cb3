package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() domain.SubscriptionSpec {
	return domain.SubscriptionSpec{
		ClientID:   "client-1",
		EventTypes: []domain.EventType{domain.EventTransactionNew, domain.EventComplianceUpdate},
		Endpoint:   "https://hooks.example.com/francis",
		Secret:     "s3cret",
	}
}

func TestSubscribe_RejectsInvalidSpec(t *testing.T) {
	r := New()

	cases := map[string]func(*domain.SubscriptionSpec){
		"missing client":    func(s *domain.SubscriptionSpec) { s.ClientID = "" },
		"no event types":    func(s *domain.SubscriptionSpec) { s.EventTypes = nil },
		"unknown type":      func(s *domain.SubscriptionSpec) { s.EventTypes = []domain.EventType{"NOPE"} },
		"relative endpoint": func(s *domain.SubscriptionSpec) { s.Endpoint = "/hooks" },
		"ftp endpoint":      func(s *domain.SubscriptionSpec) { s.Endpoint = "ftp://example.com/x" },
		"missing secret":    func(s *domain.SubscriptionSpec) { s.Secret = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := validSpec()
			mutate(&spec)
			_, err := r.Subscribe(spec)
			require.Error(t, err)
			appErr, ok := err.(*domain.AppError)
			require.True(t, ok)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestFor_FiltersByClientTypeAndActive(t *testing.T) {
	r := New()

	spec := validSpec()
	id, err := r.Subscribe(spec)
	require.NoError(t, err)

	other := validSpec()
	other.ClientID = "client-2"
	_, err = r.Subscribe(other)
	require.NoError(t, err)

	matches := r.For("client-1", domain.EventTransactionNew)
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].ID)
	assert.True(t, matches[0].Active)

	assert.Empty(t, r.For("client-1", domain.EventMarketDataUpdate))
	assert.Empty(t, r.For("client-3", domain.EventTransactionNew))
}

func TestUnsubscribe_RequiresOwner(t *testing.T) {
	r := New()

	id, err := r.Subscribe(validSpec())
	require.NoError(t, err)

	assert.False(t, r.Unsubscribe(id, "someone-else"))
	_, found := r.Get(id)
	assert.True(t, found)

	assert.True(t, r.Unsubscribe(id, "client-1"))
	_, found = r.Get(id)
	assert.False(t, found)

	assert.False(t, r.Unsubscribe(uuid.New(), "client-1"))
}

func TestRecordFailure_DeactivatesAtThreshold(t *testing.T) {
	r := New()

	id, err := r.Subscribe(validSpec())
	require.NoError(t, err)

	for i := 1; i < domain.FailureThreshold; i++ {
		assert.False(t, r.RecordFailure(id), "failure %d must not deactivate", i)
	}
	assert.True(t, r.RecordFailure(id), "failure %d trips deactivation", domain.FailureThreshold)

	sub, found := r.Get(id)
	require.True(t, found)
	assert.False(t, sub.Active)
	assert.Equal(t, domain.FailureThreshold, sub.FailureCount)

	// Deactivated subscriptions are invisible to delivery.
	assert.Empty(t, r.For("client-1", domain.EventTransactionNew))

	// Further failures do not re-report the deactivation.
	assert.False(t, r.RecordFailure(id))
}

func TestRecordSuccess_ResetsFailureCount(t *testing.T) {
	r := New()

	id, err := r.Subscribe(validSpec())
	require.NoError(t, err)

	for i := 0; i < domain.FailureThreshold-1; i++ {
		r.RecordFailure(id)
	}

	at := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	r.RecordSuccess(id, at)

	sub, found := r.Get(id)
	require.True(t, found)
	assert.Equal(t, 0, sub.FailureCount)
	require.NotNil(t, sub.LastDelivery)
	assert.Equal(t, at, *sub.LastDelivery)
	assert.True(t, sub.Active)
}

func TestByClient_IncludesInactive(t *testing.T) {
	r := New()

	id, err := r.Subscribe(validSpec())
	require.NoError(t, err)
	for i := 0; i < domain.FailureThreshold; i++ {
		r.RecordFailure(id)
	}

	subs := r.ByClient("client-1")
	require.Len(t, subs, 1)
	assert.False(t, subs[0].Active)
}

func TestRegistry_ConcurrentOutcomes(t *testing.T) {
	r := New()

	ids := make([]uuid.UUID, 8)
	for i := range ids {
		spec := validSpec()
		spec.ClientID = fmt.Sprintf("client-%d", i)
		id, err := r.Subscribe(spec)
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				r.RecordFailure(id)
				r.RecordSuccess(id, time.Now().UTC())
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		sub, found := r.Get(id)
		require.True(t, found)
		assert.True(t, sub.Active)
		assert.Equal(t, 0, sub.FailureCount)
	}
}
