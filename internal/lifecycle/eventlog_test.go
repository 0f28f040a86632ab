package lifecycle

import (
	"fmt"
	"testing"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(requestID string, i int) domain.LifecycleEvent {
	return domain.LifecycleEvent{
		ID:        fmt.Sprintf("e%d", i),
		RequestID: requestID,
		Kind:      domain.EventCreated,
	}
}

func eventIDs(events []domain.LifecycleEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestEventLogBasic(t *testing.T) {
	log := NewEventLog(4)
	assert.Equal(t, 0, log.Len())
	assert.Empty(t, log.All())

	log.Append(event("a", 1))
	log.Append(event("b", 2))
	log.Append(event("a", 3))

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, []string{"e1", "e2", "e3"}, eventIDs(log.All()))
	assert.Equal(t, []string{"e1", "e3"}, eventIDs(log.ForRequest("a")))
	assert.Empty(t, log.ForRequest("missing"))
}

func TestEventLogWraps(t *testing.T) {
	log := NewEventLog(3)
	for i := 1; i <= 7; i++ {
		log.Append(event("a", i))
	}

	require.Equal(t, 3, log.Len())
	assert.Equal(t, 3, log.Capacity())
	assert.Equal(t, []string{"e5", "e6", "e7"}, eventIDs(log.All()))
}

func TestEventLogExactlyFull(t *testing.T) {
	log := NewEventLog(2)
	log.Append(event("a", 1))
	log.Append(event("a", 2))
	assert.Equal(t, []string{"e1", "e2"}, eventIDs(log.All()))

	log.Append(event("a", 3))
	assert.Equal(t, []string{"e2", "e3"}, eventIDs(log.All()))
}

func TestEventLogDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultEventLogCapacity, NewEventLog(0).Capacity())
	assert.Equal(t, DefaultEventLogCapacity, NewEventLog(-5).Capacity())
}

func TestEventLogReturnsCopies(t *testing.T) {
	log := NewEventLog(2)
	log.Append(event("a", 1))

	got := log.All()
	got[0].Detail = "mutated"
	assert.Empty(t, log.All()[0].Detail)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "héllo...", truncate("héllo wörld", 5))
}

func TestComputeMetricsIgnoresPendingLatency(t *testing.T) {
	m := ComputeMetrics(nil)
	assert.Equal(t, RequestMetrics{}, m)

	m = ComputeMetrics([]*domain.HelpRequest{
		{Status: domain.StatusPending},
		{Status: domain.StatusTimeout},
	})
	assert.Equal(t, 2, m.TotalRequests)
	assert.Zero(t, m.AverageResolutionMinutes)
	assert.InDelta(t, 0.5, m.TimeoutRate, 1e-9)
	assert.Zero(t, m.ResolutionRate)
}
