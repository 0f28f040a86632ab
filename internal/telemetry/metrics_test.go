package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/ashureev/frontdesk/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsFollowLifecycle(t *testing.T) {
	ctx := context.Background()
	mgr := lifecycle.New(store.NewMemory())
	t.Cleanup(mgr.Stop)

	reg := prometheus.NewRegistry()
	m, err := New(mgr, reg, nil)
	require.NoError(t, err)
	mgr.AddListener(m.Observe)

	a, err := mgr.CreateRequest(ctx, "call", "Do you sell gift cards?", "+1")
	require.NoError(t, err)
	b, err := mgr.CreateRequest(ctx, "call", "Is there parking?", "+1")
	require.NoError(t, err)
	_, err = mgr.CreateRequest(ctx, "call", "Can I bring my dog?", "+1")
	require.NoError(t, err)

	require.NoError(t, mgr.Resolve(ctx, a.ID, "Yes"))
	require.NoError(t, mgr.Timeout(ctx, b.ID))

	assert.InDelta(t, 3, testutil.ToFloat64(m.events.WithLabelValues("created")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.events.WithLabelValues("resolved")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.events.WithLabelValues("timeout")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.resolutionLatency))

	expected := `
# HELP frontdesk_help_requests Stored help requests by status.
# TYPE frontdesk_help_requests gauge
frontdesk_help_requests{status="pending"} 1
frontdesk_help_requests{status="resolved"} 1
frontdesk_help_requests{status="timeout"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "frontdesk_help_requests"))
}

func TestRegisterTwiceFails(t *testing.T) {
	mgr := lifecycle.New(store.NewMemory())
	t.Cleanup(mgr.Stop)

	reg := prometheus.NewRegistry()
	_, err := New(mgr, reg, nil)
	require.NoError(t, err)
	_, err = New(mgr, reg, nil)
	assert.Error(t, err)
}
