//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/knowledge"
	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/ashureev/frontdesk/internal/receptionist"
	"github.com/ashureev/frontdesk/internal/store"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("resolve x: %w: %w", lifecycle.ErrNotFound, lifecycle.ErrInvalidState), http.StatusNotFound},
		{fmt.Errorf("resolve x: %w", lifecycle.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("create: %w", lifecycle.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("get call: %w", receptionist.ErrCallNotFound), http.StatusNotFound},
		{fmt.Errorf("ask: %w", receptionist.ErrCallEnded), http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}

type testEnv struct {
	srv *httptest.Server
	mgr *lifecycle.Manager
	hub *EventHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	repo := store.NewMemory()
	entries, err := store.LoadSeed("")
	require.NoError(t, err)
	_, err = store.Seed(ctx, repo, entries)
	require.NoError(t, err)

	mgr := lifecycle.New(repo)
	t.Cleanup(mgr.Stop)

	matcher := knowledge.NewMatcher(repo, nil)
	calls := receptionist.NewService(matcher, mgr, "Bella's Beauty Salon", nil)
	calls.Attach(mgr)

	hub := NewEventHub(nil)
	mgr.AddListener(hub.Publish)

	r := chi.NewRouter()
	NewHandler(mgr, repo, matcher, calls, hub).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, mgr: mgr, hub: hub}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRequestEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var created domain.HelpRequest
	code := env.do(t, http.MethodPost, "/api/requests", map[string]string{
		"session_id":       "call-1",
		"question":         "Do you do bridal makeup?",
		"customer_contact": "+15550100",
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, domain.StatusPending, created.Status)

	var status statusResponse
	code = env.do(t, http.MethodGet, "/api/requests/"+created.ID, nil, &status)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, status.TimeRemainingSeconds)
	assert.InDelta(t, lifecycle.DefaultSLAWindow.Seconds(), *status.TimeRemainingSeconds, 5)
	assert.Len(t, status.Events, 2)

	var pending []domain.HelpRequest
	code = env.do(t, http.MethodGet, "/api/requests?status=pending", nil, &pending)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, pending, 1)

	code = env.do(t, http.MethodPost, "/api/requests/"+created.ID+"/resolve",
		map[string]string{"answer": "Yes, bridal makeup is $120"}, &status)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.StatusResolved, status.Request.Status)
	assert.Nil(t, status.TimeRemainingSeconds)

	code = env.do(t, http.MethodPost, "/api/requests/"+created.ID+"/resolve",
		map[string]string{"answer": "again"}, nil)
	assert.Equal(t, http.StatusConflict, code)

	code = env.do(t, http.MethodPost, "/api/requests/missing/resolve",
		map[string]string{"answer": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = env.do(t, http.MethodGet, "/api/requests/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = env.do(t, http.MethodGet, "/api/requests?status=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = env.do(t, http.MethodPost, "/api/requests", map[string]string{"question": " "}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTimeoutEndpointAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	var created domain.HelpRequest
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/requests",
		map[string]string{"session_id": "call-1", "question": "Is there a student discount?"}, &created))

	var status statusResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/requests/"+created.ID+"/timeout", nil, &status))
	assert.Equal(t, domain.StatusTimeout, status.Request.Status)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/requests/"+created.ID+"/resolve",
		map[string]string{"answer": "late"}, nil))

	var metrics lifecycle.RequestMetrics
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/metrics", nil, &metrics))
	assert.Equal(t, 1, metrics.TotalRequests)
	assert.InDelta(t, 1.0, metrics.TimeoutRate, 1e-9)

	var events []domain.LifecycleEvent
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/events?limit=1", nil, &events))
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTimeout, events[0].Kind)

	var stats store.Stats
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/stats", nil, &stats))
	assert.Equal(t, 1, stats.TimeoutRequests)
	assert.Equal(t, 5, stats.KnowledgeEntries)
}

func TestKnowledgeEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var entry domain.KnowledgeEntry
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/knowledge", map[string]string{
		"question": "Do you sell nail polish?",
		"answer":   "Yes, the full OPI range",
	}, &entry))
	assert.Equal(t, []string{"manicure"}, entry.Tags)

	var found []domain.KnowledgeEntry
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/knowledge/search?q=opi", nil, &found))
	require.Len(t, found, 1)

	var matched domain.KnowledgeEntry
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/knowledge/match",
		map[string]string{"question": "Do you sell nail polish?"}, &matched))
	assert.Equal(t, entry.ID, matched.ID)
	assert.Equal(t, 1, matched.UsageCount)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/knowledge/match",
		map[string]string{"question": "zzz qqq xxx"}, nil))

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/knowledge/"+entry.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/knowledge/"+entry.ID, nil, nil))

	var all []domain.KnowledgeEntry
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/knowledge", nil, &all))
	assert.Len(t, all, 5)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/knowledge/search", nil, nil))
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/knowledge",
		map[string]string{"question": "only"}, nil))
}

func TestCallEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var call domain.CallSession
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/calls",
		map[string]string{"contact": "+15550100"}, &call))
	require.Len(t, call.Transcript, 1)

	var reply receptionist.Reply
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/calls/"+call.ID+"/questions",
		map[string]string{"question": "What hours are you open?"}, &reply))
	assert.False(t, reply.Escalated)
	assert.Contains(t, reply.Answer, "Tuesday-Saturday")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/calls/"+call.ID+"/questions",
		map[string]string{"question": "Do you take walk-ins on holidays?"}, &reply))
	assert.True(t, reply.Escalated)
	require.NotNil(t, reply.Request)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/calls/"+call.ID+"/end", nil, &call))
	assert.Equal(t, domain.CallCompleted, call.Status)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/calls/"+call.ID+"/questions",
		map[string]string{"question": "Hello?"}, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/calls/nope", nil, nil))
}

func TestBadBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.srv.Client().Post(env.srv.URL+"/api/requests", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEventFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, env.srv.URL+"/ws/events", nil)
	require.NoError(t, err)
	defer ws.CloseNow()

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	req, err := env.mgr.CreateRequest(ctx, "call-1", "Do you do bridal makeup?", "+15550100")
	require.NoError(t, err)

	var kinds []domain.EventKind
	for i := 0; i < 2; i++ {
		_, data, err := ws.Read(ctx)
		require.NoError(t, err)
		var e domain.LifecycleEvent
		require.NoError(t, json.Unmarshal(data, &e))
		assert.Equal(t, req.ID, e.RequestID)
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []domain.EventKind{domain.EventCreated, domain.EventEscalated}, kinds)

	require.NoError(t, ws.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return env.hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestEventHubDropsWhenFull(t *testing.T) {
	hub := NewEventHub(nil)
	sub := hub.register("")
	other := hub.register("req-2")

	for i := 0; i < subscriberQueueSize+10; i++ {
		hub.Publish(domain.LifecycleEvent{RequestID: "req-1", Kind: domain.EventCreated})
	}

	assert.Len(t, sub.queue, subscriberQueueSize)
	assert.Equal(t, int64(10), sub.dropped.Load())
	assert.Empty(t, other.queue, "filtered subscriber sees nothing for other requests")

	hub.unregister(sub)
	hub.unregister(other)
	assert.Equal(t, 0, hub.Subscribers())
}
