package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/coder/websocket"
)

const (
	subscriberQueueSize = 64
	writeTimeout        = 5 * time.Second
)

type subscriber struct {
	requestID string // empty means every request
	queue     chan domain.LifecycleEvent
	dropped   atomic.Int64
}

// EventHub fans lifecycle events out to websocket subscribers. Publish never
// blocks: a subscriber whose queue is full misses the event.
type EventHub struct {
	mu             sync.RWMutex
	subs           map[*subscriber]struct{}
	originPatterns []string
}

// NewEventHub creates a hub accepting websocket origins matching originPatterns.
func NewEventHub(originPatterns []string) *EventHub {
	if len(originPatterns) == 0 {
		originPatterns = []string{"*"}
	}
	return &EventHub{
		subs:           make(map[*subscriber]struct{}),
		originPatterns: originPatterns,
	}
}

// Publish queues e for every interested subscriber. It is meant to be
// registered as a lifecycle listener.
func (h *EventHub) Publish(e domain.LifecycleEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if sub.requestID != "" && sub.requestID != e.RequestID {
			continue
		}
		select {
		case sub.queue <- e:
		default:
			if n := sub.dropped.Add(1); n == 1 || n%100 == 0 {
				slog.Warn("Event subscriber is slow, dropping events", "dropped", n)
			}
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *EventHub) register(requestID string) *subscriber {
	sub := &subscriber{
		requestID: requestID,
		queue:     make(chan domain.LifecycleEvent, subscriberQueueSize),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	slog.Info("Event subscriber registered", "request_id", requestID)
	return sub
}

func (h *EventHub) unregister(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	slog.Info("Event subscriber unregistered", "request_id", sub.requestID, "dropped", sub.dropped.Load())
}

// ServeHTTP upgrades to a websocket and streams lifecycle events as JSON
// text messages. ?request_id= limits the feed to one request.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	sub := h.register(r.URL.Query().Get("request_id"))
	defer h.unregister(sub)

	// The feed is one-way; CloseRead handles control frames and cancels
	// ctx once the client goes away.
	ctx := ws.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-sub.queue:
			if err := writeEvent(ctx, ws, e); err != nil {
				if websocket.CloseStatus(err) == -1 {
					slog.Debug("Failed to write event", "error", err)
				}
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, ws *websocket.Conn, e domain.LifecycleEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
