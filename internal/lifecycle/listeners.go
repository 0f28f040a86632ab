package lifecycle

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/ashureev/frontdesk/internal/domain"
)

// Listener is a registered event callback. Its pointer identity is the
// handle passed to RemoveListener.
type Listener struct {
	fn func(domain.LifecycleEvent)
}

type listenerSet struct {
	mu        sync.RWMutex
	listeners []*Listener
	logger    *slog.Logger
}

func (s *listenerSet) add(fn func(domain.LifecycleEvent)) *Listener {
	l := &Listener{fn: fn}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
	return l
}

func (s *listenerSet) remove(l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = slices.DeleteFunc(s.listeners, func(x *Listener) bool { return x == l })
}

func (s *listenerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// notify calls every listener in registration order on the caller's goroutine.
// It iterates a snapshot, so listeners may add or remove listeners (including
// themselves) from inside the callback.
func (s *listenerSet) notify(e domain.LifecycleEvent) {
	s.mu.RLock()
	snapshot := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, l := range snapshot {
		s.call(l, e)
	}
}

func (s *listenerSet) call(l *Listener, e domain.LifecycleEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Lifecycle listener panicked",
				"request_id", e.RequestID,
				"kind", e.Kind,
				"panic", r)
		}
	}()
	l.fn(e)
}
