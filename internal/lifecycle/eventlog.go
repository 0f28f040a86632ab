package lifecycle

import (
	"sync"

	"github.com/ashureev/frontdesk/internal/domain"
)

// DefaultEventLogCapacity is the number of events kept across all requests.
const DefaultEventLogCapacity = 1000

// EventLog is a fixed-size ring of lifecycle events.
// When full, appending overwrites the oldest event.
type EventLog struct {
	buf  []domain.LifecycleEvent
	size int
	head int // write position
	tail int // oldest event
	full bool
	mu   sync.RWMutex
}

// NewEventLog creates an event log holding at most size events.
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = DefaultEventLogCapacity
	}
	return &EventLog{
		buf:  make([]domain.LifecycleEvent, size),
		size: size,
	}
}

// Append adds an event, evicting the oldest one if the log is full.
func (l *EventLog) Append(e domain.LifecycleEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full {
		l.tail = (l.tail + 1) % l.size
	}
	l.buf[l.head] = e
	l.head = (l.head + 1) % l.size
	if l.head == l.tail {
		l.full = true
	}
}

// lenLocked must be called with mu held.
func (l *EventLog) lenLocked() int {
	switch {
	case l.full:
		return l.size
	case l.head >= l.tail:
		return l.head - l.tail
	default:
		return l.size - l.tail + l.head
	}
}

func (l *EventLog) collect(keep func(*domain.LifecycleEvent) bool) []domain.LifecycleEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.lenLocked()
	out := make([]domain.LifecycleEvent, 0, n)
	for i := 0; i < n; i++ {
		e := &l.buf[(l.tail+i)%l.size]
		if keep == nil || keep(e) {
			out = append(out, *e)
		}
	}
	return out
}

// All returns the retained events, oldest first.
func (l *EventLog) All() []domain.LifecycleEvent {
	return l.collect(nil)
}

// ForRequest returns the retained events of one request, oldest first.
func (l *EventLog) ForRequest(requestID string) []domain.LifecycleEvent {
	return l.collect(func(e *domain.LifecycleEvent) bool {
		return e.RequestID == requestID
	})
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lenLocked()
}

// Capacity returns the maximum number of retained events.
func (l *EventLog) Capacity() int {
	return l.size
}
