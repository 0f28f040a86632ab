package lifecycle

import (
	"sync"
	"time"
)

type timerHandle struct {
	t *time.Timer
}

// timerTable owns one timeout timer per pending request.
type timerTable struct {
	mu     sync.Mutex
	timers map[string]*timerHandle
	closed bool
}

func newTimerTable() *timerTable {
	return &timerTable{timers: make(map[string]*timerHandle)}
}

// arm schedules fire after d, replacing any timer already armed for id.
// The entry is removed from the table before fire runs. It reports false
// once the table is closed.
func (tt *timerTable) arm(id string, d time.Duration, fire func(id string)) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.closed {
		return false
	}
	if old, ok := tt.timers[id]; ok {
		old.t.Stop()
	}

	h := &timerHandle{}
	h.t = time.AfterFunc(d, func() {
		tt.release(id, h)
		fire(id)
	})
	tt.timers[id] = h
	return true
}

func (tt *timerTable) release(id string, h *timerHandle) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if tt.timers[id] == h {
		delete(tt.timers, id)
	}
}

// disarm stops and forgets the timer for id. Disarming a timer that already
// fired, or was never armed, is a no-op. A callback already running is not
// interrupted; it goes through the same status check as every other path.
func (tt *timerTable) disarm(id string) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	h, ok := tt.timers[id]
	if !ok {
		return false
	}
	delete(tt.timers, id)
	return h.t.Stop()
}

func (tt *timerTable) armed(id string) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	_, ok := tt.timers[id]
	return ok
}

func (tt *timerTable) len() int {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return len(tt.timers)
}

// close stops every timer and refuses further arming.
func (tt *timerTable) close() {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	for id, h := range tt.timers {
		h.t.Stop()
		delete(tt.timers, id)
	}
	tt.closed = true
}
