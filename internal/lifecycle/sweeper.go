package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// Start re-arms timers for requests that are already pending (their timers
// died with the previous process) and schedules the periodic sweep. The
// sweep stops when ctx is done or Stop is called.
//
// A Manager starts at most once. Start returns ErrAlreadyStarted on a second
// call and ErrStopped after Stop; a stopped Manager cannot be reused.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.stopped:
		m.mu.Unlock()
		return ErrStopped
	case m.started:
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	rearmed, err := m.Rearm(ctx)
	if err != nil {
		return err
	}

	logger := cronLogger{logger: m.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(cron.Every(m.sweepInterval), cron.FuncJob(func() {
		if _, err := m.Sweep(ctx); err != nil {
			m.logger.Error("Timeout sweep failed", "error", err)
		}
	}))

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	m.cron = c
	c.Start()
	m.mu.Unlock()

	m.logger.Info("Lifecycle sweep started",
		"interval", m.sweepInterval,
		"sla_window", m.window,
		"rearmed", rearmed)

	go func() {
		<-ctx.Done()
		m.logger.Info("Lifecycle sweep shutting down", "reason", ctx.Err())
		m.Stop()
	}()
	return nil
}

// Stop halts the sweep and disarms every timer. Pending requests stay
// pending in the store, and a new Manager's Start picks them up again.
// Requests created after Stop get no timer.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		c := m.cron
		m.mu.Unlock()

		if c != nil {
			<-c.Stop().Done()
		}
		m.timers.close()
	})
}

// Rearm arms a timer for every pending request, for its remaining time.
// Requests already past their deadline fire immediately.
func (m *Manager) Rearm(ctx context.Context) (int, error) {
	pending, err := m.store.ListPending(ctx)
	if err != nil {
		return 0, storeFailure("list pending", err)
	}
	for _, req := range pending {
		m.arm(req)
	}
	return len(pending), nil
}

// Sweep times out every pending request whose deadline has passed. It is
// the backstop for lost timers and returns how many overdue requests it
// processed without error.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	expired, err := m.store.ListExpired(ctx, m.now())
	if err != nil {
		return 0, storeFailure("list expired", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	m.logger.Info("Timeout sweep found overdue requests", "count", len(expired))

	var errs []error
	swept := 0
	for _, req := range expired {
		if err := m.Timeout(ctx, req.ID); err != nil {
			errs = append(errs, fmt.Errorf("timeout %s: %w", req.ID, err))
			continue
		}
		swept++
	}

	m.logger.Info("Timeout sweep completed", "swept", swept, "failed", len(errs))
	return swept, errors.Join(errs...)
}
