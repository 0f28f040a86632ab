// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// sqliteConflictMarkers are the error texts SQLite uses when another
// connection holds the write lock.
var sqliteConflictMarkers = []string{
	"SQLITE_BUSY",
	"database is locked",
	"database table is locked",
}

// IsSQLiteConflictError reports whether err is a SQLite lock contention error.
// These are transient and warrant a retry.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range sqliteConflictMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

const (
	sqliteRetryInitial  = 50 * time.Millisecond
	sqliteRetryAttempts = 3
)

// RetrySQLite runs op, retrying with exponential backoff while it fails with
// a lock contention error. Any other error is returned immediately.
func RetrySQLite(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = sqliteRetryInitial
	b.Multiplier = 2

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !IsSQLiteConflictError(err) {
			return backoff.Permanent(err)
		}
		slog.Debug("SQLite busy, retrying", "op", name, "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, sqliteRetryAttempts-1), ctx))
}
