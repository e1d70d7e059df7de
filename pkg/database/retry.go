package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/uniportal/ecms-api/pkg/config"
)

// RetryPolicy bounds how read queries recover from transient connection loss.
// Write paths must not use it: a retried write after an ambiguous commit could
// apply twice.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// PolicyFromConfig derives the retry policy from database configuration.
func PolicyFromConfig(cfg config.DatabaseConfig) RetryPolicy {
	return RetryPolicy{MaxAttempts: cfg.RetryMax, Backoff: cfg.RetryBackoff}
}

// Do runs op, retrying transient failures up to MaxAttempts with linear
// backoff. Non-transient errors and context cancellation stop immediately.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff * time.Duration(attempt)):
		}
	}
	return err
}

// IsTransient reports whether the error looks like recoverable connection
// trouble rather than a query or data problem.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception. Class 57: operator intervention
		// (shutdown, crash recovery).
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}

	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe")
}
