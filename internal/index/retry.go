package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docbase-dev/docbase/internal/kb"
)

const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

// withRetry runs fn, retrying transient SQLite contention with exponential
// backoff. Exhausted retries surface as kb.ErrIndexUnavailable so callers
// can treat the index as a failed service rather than a failed request.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	backoff := retryBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("%w: %v", kb.ErrIndexUnavailable, err)
}

// isTransient reports whether err looks like SQLite lock contention.
func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy")
}
