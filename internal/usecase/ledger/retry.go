package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/finverse/ledger-backend/internal/domain"
)

// RetryPolicy bounds how often a conflicting Apply is re-run
type RetryPolicy struct {
	Attempts int           // total attempts including the first, at least 1
	Backoff  time.Duration // linear: attempt n waits n*Backoff
}

// DefaultRetryPolicy is used by the transports
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 10 * time.Millisecond}

// ApplyWithRetry re-runs Apply on ConcurrentModification only, re-reading fresh
// state every time. Any other failure is returned immediately. After the last
// attempt the conflict is returned wrapped, so it still matches ErrConcurrentModification.
func (e *Engine) ApplyWithRetry(ctx context.Context, req Request, policy RetryPolicy) (*Result, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := e.Apply(ctx, req)
		if err == nil {
			return res, nil
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		e.Logger.Warn("ledger operation conflicted, retrying",
			"operation", req.Params.Operation(),
			"owner_id", req.OwnerID,
			"attempt", attempt,
			"error", err,
		)

		timer := time.NewTimer(policy.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
