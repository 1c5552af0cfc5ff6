package templatesync

import (
	"context"
	"errors"
	"time"

	"github.com/talentrail/talentrail-backend/internal/logger"
)

// SleepFunc waits for d or until ctx is done. Injected so tests can count
// backoffs without wall-clock time.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy wraps one full synchronization attempt in a bounded
// optimistic-concurrency retry loop. Only ErrConcurrencyConflict is retried;
// everything else aborts immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleep       SleepFunc
}

func NewRetryPolicy(maxAttempts int, backoff time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Backoff: backoff, Sleep: sleepCtx}
}

func (p RetryPolicy) Run(ctx context.Context, log *logger.Logger, op func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if log != nil {
			log.Warn("Concurrency conflict, retrying sync attempt", "attempt", attempt, "max_attempts", p.MaxAttempts)
		}
		if sleepErr := sleep(ctx, p.Backoff*time.Duration(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
