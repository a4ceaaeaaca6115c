package providers

import (
	"context"
	"log/slog"
	"time"
)

const (
	retryInitialDelay = 500 * time.Millisecond
	retryMaxDelay     = 30 * time.Second
	retryMaxAttempts  = 5
)

// Do runs fn with capped exponential backoff. Rate-limit and network failures
// are retried; every other kind surfaces immediately. The per-attempt delay
// doubles from 500ms up to 30s, honoring a larger provider-suggested
// Retry-After when one is present.
func Do(ctx context.Context, logger *slog.Logger, fn func(context.Context) error) error {
	delay := retryInitialDelay
	var err error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		kind := KindOf(err)
		if kind != KindRateLimited && kind != KindNetwork {
			return err
		}
		if attempt == retryMaxAttempts {
			return err
		}

		wait := delay
		if suggested := RetryAfterOf(err); suggested > wait {
			wait = suggested
		}
		if wait > retryMaxDelay {
			wait = retryMaxDelay
		}
		if logger != nil {
			logger.Warn("provider call retry",
				slog.String("kind", string(kind)),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return NewError("", KindNetwork, "request cancelled", ctx.Err())
		case <-timer.C:
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return err
}
