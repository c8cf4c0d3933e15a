package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc. It returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
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

// RetryPolicy bounds retries of transient failures. Throttle waits are not
// counted against MaxAttempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// retrier drives one operation through the error taxonomy: throttles wait
// and retry, retryable errors back off until attempts run out, anything
// fatal or canceled returns at once.
type retrier struct {
	policy  RetryPolicy
	padding time.Duration
	sleep   SleepFunc
	logger  *slog.Logger
	stage   string
}

func (r *retrier) do(ctx context.Context, attrs []any, op func(ctx context.Context) error) error {
	b := r.policy.backOff()
	failures := 0

	for call := 1; ; call++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		logAttrs := append([]any{
			slog.String("stage", r.stage),
			slog.Int("attempt", call),
			slog.String("reason", err.Error()),
		}, attrs...)

		switch apperrors.Classify(err) {
		case apperrors.ClassThrottled:
			th, _ := apperrors.AsThrottle(err)
			wait := th.RetryAfter + r.padding
			r.logger.Warn("throttled", append(logAttrs, slog.Duration("delay", wait))...)
			telemetry.Inc(telemetry.ThrottleWaits)

			telemetry.SetThrottled(true)
			serr := r.sleep(ctx, wait)
			telemetry.SetThrottled(false)
			if serr != nil {
				return serr
			}

		case apperrors.ClassFatal:
			r.logger.Error("fatal", logAttrs...)
			return err

		case apperrors.ClassCanceled:
			return err

		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures >= r.policy.MaxAttempts {
				r.logger.Error("retry_exhausted", logAttrs...)
				return apperrors.Mark(err, apperrors.ErrRetryExhausted)
			}

			delay := b.NextBackOff()
			if r.policy.MaxDelay > 0 && delay > r.policy.MaxDelay {
				delay = r.policy.MaxDelay
			}
			r.logger.Warn("retry", append(logAttrs, slog.Duration("delay", delay))...)
			telemetry.IncLabel(telemetry.Retries, r.stage)

			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
}
