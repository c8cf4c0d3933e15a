package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
)

// Sink delivers one resolved message to the destination. It resumes at
// out.Delivered and advances it after every accepted part.
type Sink interface {
	Send(ctx context.Context, out *domain.Outgoing) error
}

// Dispatcher sends batches one message at a time with a randomized pause
// between consecutive sends.
type Dispatcher struct {
	sink     Sink
	minDelay time.Duration
	maxDelay time.Duration
	retry    *retrier
	sleep    SleepFunc
	randN    func(n int64) int64
	logger   *slog.Logger

	sent bool
}

func NewDispatcher(sink Sink, minDelay, maxDelay time.Duration, retry *retrier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sink:     sink,
		minDelay: minDelay,
		maxDelay: maxDelay,
		retry:    retry,
		sleep:    retry.sleep,
		randN:    rand.Int64N,
		logger:   logger,
	}
}

// Dispatch delivers batch in order and returns how many messages were fully
// delivered. onDelivered runs after each one. Cancellation is honored only
// between messages: once a message is started, its retries and throttle
// waits run to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, batch *domain.Batch, onDelivered func(*domain.Outgoing)) (int, error) {
	start := time.Now()
	defer func() { telemetry.Observe(telemetry.BatchDuration, time.Since(start)) }()

	for i, out := range batch.Messages {
		if d.sent {
			if err := d.sleep(ctx, d.delay()); err != nil {
				return i, err
			}
		} else if err := ctx.Err(); err != nil {
			return i, err
		}
		d.sent = true

		if err := d.deliver(context.WithoutCancel(ctx), batch.Index, out); err != nil {
			return i, err
		}
		if onDelivered != nil {
			onDelivered(out)
		}
	}
	return batch.Len(), nil
}

func (d *Dispatcher) deliver(ctx context.Context, batchIndex int, out *domain.Outgoing) error {
	attrs := []any{slog.Int64("message_id", out.Message.ID), slog.Int("batch_index", batchIndex)}

	return d.retry.do(ctx, attrs, func(ctx context.Context) error {
		start := time.Now()
		err := d.sink.Send(ctx, out)
		telemetry.Observe(telemetry.SendDuration, time.Since(start))
		return err
	})
}

// delay picks a pause uniformly from [minDelay, maxDelay].
func (d *Dispatcher) delay() time.Duration {
	if d.maxDelay <= d.minDelay {
		return d.minDelay
	}
	return d.minDelay + time.Duration(d.randN(int64(d.maxDelay-d.minDelay)+1))
}
