package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/archive/domain"
	cursordomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	cursorservice "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/service"
	msgdomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	msgservice "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/service"
	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// Journal records delivered messages. Failures never stop a run.
type Journal interface {
	Record(source, destination string, out *msgdomain.Outgoing) error
}

// Options configures an Archiver.
type Options struct {
	Key             cursordomain.Key
	BatchSize       int
	PageSize        int
	MinDelay        time.Duration
	MaxDelay        time.Duration
	Retry           RetryPolicy
	ThrottlePadding time.Duration
	MaxUploadBytes  int64
	SpoolDir        string
	Renderer        msgservice.Renderer
	Sleep           SleepFunc
}

// Archiver runs the archive loop for one (source, destination) pair:
// walk history after the cursor, resolve attachments, batch, dispatch and
// commit the cursor after every fully delivered batch.
type Archiver struct {
	key        cursordomain.Key
	batchSize  int
	cursors    *cursorservice.Service
	walker     *Walker
	resolver   *Resolver
	dispatcher *Dispatcher
	journal    Journal
	logger     *slog.Logger

	runMu sync.Mutex

	mu    sync.RWMutex
	state domain.State
	last  *domain.Result
}

// New wires an Archiver from its collaborators. journal may be nil.
func New(opts Options, source Source, fetcher MediaFetcher, sink Sink, cursors *cursorservice.Service, journal Journal, logger *slog.Logger) *Archiver {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	newRetrier := func(stage string) *retrier {
		return &retrier{policy: opts.Retry, padding: opts.ThrottlePadding, sleep: sleep, logger: logger, stage: stage}
	}

	return &Archiver{
		key:        opts.Key,
		batchSize:  opts.BatchSize,
		cursors:    cursors,
		walker:     NewWalker(source, opts.PageSize, newRetrier("fetch"), logger),
		resolver:   NewResolver(fetcher, opts.Renderer, opts.SpoolDir, opts.MaxUploadBytes, newRetrier("resolve"), logger),
		dispatcher: NewDispatcher(sink, opts.MinDelay, opts.MaxDelay, newRetrier("send"), logger),
		journal:    journal,
		logger:     logger.With(slog.String("source", opts.Key.Source), slog.String("destination", opts.Key.Destination)),
		state:      domain.StateIdle,
	}
}

// State returns the current lifecycle state.
func (a *Archiver) State() domain.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// LastResult returns the result of the most recent finished run.
func (a *Archiver) LastResult() (domain.Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return domain.Result{}, false
	}
	return *a.last, true
}

// Key returns the (source, destination) pair this archiver serves.
func (a *Archiver) Key() cursordomain.Key { return a.key }

func (a *Archiver) setState(s domain.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// Run performs one bounded catch-up pass. Cancelling ctx interrupts the run
// between messages; the delivered prefix is committed and Run returns nil.
// Fatal errors leave the cursor at its last committed value and are returned.
func (a *Archiver) Run(ctx context.Context) (domain.Result, error) {
	if !a.runMu.TryLock() {
		return domain.Result{}, oops.With("cursor", a.key.String()).Errorf("archive run already in progress")
	}
	defer a.runMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "archive.run",
		attribute.String("source", a.key.Source),
		attribute.String("destination", a.key.Destination),
	)

	res := domain.Result{State: domain.StateRunning, StartedAt: time.Now().UTC()}
	a.setState(domain.StateRunning)

	err := a.run(ctx, &res)
	res.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Error = err.Error()
	}

	a.mu.Lock()
	a.state = res.State
	a.last = &res
	a.mu.Unlock()

	telemetry.IncLabel(telemetry.Runs, string(res.State))
	span.SetAttributes(
		attribute.String("state", string(res.State)),
		attribute.Int("delivered", res.Delivered),
		attribute.Int64("last_archived_id", res.LastArchivedID),
	)
	telemetry.EndSpan(span, err)

	a.logger.Info("run_finished",
		slog.String("state", string(res.State)),
		slog.Int("batches", res.Batches),
		slog.Int("delivered", res.Delivered),
		slog.Int("skipped", res.Skipped),
		slog.Int64("last_archived_id", res.LastArchivedID),
		slog.Int64("total_processed", res.TotalProcessed),
		slog.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, err
}

func (a *Archiver) run(ctx context.Context, res *domain.Result) error {
	cur, err := a.cursors.Load(ctx, a.key)
	if err != nil {
		return a.fail(res, err)
	}
	res.LastArchivedID = cur.LastArchivedID
	res.TotalProcessed = cur.TotalProcessed

	if cur.IsZero() {
		a.logger.Info("starting fresh")
	} else {
		a.logger.Info("resuming", slog.Int64("after_id", cur.LastArchivedID))
	}

	history := a.walker.Walk(cur.LastArchivedID)
	batcher := NewBatcher(&resolvedStream{history: history, resolver: a.resolver}, a.batchSize)

	for {
		if ctx.Err() != nil {
			res.State = domain.StateInterrupted
			return nil
		}

		batch, err := batcher.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.State = domain.StateInterrupted
				return nil
			}
			return a.fail(res, err)
		}
		if batch == nil {
			res.State = domain.StateCompleted
			return nil
		}

		delivered, derr := a.dispatch(ctx, batch, res)
		batch.Release()
		interrupted := derr != nil && ctx.Err() != nil && apperrors.Is(derr, ctx.Err())

		if delivered > 0 {
			// A fatal error stops the run before anything else is committed.
			if derr == nil || interrupted {
				if err := a.commit(ctx, res, batch.Messages[delivered-1].Message.ID, delivered); err != nil {
					return a.fail(res, err)
				}
			}
		}

		switch {
		case derr == nil:
			res.Batches++
			telemetry.Inc(telemetry.BatchesCommitted)
		case interrupted:
			res.State = domain.StateInterrupted
			return nil
		default:
			return a.fail(res, derr)
		}
	}
}

func (a *Archiver) dispatch(ctx context.Context, batch *msgdomain.Batch, res *domain.Result) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "archive.batch",
		attribute.Int("batch_index", batch.Index),
		attribute.Int64("first_id", batch.FirstID()),
		attribute.Int64("last_id", batch.LastID()),
	)

	a.logger.Info("batch_started",
		slog.Int("batch_index", batch.Index),
		slog.Int("size", batch.Len()),
		slog.Int64("first_id", batch.FirstID()),
		slog.Int64("last_id", batch.LastID()),
	)

	delivered, err := a.dispatcher.Dispatch(ctx, batch, func(out *msgdomain.Outgoing) {
		res.Delivered++
		res.Skipped += out.Skipped
		telemetry.Inc(telemetry.MessagesArchived)
		a.logger.Info("message_archived",
			slog.Int64("message_id", out.Message.ID),
			slog.Int("batch_index", batch.Index),
			slog.Int("parts", len(out.Parts)),
		)
		if a.journal != nil {
			_ = a.journal.Record(a.key.Source, a.key.Destination, out)
		}
	})

	span.SetAttributes(attribute.Int("delivered", delivered))
	if ctx.Err() != nil {
		telemetry.EndSpan(span, nil)
	} else {
		telemetry.EndSpan(span, err)
	}
	return delivered, err
}

// commit persists the cursor even when ctx is already cancelled.
func (a *Archiver) commit(ctx context.Context, res *domain.Result, lastID int64, delivered int) error {
	c, err := a.cursors.Commit(context.WithoutCancel(ctx), a.key, lastID, delivered)
	if err != nil {
		return err
	}
	res.LastArchivedID = c.LastArchivedID
	res.TotalProcessed = c.TotalProcessed
	return nil
}

func (a *Archiver) fail(res *domain.Result, err error) error {
	res.State = domain.StateFatal
	a.logger.Error("fatal",
		slog.Int64("last_archived_id", res.LastArchivedID),
		slog.String("reason", err.Error()),
	)
	return err
}
