package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	"github.com/samber/oops"
)

// Source pages through a chat's history in ascending id order.
type Source interface {
	// FetchPage returns up to limit messages with id > afterID, oldest first.
	FetchPage(ctx context.Context, afterID int64, limit int) (domain.Page, error)
}

// Walker turns a paging Source into an ordered, resumable message sequence.
type Walker struct {
	source   Source
	pageSize int
	retry    *retrier
	logger   *slog.Logger
}

func NewWalker(source Source, pageSize int, retry *retrier, logger *slog.Logger) *Walker {
	return &Walker{source: source, pageSize: pageSize, retry: retry, logger: logger}
}

// Walk returns the sequence of messages strictly after afterID.
func (w *Walker) Walk(afterID int64) *History {
	return &History{walker: w, last: afterID}
}

// History is a lazy iterator over source messages:
//
//	for h.Next(ctx) { m := h.Value() }
//	if err := h.Err(); err != nil { ... }
type History struct {
	walker    *Walker
	last      int64
	buf       []domain.Message
	exhausted bool
	cur       domain.Message
	err       error
}

// Next advances to the next message. It returns false when history is
// exhausted or a fetch failed; Err tells the two apart.
func (h *History) Next(ctx context.Context) bool {
	for len(h.buf) == 0 {
		if h.exhausted || h.err != nil {
			return false
		}
		h.fetch(ctx)
	}

	h.cur, h.buf = h.buf[0], h.buf[1:]
	h.last = h.cur.ID
	return true
}

func (h *History) Value() domain.Message { return h.cur }

func (h *History) Err() error { return h.err }

// Last is the id of the last message produced, the starting cursor, or the
// highest id skipped past since.
func (h *History) Last() int64 { return h.last }

func (h *History) fetch(ctx context.Context) {
	w := h.walker
	after := h.last

	var page domain.Page
	err := w.retry.do(ctx, []any{slog.Int64("after_id", after)}, func(ctx context.Context) error {
		var err error
		page, err = w.source.FetchPage(ctx, after, w.pageSize)
		return err
	})
	if err != nil {
		h.err = oops.With("after_id", after).Wrapf(err, "fetch history page")
		return
	}

	msgs := make([]domain.Message, 0, len(page.Messages))
	for _, m := range page.Messages {
		if m.ID > after {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	msgs = dedupe(msgs)

	switch {
	case !page.HasMore:
		h.exhausted = true
	case len(msgs) > 0:
	case page.NextAfter > after:
		// Nothing deliverable, but the source scanned past after.
		w.logger.Debug("history page skipped",
			slog.Int64("after_id", after),
			slog.Int64("next_after", page.NextAfter),
		)
		h.last = page.NextAfter
	default:
		w.logger.Warn("history page made no progress", slog.Int64("after_id", after))
		h.exhausted = true
	}
	h.buf = msgs
}

func dedupe(msgs []domain.Message) []domain.Message {
	if len(msgs) < 2 {
		return msgs
	}
	out := msgs[:1]
	for _, m := range msgs[1:] {
		if m.ID != out[len(out)-1].ID {
			out = append(out, m)
		}
	}
	return out
}
