package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	cursordomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/repository"
	cursorservice "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/service"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

var testKey = cursordomain.Key{Source: "@history", Destination: "-100"}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// fakeClock stands in for wall time: sleeping advances it instantly.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += d
	}
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func messages(from, to int64) []domain.Message {
	out := make([]domain.Message, 0, to-from+1)
	for id := from; id <= to; id++ {
		out = append(out, domain.Message{
			ID:     id,
			Date:   time.Date(2025, 1, 1, 0, 0, int(id), 0, time.UTC),
			Sender: "alice",
			Blocks: []domain.TextBlock{{Kind: domain.EntityKindPlain, Text: "message"}},
		})
	}
	return out
}

// fakeSource serves an append-only history. errs are returned by the first
// calls, one per call, before real pages are served. Ids up to hidden are
// service messages: they are scanned 500 at a time and never returned.
type fakeSource struct {
	mu     sync.Mutex
	msgs   []domain.Message
	errs   []error
	hidden int64
	calls  int
}

func (s *fakeSource) FetchPage(_ context.Context, afterID int64, limit int) (domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return domain.Page{}, err
		}
	}

	if afterID < s.hidden {
		return domain.Page{HasMore: true, NextAfter: min(afterID+500, s.hidden)}, nil
	}

	page := domain.Page{NextAfter: afterID}
	for _, m := range s.msgs {
		if m.ID <= afterID {
			continue
		}
		if len(page.Messages) == limit {
			page.HasMore = true
			break
		}
		page.Messages = append(page.Messages, m)
		page.NextAfter = m.ID
	}
	return page, nil
}

// fakeSink records accepted messages. hook, if set, decides the outcome of
// each call before anything is recorded.
type fakeSink struct {
	mu       sync.Mutex
	clock    *fakeClock
	hook     func(call int, out *domain.Outgoing) error
	calls    int
	callIDs  []int64
	callAt   []time.Duration
	accepted []int64
	outs     []*domain.Outgoing
}

func (s *fakeSink) Send(_ context.Context, out *domain.Outgoing) error {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.callIDs = append(s.callIDs, out.Message.ID)
	if s.clock != nil {
		s.callAt = append(s.callAt, s.clock.Now())
	}
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(call, out); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out.Delivered = len(out.Parts)
	s.accepted = append(s.accepted, out.Message.ID)
	s.outs = append(s.outs, out)
	return nil
}

func (s *fakeSink) Accepted() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.accepted...)
}

// fakeFetcher writes payload for every attachment unless err is set.
type fakeFetcher struct {
	payload []byte
	err     error
	calls   int
}

func (f *fakeFetcher) FetchMedia(_ context.Context, _ domain.Attachment, w io.Writer) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	_, err := w.Write(f.payload)
	return err
}

// recordingRepo remembers every applied commit. fail rejects every commit;
// outages rejects only the next few.
type recordingRepo struct {
	repository.Repository
	mu      sync.Mutex
	commits []int64
	fail    error
	outages int
}

func (r *recordingRepo) Commit(ctx context.Context, c *cursordomain.Cursor) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return false, r.fail
	}
	if r.outages > 0 {
		r.outages--
		return false, errors.New("connection refused")
	}
	ok, err := r.Repository.Commit(ctx, c)
	if ok {
		r.commits = append(r.commits, c.LastArchivedID)
	}
	return ok, err
}

func (r *recordingRepo) Commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.commits...)
}

type fakeJournal struct {
	mu  sync.Mutex
	ids []int64
}

func (j *fakeJournal) Record(_, _ string, out *domain.Outgoing) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ids = append(j.ids, out.Message.ID)
	return nil
}

type harness struct {
	clock   *fakeClock
	source  *fakeSource
	fetcher *fakeFetcher
	sink    *fakeSink
	repo    *recordingRepo
	journal *fakeJournal
	opts    Options
}

func newHarness(n int64) *harness {
	clock := &fakeClock{}
	return &harness{
		clock:   clock,
		source:  &fakeSource{msgs: messages(1, n)},
		fetcher: &fakeFetcher{payload: []byte("payload")},
		sink:    &fakeSink{clock: clock},
		repo:    &recordingRepo{Repository: repository.NewMemoryStorage()},
		journal: &fakeJournal{},
		opts: Options{
			Key:             testKey,
			BatchSize:       20,
			PageSize:        7,
			MinDelay:        2 * time.Second,
			MaxDelay:        5 * time.Second,
			Retry:           RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second},
			ThrottlePadding: time.Second,
			MaxUploadBytes:  1 << 20,
			Sleep:           clock.Sleep,
		},
	}
}

// archiver builds a fresh Archiver over the harness state, as a restarted
// process would.
func (h *harness) archiver(t interface{ TempDir() string }) *Archiver {
	opts := h.opts
	opts.SpoolDir = t.TempDir()
	cursors := cursorservice.New(h.repo, discard())
	return New(opts, h.source, h.fetcher, h.sink, cursors, h.journal, discard())
}
