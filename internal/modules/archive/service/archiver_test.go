package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/archive/domain"
	msgdomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
)

func seq(from, to int64) []int64 {
	out := make([]int64, 0, to-from+1)
	for id := from; id <= to; id++ {
		out = append(out, id)
	}
	return out
}

func TestRunBatchesFortyFiveMessages(t *testing.T) {
	h := newHarness(45)
	a := h.archiver(t)

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != domain.StateCompleted {
		t.Errorf("state = %v, want completed", res.State)
	}
	if got := h.repo.Commits(); !reflect.DeepEqual(got, []int64{20, 40, 45}) {
		t.Errorf("commits = %v, want [20 40 45]", got)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(1, 45)) {
		t.Errorf("accepted = %v, want 1..45", got)
	}
	if res.Batches != 3 || res.Delivered != 45 || res.TotalProcessed != 45 {
		t.Errorf("result = %+v", res)
	}
	if !reflect.DeepEqual(h.journal.ids, seq(1, 45)) {
		t.Errorf("journal = %v", h.journal.ids)
	}
	if a.State() != domain.StateCompleted {
		t.Errorf("State() = %v", a.State())
	}
}

func TestRunRestartAfterSecondBatch(t *testing.T) {
	h := newHarness(45)
	// The first process dies while sending message 41.
	h.sink.hook = func(_ int, out *msgdomain.Outgoing) error {
		if out.Message.ID == 41 {
			return apperrors.Mark(errors.New("chat not found"), apperrors.ErrFatalSend)
		}
		return nil
	}

	res, err := h.archiver(t).Run(context.Background())
	if !errors.Is(err, apperrors.ErrFatalSend) {
		t.Fatalf("first Run() error = %v, want ErrFatalSend", err)
	}
	if res.State != domain.StateFatal || res.LastArchivedID != 40 {
		t.Fatalf("first run = %+v, want fatal at 40", res)
	}

	h.sink.hook = nil
	h.sink.accepted = nil
	h.repo.commits = nil

	res, err = h.archiver(t).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(41, 45)) {
		t.Errorf("second run accepted = %v, want 41..45", got)
	}
	if got := h.repo.Commits(); !reflect.DeepEqual(got, []int64{45}) {
		t.Errorf("second run commits = %v, want [45]", got)
	}
	if res.Batches != 1 || res.LastArchivedID != 45 || res.TotalProcessed != 45 {
		t.Errorf("second run = %+v", res)
	}
}

func TestRunResumesAcrossManyRestarts(t *testing.T) {
	h := newHarness(30)
	h.opts.BatchSize = 4

	// Each process is interrupted after a different number of deliveries.
	for _, stopAfter := range []int{3, 1, 6, 2} {
		ctx, cancel := context.WithCancel(context.Background())
		delivered := 0
		h.sink.hook = func(_ int, _ *msgdomain.Outgoing) error {
			delivered++
			if delivered == stopAfter {
				cancel()
			}
			return nil
		}
		res, err := h.archiver(t).Run(ctx)
		cancel()
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.State != domain.StateInterrupted {
			t.Fatalf("state = %v, want interrupted", res.State)
		}
	}

	h.sink.hook = nil
	if _, err := h.archiver(t).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(1, 30)) {
		t.Errorf("accepted = %v, want every id exactly once", got)
	}
}

func TestRunInterruptCommitsDeliveredPrefix(t *testing.T) {
	h := newHarness(30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.sink.hook = func(_ int, out *msgdomain.Outgoing) error {
		if out.Message.ID == 7 {
			cancel()
		}
		return nil
	}

	res, err := h.archiver(t).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil on interruption", err)
	}
	if res.State != domain.StateInterrupted {
		t.Errorf("state = %v, want interrupted", res.State)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(1, 7)) {
		t.Errorf("accepted = %v, want 1..7 (message in flight completes)", got)
	}
	if got := h.repo.Commits(); !reflect.DeepEqual(got, []int64{7}) {
		t.Errorf("commits = %v, want [7]", got)
	}
}

func TestRunInterruptDuringRetryFinishesMessage(t *testing.T) {
	h := newHarness(30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.sink.hook = func(call int, out *msgdomain.Outgoing) error {
		if out.Message.ID == 4 && call == 4 {
			cancel()
			return errors.New("connection reset")
		}
		return nil
	}

	res, err := h.archiver(t).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil on interruption", err)
	}
	if res.State != domain.StateInterrupted {
		t.Errorf("state = %v, want interrupted", res.State)
	}
	if got := h.sink.callIDs; !reflect.DeepEqual(got, []int64{1, 2, 3, 4, 4}) {
		t.Errorf("send calls = %v, want the failed message retried once", got)
	}
	if got := h.repo.Commits(); !reflect.DeepEqual(got, []int64{4}) {
		t.Errorf("commits = %v, want [4]", got)
	}
}

func TestRunThrottleCompliance(t *testing.T) {
	h := newHarness(3)
	const retryAfter = 30 * time.Second

	h.sink.hook = func(call int, _ *msgdomain.Outgoing) error {
		if call == 1 {
			return &apperrors.ThrottleError{RetryAfter: retryAfter}
		}
		return nil
	}

	if _, err := h.archiver(t).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(h.sink.callIDs) < 2 || h.sink.callIDs[0] != 1 || h.sink.callIDs[1] != 1 {
		t.Fatalf("call ids = %v, want the throttled message retried first", h.sink.callIDs)
	}
	if gap := h.sink.callAt[1] - h.sink.callAt[0]; gap < retryAfter {
		t.Errorf("second send %v after the first, want >= %v", gap, retryAfter)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(1, 3)) {
		t.Errorf("accepted = %v", got)
	}
}

func TestRunThrottleIsNeverCapped(t *testing.T) {
	h := newHarness(1)
	h.opts.Retry.MaxAttempts = 1

	h.sink.hook = func(call int, _ *msgdomain.Outgoing) error {
		if call <= 5 {
			return &apperrors.ThrottleError{RetryAfter: time.Minute}
		}
		return nil
	}

	res, err := h.archiver(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Delivered != 1 {
		t.Errorf("delivered = %d, want 1", res.Delivered)
	}
}

func TestRunRetryExhaustedIsFatal(t *testing.T) {
	h := newHarness(4)
	h.opts.BatchSize = 2

	h.sink.hook = func(_ int, out *msgdomain.Outgoing) error {
		if out.Message.ID == 3 {
			return apperrors.Mark(errors.New("502 bad gateway"), apperrors.ErrTransientSend)
		}
		return nil
	}

	res, err := h.archiver(t).Run(context.Background())
	if !errors.Is(err, apperrors.ErrRetryExhausted) {
		t.Fatalf("Run() error = %v, want ErrRetryExhausted", err)
	}
	if res.State != domain.StateFatal || res.LastArchivedID != 2 {
		t.Errorf("result = %+v, want fatal with cursor 2", res)
	}

	attempts := 0
	for _, id := range h.sink.callIDs {
		if id == 3 {
			attempts++
		}
	}
	if attempts != 3 {
		t.Errorf("message 3 attempted %d times, want 3", attempts)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("accepted = %v, nothing past the failing message", got)
	}
}

func TestRunTransientSendRecovers(t *testing.T) {
	h := newHarness(2)
	h.sink.hook = func(call int, _ *msgdomain.Outgoing) error {
		if call == 1 {
			return errors.New("connection reset by peer")
		}
		return nil
	}

	if _, err := h.archiver(t).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("accepted = %v", got)
	}
}

func TestRunAtLeastOnceWhenCommitIsLost(t *testing.T) {
	h := newHarness(5)
	h.opts.BatchSize = 5
	h.repo.fail = errors.New("killed before commit")

	if _, err := h.archiver(t).Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded although the commit failed")
	}

	h.repo.fail = nil
	if _, err := h.archiver(t).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := h.sink.Accepted()
	want := append(seq(1, 5), seq(1, 5)...)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("accepted = %v, want the batch re-sent in full with no gap", got)
	}
}

func TestRunUnsupportedAttachmentIsIsolated(t *testing.T) {
	h := newHarness(5)
	h.source.msgs[2].Attachments = []msgdomain.Attachment{{Kind: msgdomain.AttachmentKindUnsupported, Label: "MessageMediaPoll"}}

	res, err := h.archiver(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(1, 5)) {
		t.Errorf("accepted = %v, want all five", got)
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", res.Skipped)
	}

	third := h.sink.outs[2]
	last := third.Parts[len(third.Parts)-1]
	if last.Kind != msgdomain.PartKindPlaceholder || !strings.HasPrefix(last.Text, "[Media from 3: unsupported MessageMediaPoll") {
		t.Errorf("placeholder part = %+v", last)
	}
}

func TestRunFetchAuthFailureIsFatal(t *testing.T) {
	h := newHarness(5)
	h.source.errs = []error{apperrors.Mark(errors.New("AUTH_KEY_UNREGISTERED"), apperrors.ErrFatalAuth)}

	res, err := h.archiver(t).Run(context.Background())
	if !errors.Is(err, apperrors.ErrFatalAuth) {
		t.Fatalf("Run() error = %v, want ErrFatalAuth", err)
	}
	if res.State != domain.StateFatal {
		t.Errorf("state = %v", res.State)
	}
	if len(h.sink.callIDs) != 0 {
		t.Errorf("sink called %d times after fatal fetch", len(h.sink.callIDs))
	}
	if h.source.calls != 1 {
		t.Errorf("source called %d times, want 1", h.source.calls)
	}
}

func TestRunEmptyHistoryCompletes(t *testing.T) {
	h := newHarness(0)

	res, err := h.archiver(t).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.State != domain.StateCompleted || res.Batches != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(h.repo.Commits()) != 0 {
		t.Errorf("commits = %v, want none", h.repo.Commits())
	}
}

func TestRunPassesLongServiceStretch(t *testing.T) {
	h := newHarness(0)
	h.source.msgs = messages(2000, 2002)
	h.source.hidden = 1500

	res, err := h.archiver(t).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.State != domain.StateCompleted || res.LastArchivedID != 2002 {
		t.Errorf("result = %+v, want completed at 2002", res)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, []int64{2000, 2001, 2002}) {
		t.Errorf("accepted = %v", got)
	}
	if got := h.repo.Commits(); !reflect.DeepEqual(got, []int64{2002}) {
		t.Errorf("commits = %v, want [2002]", got)
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	h := newHarness(3)
	a := h.archiver(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h.sink.hook = func(call int, _ *msgdomain.Outgoing) error {
		if call == 1 {
			close(started)
			<-release
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.Run(context.Background())
		done <- err
	}()

	<-started
	if _, err := a.Run(context.Background()); err == nil {
		t.Error("second concurrent Run() succeeded")
	}
	if a.State() != domain.StateRunning {
		t.Errorf("State() = %v during run", a.State())
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if last, ok := a.LastResult(); !ok || last.State != domain.StateCompleted {
		t.Errorf("LastResult() = %+v, %v", last, ok)
	}
}

func TestRunEveryOnce(t *testing.T) {
	h := newHarness(3)
	if err := h.archiver(t).RunEvery(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(1, 3)) {
		t.Errorf("accepted = %v", got)
	}
}

func TestRunEveryStopsOnCancel(t *testing.T) {
	h := newHarness(3)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := h.archiver(t).RunEvery(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("RunEvery() error = %v", err)
	}
	// Later passes find nothing new.
	if got := h.sink.Accepted(); !reflect.DeepEqual(got, seq(1, 3)) {
		t.Errorf("accepted = %v", got)
	}
}

func TestRunEveryKeepsGoingAfterFailedFirstRun(t *testing.T) {
	h := newHarness(3)
	h.repo.outages = 1
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := h.archiver(t).RunEvery(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("RunEvery() error = %v, want the schedule to survive a store outage", err)
	}
	if got := h.repo.Commits(); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("commits = %v, want [3] from the second run", got)
	}
}

func TestRunEveryStopsOnFatalFirstRun(t *testing.T) {
	h := newHarness(3)
	h.sink.hook = func(int, *msgdomain.Outgoing) error {
		return apperrors.Mark(errors.New("forbidden"), apperrors.ErrFatalAuth)
	}

	err := h.archiver(t).RunEvery(context.Background(), time.Hour)
	if !errors.Is(err, apperrors.ErrFatalAuth) {
		t.Fatalf("RunEvery() error = %v, want ErrFatalAuth", err)
	}
}
