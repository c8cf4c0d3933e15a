package service

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
)

// RunEvery repeats Run on a ticker until ctx is cancelled or a run fails
// fatally. An interval of zero runs once.
func (a *Archiver) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		_, err := a.Run(ctx)
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.scheduledRun(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// scheduledRun runs once and swallows failures a later run may recover from.
func (a *Archiver) scheduledRun(ctx context.Context) error {
	res, err := a.Run(ctx)
	if err == nil {
		return nil
	}
	if apperrors.IsFatal(err) {
		return err
	}
	a.logger.Error("Scheduled archive run failed", slog.Any("error", err), slog.String("state", string(res.State)))
	return nil
}
