package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/upload/domain"
	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
	"github.com/samber/oops"
)

// ReportLayout names report files: output_<HHMMSS_DDMMYYYY>.txt
const ReportLayout = "150405_02012006"

// Downloader fetches a manifest URL into a local file.
type Downloader interface {
	Download(ctx context.Context, url string) (File, error)
}

// VideoSender uploads a local video to the destination chat.
type VideoSender interface {
	SendVideo(ctx context.Context, u domain.Upload) error
}

// Options configure an Uploader.
type Options struct {
	// Timeout bounds download and upload of one video together.
	Timeout   time.Duration
	ReportDir string
	Now       func() time.Time
}

// Uploader works through a manifest one video at a time. It keeps no
// progress between runs; every run processes the whole manifest.
type Uploader struct {
	downloader  Downloader
	resolutions ResolutionReader
	sender      VideoSender
	opts        Options
	logger      *slog.Logger
}

func New(downloader Downloader, resolutions ResolutionReader, sender VideoSender, opts Options, logger *slog.Logger) *Uploader {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Uploader{
		downloader:  downloader,
		resolutions: resolutions,
		sender:      sender,
		opts:        opts,
		logger:      logger,
	}
}

// RunManifest parses the manifest at path and processes every entry.
func (u *Uploader) RunManifest(ctx context.Context, path string) (string, []domain.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, oops.With("manifest_file", path).Wrap(err)
	}
	defer f.Close()

	videos, err := domain.ParseManifest(f)
	if err != nil {
		return "", nil, oops.With("manifest_file", path).Wrap(err)
	}
	if len(videos) == 0 {
		return "", nil, oops.With("manifest_file", path).Errorf("no valid URLs found in manifest")
	}
	return u.Run(ctx, videos)
}

// Run processes videos in order and writes one report line per video. It
// returns the report file path. Per-video failures are reported, not
// returned; only an unusable report file or cancellation stops the run.
func (u *Uploader) Run(ctx context.Context, videos []domain.Video) (string, []domain.Report, error) {
	if err := os.MkdirAll(u.opts.ReportDir, 0o755); err != nil {
		return "", nil, oops.With("report_dir", u.opts.ReportDir).Wrap(err)
	}
	reportPath := filepath.Join(u.opts.ReportDir, fmt.Sprintf("output_%s.txt", u.opts.Now().Format(ReportLayout)))
	f, err := os.Create(reportPath)
	if err != nil {
		return "", nil, oops.With("report_file", reportPath).Wrap(err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	u.logger.Info("upload started", "videos", len(videos), "report_file", reportPath)

	reports := make([]domain.Report, 0, len(videos))
	for i, v := range videos {
		if err := ctx.Err(); err != nil {
			return reportPath, reports, err
		}

		report := u.process(ctx, v)
		reports = append(reports, report)
		telemetry.IncLabel(telemetry.VideosUploaded, report.Outcome.String())

		if _, err := w.WriteString(report.Line() + "\n"); err != nil {
			return reportPath, reports, oops.With("report_file", reportPath).Wrap(err)
		}
		if err := w.Flush(); err != nil {
			return reportPath, reports, oops.With("report_file", reportPath).Wrap(err)
		}

		u.logger.Info("video processed",
			"index", i+1,
			"url", v.URL,
			"outcome", report.Outcome,
			"reason", report.Reason,
		)
	}

	return reportPath, reports, nil
}

func (u *Uploader) process(ctx context.Context, v domain.Video) domain.Report {
	start := time.Now()
	defer func() { telemetry.Observe(telemetry.UploadDuration, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
	defer cancel()

	file, err := u.downloader.Download(ctx, v.URL)
	if err != nil {
		return u.report(ctx, v, err, "Other")
	}
	defer func() {
		if err := file.Remove(); err != nil {
			u.logger.Warn("failed to remove downloaded video", "path", file.Path, "error", err)
		}
	}()

	width, height, err := u.resolutions.Resolution(ctx, file.Path)
	if err != nil {
		u.logger.Debug("resolution unavailable", "path", file.Path, "error", err)
		width, height = 0, 0
	}

	upload := domain.Upload{
		Path:     file.Path,
		FileName: file.Name + filepath.Ext(file.Path),
		Caption:  BuildCaption(v.Title, file.Name, file.Size, width, height, u.opts.Now()),
		Width:    width,
		Height:   height,
	}

	err = u.sender.SendVideo(ctx, upload)
	if th, ok := apperrors.AsThrottle(err); ok {
		u.logger.Warn("throttled", "url", v.URL, "delay", th.RetryAfter)
		timer := time.NewTimer(th.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return u.report(ctx, v, ctx.Err(), "Telegram")
		case <-timer.C:
		}
		err = u.sender.SendVideo(ctx, upload)
	}
	if err != nil {
		return u.report(ctx, v, err, "Telegram")
	}
	return domain.Report{Outcome: domain.OutcomeSuccess, Video: v}
}

func (u *Uploader) report(ctx context.Context, v domain.Video, err error, origin string) domain.Report {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Report{Outcome: domain.OutcomeTimeout, Video: v}
	}
	return domain.Report{Outcome: domain.OutcomeFailed, Video: v, Reason: origin + ":" + err.Error()}
}
