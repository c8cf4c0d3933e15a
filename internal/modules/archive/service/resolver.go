package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	msgservice "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/service"
	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
	"github.com/samber/oops"
)

// MediaFetcher streams the bytes behind a media attachment.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, att domain.Attachment, w io.Writer) error
}

// Resolver turns a message's attachments into deliverable parts. Media is
// streamed into spool files so memory stays bounded by the copy buffer.
type Resolver struct {
	fetcher  MediaFetcher
	renderer msgservice.Renderer
	spoolDir string
	maxBytes int64
	retry    *retrier
	logger   *slog.Logger
}

func NewResolver(fetcher MediaFetcher, renderer msgservice.Renderer, spoolDir string, maxBytes int64, retry *retrier, logger *slog.Logger) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		renderer: renderer,
		spoolDir: spoolDir,
		maxBytes: maxBytes,
		retry:    retry,
		logger:   logger,
	}
}

// Resolve builds the outgoing form of msg: a header text part followed by
// one or more parts per attachment. Only fatal or canceled errors are
// returned; everything else degrades to a placeholder part.
func (r *Resolver) Resolve(ctx context.Context, msg domain.Message) (*domain.Outgoing, error) {
	out := &domain.Outgoing{Message: msg}
	out.Parts = append(out.Parts, domain.Part{Kind: domain.PartKindText, Blocks: r.renderer.Header(msg)})

	for i, att := range msg.Attachments {
		switch att.Kind {
		case domain.AttachmentKindMediaFile:
			if err := r.resolveMedia(ctx, out, i, att); err != nil {
				out.Release()
				return nil, err
			}

		case domain.AttachmentKindLiveLocation:
			if att.Location == nil {
				r.skip(out, att, "location unavailable")
				continue
			}
			loc := *att.Location
			out.Parts = append(out.Parts,
				domain.Part{Kind: domain.PartKindLocation, Location: &loc},
				domain.Part{Kind: domain.PartKindText, Blocks: plain(msgservice.LiveLocationNote(msg.ID))},
			)

		case domain.AttachmentKindWebpagePreview:
			out.Parts = append(out.Parts, domain.Part{
				Kind:    domain.PartKindWebpage,
				Text:    msgservice.WebpageText(att.Webpage, msg.ID),
				Webpage: att.Webpage,
			})

		default:
			label := att.Label
			if label == "" {
				label = string(att.Kind)
			}
			r.skip(out, att, "unsupported "+label)
		}
	}

	return out, nil
}

func (r *Resolver) resolveMedia(ctx context.Context, out *domain.Outgoing, index int, att domain.Attachment) error {
	id := out.Message.ID
	if r.maxBytes > 0 && att.Size > r.maxBytes {
		r.skip(out, att, fmt.Sprintf("file too large (%.1f MB)", float64(att.Size)/(1<<20)))
		return nil
	}

	var (
		path        string
		written     int64
		tooLarge    bool
		unsupported bool
	)
	err := r.retry.do(ctx, []any{slog.Int64("message_id", id), slog.Int("attachment", index)}, func(ctx context.Context) error {
		var err error
		path, written, err = r.spool(ctx, att)
		// Retrying cannot shrink the file or make it downloadable.
		switch {
		case apperrors.Is(err, errTooLarge):
			tooLarge = true
			return nil
		case apperrors.Is(err, apperrors.ErrUnsupportedAttachment):
			unsupported = true
			return nil
		}
		return err
	})

	switch {
	case err == nil && tooLarge:
		r.skip(out, att, fmt.Sprintf("file too large (over %.1f MB)", float64(r.maxBytes)/(1<<20)))
		return nil
	case err == nil && unsupported:
		r.skip(out, att, "not downloadable")
		return nil
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case apperrors.Is(err, apperrors.ErrFatalAuth), apperrors.Is(err, apperrors.ErrSourceNotConnected):
		return oops.With("message_id", id, "attachment", index).Wrap(err)
	default:
		r.skip(out, att, "download failed")
		return nil
	}

	name := att.FileName
	if name == "" {
		name = fmt.Sprintf("media_%d_%d%s", id, index+1, extensionFor(att.MimeType))
	}
	out.Parts = append(out.Parts, domain.Part{
		Kind:     domain.PartKindDocument,
		Path:     path,
		FileName: name,
		MimeType: att.MimeType,
		Size:     written,
	})
	return nil
}

var errTooLarge = apperrors.New("payload exceeds upload limit")

// spool downloads att into a fresh temp file. A failed attempt leaves no file.
func (r *Resolver) spool(ctx context.Context, att domain.Attachment) (string, int64, error) {
	f, err := os.CreateTemp(r.spoolDir, "media-*")
	if err != nil {
		return "", 0, oops.With("spool_dir", r.spoolDir).Wrap(err)
	}

	w := &limitWriter{w: f, limit: r.maxBytes}
	ferr := r.fetcher.FetchMedia(ctx, att, w)
	cerr := f.Close()
	if ferr == nil {
		ferr = cerr
	}
	if ferr != nil {
		os.Remove(f.Name())
		return "", 0, ferr
	}
	return f.Name(), w.n, nil
}

func (r *Resolver) skip(out *domain.Outgoing, att domain.Attachment, reason string) {
	id := out.Message.ID
	out.Skipped++
	out.Parts = append(out.Parts, domain.Part{
		Kind: domain.PartKindPlaceholder,
		Text: msgservice.Placeholder(id, reason),
	})
	telemetry.Inc(telemetry.AttachmentsSkipped)
	r.logger.Warn("attachment_skipped",
		slog.Int64("message_id", id),
		slog.String("kind", string(att.Kind)),
		slog.String("reason", reason),
		slog.Any("error", apperrors.ErrUnsupportedAttachment),
	)
}

// limitWriter fails once more than limit bytes are written. Zero means no limit.
type limitWriter struct {
	w     io.Writer
	limit int64
	n     int64
}

func (l *limitWriter) Write(p []byte) (int, error) {
	if l.limit > 0 && l.n+int64(len(p)) > l.limit {
		return 0, errTooLarge
	}
	n, err := l.w.Write(p)
	l.n += int64(n)
	return n, err
}

func plain(text string) []domain.TextBlock {
	return []domain.TextBlock{{Kind: domain.EntityKindPlain, Text: text}}
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}
