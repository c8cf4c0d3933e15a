package telegram

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
)

// maxSkippedPages bounds how many pages of service messages FetchPage
// skips over in one call.
const maxSkippedPages = 10

// Source pages through the configured chat's history oldest first.
type Source struct {
	client *Client
	logger *slog.Logger
}

func (c *Client) Source() *Source { return &Source{client: c, logger: c.logger} }

// FetchPage returns up to limit messages with id > afterID in ascending
// order. Service messages are skipped; a page made only of them does not end
// the history.
func (s *Source) FetchPage(ctx context.Context, afterID int64, limit int) (domain.Page, error) {
	api, p, err := s.client.session()
	if err != nil {
		return domain.Page{}, err
	}

	offset := afterID
	for range maxSkippedPages {
		res, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:      p,
			OffsetID:  int(offset) + 1,
			AddOffset: -limit,
			Limit:     limit,
			MinID:     int(offset),
		})
		if err != nil {
			return domain.Page{}, classify(errors.Wrap(err, "get history"), apperrors.ErrTransientFetch)
		}

		history, ok := res.AsModified()
		if !ok {
			return domain.Page{}, nil
		}

		raw := history.GetMessages()
		idx := newPeers(history.GetUsers(), history.GetChats())

		page := domain.Page{HasMore: len(raw) >= limit, NextAfter: offset}
		var maxID int64
		for _, m := range raw {
			maxID = max(maxID, int64(m.GetID()))
			page.NextAfter = max(page.NextAfter, maxID)
			msg, ok := m.(*tg.Message)
			if !ok || int64(msg.ID) <= afterID {
				continue
			}
			page.Messages = append(page.Messages, idx.convert(msg))
		}

		if len(page.Messages) > 0 || !page.HasMore || maxID <= offset {
			reverse(page.Messages)
			return page, nil
		}
		s.logger.Debug("skipping page of service messages",
			slog.Int64("after_id", offset),
			slog.Int64("max_id", maxID),
		)
		offset = maxID
	}

	return domain.Page{HasMore: true, NextAfter: offset}, nil
}

// reverse puts a newest-first page into ascending order.
func reverse(msgs []domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// MediaFetcher streams attachment payloads out of the source account.
type MediaFetcher struct {
	client     *Client
	downloader *downloader.Downloader
}

func (c *Client) MediaFetcher() *MediaFetcher {
	return &MediaFetcher{client: c, downloader: downloader.NewDownloader()}
}

func (f *MediaFetcher) FetchMedia(ctx context.Context, att domain.Attachment, w io.Writer) error {
	api, _, err := f.client.session()
	if err != nil {
		return err
	}
	loc, ok := att.Ref.(tg.InputFileLocationClass)
	if !ok {
		return errors.Wrapf(apperrors.ErrUnsupportedAttachment, "no file location for %s", att.Kind)
	}

	if _, err := f.downloader.Download(api, loc).Stream(ctx, w); err != nil {
		return classify(errors.Wrap(err, "download"), apperrors.ErrTransientFetch)
	}
	return nil
}
