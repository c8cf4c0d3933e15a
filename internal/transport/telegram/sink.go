package telegram

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	uploadDomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/upload/domain"
	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
)

// MaxTextLength is the Bot API limit for one text message, in UTF-16 units.
const MaxTextLength = 4096

// Sink delivers archived messages to the destination chat through the Bot API.
type Sink struct {
	bot    *bot.Bot
	chatID any
	logger *slog.Logger
}

// NewBot builds a Bot API client. serverURL overrides the public endpoint.
func NewBot(token, serverURL string, opts ...bot.Option) (*bot.Bot, error) {
	if serverURL != "" {
		opts = append(opts, bot.WithServerURL(serverURL))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, oops.With("context", "failed to create telegram bot").Wrap(classifySend(err))
	}
	return b, nil
}

func NewSink(b *bot.Bot, chatID string, logger *slog.Logger) *Sink {
	return &Sink{bot: b, chatID: ChatID(chatID), logger: logger}
}

// ChatID converts a configured chat reference into the form the Bot API
// expects: numeric ids as integers, usernames as strings.
func ChatID(chat string) any {
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return id
	}
	return chat
}

// Send delivers out's parts starting at out.Delivered. Every accepted part
// advances Delivered, so a retried Send never repeats a part the
// destination already has.
func (s *Sink) Send(ctx context.Context, out *domain.Outgoing) error {
	for out.Delivered < len(out.Parts) {
		part := out.Parts[out.Delivered]
		if err := s.sendPart(ctx, part); err != nil {
			return oops.
				With("message_id", out.Message.ID, "part", out.Delivered, "kind", part.Kind).
				Wrap(err)
		}
		out.Delivered++
	}
	return nil
}

func (s *Sink) sendPart(ctx context.Context, part domain.Part) error {
	switch part.Kind {
	case domain.PartKindText:
		text, spans := domain.Spans(part.Blocks, 0)
		return s.sendText(ctx, text, spans, true)

	case domain.PartKindWebpage:
		return s.sendText(ctx, part.Text, nil, false)

	case domain.PartKindPlaceholder:
		return s.sendText(ctx, part.Text, nil, true)

	case domain.PartKindDocument:
		return s.sendDocument(ctx, part)

	case domain.PartKindLocation:
		if part.Location == nil {
			return apperrors.Mark(oops.Errorf("location part without coordinates"), apperrors.ErrFatalSend)
		}
		params := &bot.SendLocationParams{
			ChatID:    s.chatID,
			Latitude:  part.Location.Latitude,
			Longitude: part.Location.Longitude,
		}
		if part.Location.LivePeriod > 0 {
			params.LivePeriod = part.Location.LivePeriod
			params.Heading = part.Location.Heading
		}
		_, err := s.bot.SendLocation(ctx, params)
		return classifySend(err)

	default:
		return apperrors.Mark(oops.Errorf("unknown part kind %q", part.Kind), apperrors.ErrFatalSend)
	}
}

// sendText sends text in as many messages as the length limit requires.
// A failure part way through resends the whole part on retry.
func (s *Sink) sendText(ctx context.Context, text string, spans []domain.Span, disablePreview bool) error {
	for _, chunk := range chunkText(text, spans, MaxTextLength) {
		params := &bot.SendMessageParams{
			ChatID:   s.chatID,
			Text:     chunk.text,
			Entities: toEntities(chunk.spans),
		}
		if disablePreview {
			params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
		}
		if _, err := s.bot.SendMessage(ctx, params); err != nil {
			return classifySend(err)
		}
	}
	return nil
}

func (s *Sink) sendDocument(ctx context.Context, part domain.Part) error {
	f, err := os.Open(part.Path)
	if err != nil {
		return apperrors.Mark(oops.With("path", part.Path).Wrap(err), apperrors.ErrFatalSend)
	}
	defer f.Close()

	_, err = s.bot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   s.chatID,
		Document: &models.InputFileUpload{Filename: part.FileName, Data: f},
	})
	return classifySend(err)
}

// SendVideo streams a local video file to the destination chat.
func (s *Sink) SendVideo(ctx context.Context, v uploadDomain.Upload) error {
	f, err := os.Open(v.Path)
	if err != nil {
		return oops.With("path", v.Path).Wrap(err)
	}
	defer f.Close()

	_, err = s.bot.SendVideo(ctx, &bot.SendVideoParams{
		ChatID:            s.chatID,
		Video:             &models.InputFileUpload{Filename: v.FileName, Data: f},
		Caption:           v.Caption,
		Width:             v.Width,
		Height:            v.Height,
		SupportsStreaming: true,
	})
	return classifySend(err)
}

func toEntities(spans []domain.Span) []models.MessageEntity {
	return lo.Map(spans, func(s domain.Span, _ int) models.MessageEntity {
		return models.MessageEntity{
			Type:     models.MessageEntityType(s.Kind),
			Offset:   s.Offset,
			Length:   s.Length,
			URL:      s.URL,
			Language: s.Language,
		}
	})
}

// classifySend maps a Bot API failure onto the archive error taxonomy.
func classifySend(err error) error {
	if err == nil {
		return nil
	}
	var tooMany *bot.TooManyRequestsError
	switch {
	case apperrors.As(err, &tooMany):
		return &apperrors.ThrottleError{RetryAfter: time.Duration(tooMany.RetryAfter) * time.Second, Err: err}
	case apperrors.Is(err, bot.ErrorUnauthorized), apperrors.Is(err, bot.ErrorForbidden):
		return apperrors.Mark(err, apperrors.ErrFatalAuth)
	case apperrors.Is(err, bot.ErrorBadRequest), apperrors.Is(err, bot.ErrorNotFound):
		return apperrors.Mark(err, apperrors.ErrFatalSend)
	case apperrors.IsCanceled(err):
		return err
	default:
		return apperrors.Mark(err, apperrors.ErrTransientSend)
	}
}
