package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tg"
	"github.com/samber/lo"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

// peers indexes the users and chats delivered alongside a history page.
type peers struct {
	users map[int64]*tg.User
	chats map[int64]string
}

func newPeers(users []tg.UserClass, chats []tg.ChatClass) peers {
	p := peers{users: map[int64]*tg.User{}, chats: map[int64]string{}}
	for _, u := range users {
		if u, ok := u.(*tg.User); ok {
			p.users[u.ID] = u
		}
	}
	for _, c := range chats {
		switch c := c.(type) {
		case *tg.Channel:
			p.chats[c.ID] = c.Title
		case *tg.Chat:
			p.chats[c.ID] = c.Title
		}
	}
	return p
}

// sender names the author of msg: the username when there is one, else
// the display name. Channel posts without an author use the channel title.
func (p peers) sender(msg *tg.Message) string {
	from, ok := msg.GetFromID()
	if !ok {
		from = msg.PeerID
	}

	switch from := from.(type) {
	case *tg.PeerUser:
		u, ok := p.users[from.UserID]
		if !ok {
			return ""
		}
		if u.Username != "" {
			return u.Username
		}
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	case *tg.PeerChannel:
		return p.chats[from.ChannelID]
	case *tg.PeerChat:
		return p.chats[from.ChatID]
	}
	return ""
}

func (p peers) convert(msg *tg.Message) domain.Message {
	m := domain.Message{
		ID:     int64(msg.ID),
		Date:   time.Unix(int64(msg.Date), 0).UTC(),
		Sender: p.sender(msg),
		Blocks: domain.SplitBlocks(msg.Message, convertEntities(msg.Entities)),
	}
	if media, ok := msg.GetMedia(); ok {
		if att, ok := convertMedia(media); ok {
			m.Attachments = append(m.Attachments, att)
		}
	}
	return m
}

func convertEntities(entities []tg.MessageEntityClass) []domain.Span {
	return lo.FilterMap(entities, func(e tg.MessageEntityClass, _ int) (domain.Span, bool) {
		span := domain.Span{Offset: e.GetOffset(), Length: e.GetLength()}
		switch e := e.(type) {
		case *tg.MessageEntityBold:
			span.Kind = domain.EntityKindBold
		case *tg.MessageEntityItalic:
			span.Kind = domain.EntityKindItalic
		case *tg.MessageEntityUnderline:
			span.Kind = domain.EntityKindUnderline
		case *tg.MessageEntityStrike:
			span.Kind = domain.EntityKindStrikethrough
		case *tg.MessageEntitySpoiler:
			span.Kind = domain.EntityKindSpoiler
		case *tg.MessageEntityCode:
			span.Kind = domain.EntityKindCode
		case *tg.MessageEntityPre:
			span.Kind = domain.EntityKindPre
			span.Language = e.Language
		case *tg.MessageEntityTextURL:
			span.Kind = domain.EntityKindTextLink
			span.URL = e.URL
		case *tg.MessageEntityURL:
			span.Kind = domain.EntityKindUrl
		case *tg.MessageEntityMention:
			span.Kind = domain.EntityKindMention
		case *tg.MessageEntityHashtag:
			span.Kind = domain.EntityKindHashtag
		case *tg.MessageEntityCashtag:
			span.Kind = domain.EntityKindCashtag
		case *tg.MessageEntityBotCommand:
			span.Kind = domain.EntityKindBotCommand
		case *tg.MessageEntityEmail:
			span.Kind = domain.EntityKindEmail
		case *tg.MessageEntityPhone:
			span.Kind = domain.EntityKindPhoneNumber
		case *tg.MessageEntityBlockquote:
			span.Kind = domain.EntityKindBlockquote
		default:
			return span, false
		}
		return span, true
	})
}

// convertMedia classifies a message's media. The second result is false
// when the message has nothing worth archiving besides its text.
func convertMedia(media tg.MessageMediaClass) (domain.Attachment, bool) {
	switch media := media.(type) {
	case *tg.MessageMediaEmpty:
		return domain.Attachment{}, false

	case *tg.MessageMediaPhoto:
		photo, ok := media.Photo.(*tg.Photo)
		if !ok {
			return unsupported(media), true
		}
		thumb, size := largestPhotoSize(photo.Sizes)
		if thumb == "" {
			return unsupported(media), true
		}
		return domain.Attachment{
			Kind: domain.AttachmentKindMediaFile,
			Ref: &tg.InputPhotoFileLocation{
				ID:            photo.ID,
				AccessHash:    photo.AccessHash,
				FileReference: photo.FileReference,
				ThumbSize:     thumb,
			},
			Size:     size,
			MimeType: "image/jpeg",
		}, true

	case *tg.MessageMediaDocument:
		doc, ok := media.Document.(*tg.Document)
		if !ok {
			return unsupported(media), true
		}
		att := domain.Attachment{
			Kind: domain.AttachmentKindMediaFile,
			Ref: &tg.InputDocumentFileLocation{
				ID:            doc.ID,
				AccessHash:    doc.AccessHash,
				FileReference: doc.FileReference,
			},
			Size:     doc.Size,
			MimeType: doc.MimeType,
		}
		for _, attr := range doc.Attributes {
			if name, ok := attr.(*tg.DocumentAttributeFilename); ok {
				att.FileName = name.FileName
			}
		}
		return att, true

	case *tg.MessageMediaGeoLive:
		point, ok := media.Geo.(*tg.GeoPoint)
		if !ok {
			return domain.Attachment{Kind: domain.AttachmentKindLiveLocation}, true
		}
		heading, _ := media.GetHeading()
		return domain.Attachment{
			Kind: domain.AttachmentKindLiveLocation,
			Location: &domain.Location{
				Latitude:   point.Lat,
				Longitude:  point.Long,
				LivePeriod: media.Period,
				Heading:    heading,
			},
		}, true

	case *tg.MessageMediaGeo:
		point, ok := media.Geo.(*tg.GeoPoint)
		if !ok {
			return domain.Attachment{Kind: domain.AttachmentKindLiveLocation}, true
		}
		return domain.Attachment{
			Kind:     domain.AttachmentKindLiveLocation,
			Location: &domain.Location{Latitude: point.Lat, Longitude: point.Long},
		}, true

	case *tg.MessageMediaWebPage:
		att := domain.Attachment{Kind: domain.AttachmentKindWebpagePreview}
		if page, ok := media.Webpage.(*tg.WebPage); ok {
			att.Webpage = &domain.Webpage{
				URL:         page.URL,
				SiteName:    page.SiteName,
				Title:       page.Title,
				Description: page.Description,
			}
		}
		return att, true

	default:
		return unsupported(media), true
	}
}

func unsupported(media tg.MessageMediaClass) domain.Attachment {
	return domain.Attachment{
		Kind:  domain.AttachmentKindUnsupported,
		Label: strings.TrimPrefix(fmt.Sprintf("%T", media), "*tg."),
	}
}

// largestPhotoSize returns the type letter and byte size of the biggest
// downloadable rendition.
func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, int64) {
	var (
		best     string
		bestArea int
		bestSize int64
	)
	for _, s := range sizes {
		var (
			typ  string
			area int
			size int64
		)
		switch s := s.(type) {
		case *tg.PhotoSize:
			typ, area, size = s.Type, s.W*s.H, int64(s.Size)
		case *tg.PhotoSizeProgressive:
			typ, area = s.Type, s.W*s.H
			if len(s.Sizes) > 0 {
				size = int64(s.Sizes[len(s.Sizes)-1])
			}
		default:
			continue
		}
		if area >= bestArea {
			best, bestArea, bestSize = typ, area, size
		}
	}
	return best, bestSize
}
