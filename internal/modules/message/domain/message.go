package domain

import (
	"os"
	"strings"
	"time"
)

// Message is a read-only view of one source message.
type Message struct {
	ID          int64        `json:"id"`
	Date        time.Time    `json:"date"`
	Sender      string       `json:"sender"`
	Blocks      []TextBlock  `json:"blocks"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Text joins the message's text blocks without formatting.
func (m Message) Text() string {
	var b strings.Builder
	for _, block := range m.Blocks {
		b.WriteString(block.Text)
	}
	return b.String()
}

// TextBlock is a run of text sharing one formatting entity.
type TextBlock struct {
	Kind     EntityKind `json:"kind"`
	Text     string     `json:"text"`
	URL      string     `json:"url,omitempty"`
	Language string     `json:"language,omitempty"`
}

// Attachment is owned by exactly one message. Ref is an opaque handle the
// source's media fetcher understands.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Ref      any            `json:"-"`
	Size     int64          `json:"size,omitempty"`
	FileName string         `json:"file_name,omitempty"`
	MimeType string         `json:"mime_type,omitempty"`
	Location *Location      `json:"location,omitempty"`
	Webpage  *Webpage       `json:"webpage,omitempty"`
	// Label names the source media type when Kind is unsupported.
	Label string `json:"label,omitempty"`
}

type Location struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	LivePeriod int     `json:"live_period,omitempty"`
	Heading    int     `json:"heading,omitempty"`
}

type Webpage struct {
	URL         string `json:"url,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Page is one chunk of source history in ascending id order. NextAfter is
// the highest id the source scanned, including messages it filtered out; a
// page with no messages but a higher NextAfter still makes progress.
type Page struct {
	Messages  []Message
	HasMore   bool
	NextAfter int64
}

// Part is a single send to the destination.
type Part struct {
	Kind     PartKind
	Blocks   []TextBlock // text parts
	Text     string      // webpage and placeholder parts
	Path     string      // spooled payload of a document part
	FileName string
	MimeType string
	Size     int64
	Location *Location
	Webpage  *Webpage
}

// Outgoing is a message with all of its attachments resolved into parts.
// Delivered counts the parts the sink already accepted, so a retried send
// resumes at the first undelivered part.
type Outgoing struct {
	Message   Message
	Parts     []Part
	Delivered int
	Skipped   int
}

// Done reports whether every part has been delivered.
func (o *Outgoing) Done() bool { return o.Delivered >= len(o.Parts) }

// Release removes spooled payload files. Safe to call more than once.
func (o *Outgoing) Release() error {
	var firstErr error
	for i := range o.Parts {
		if o.Parts[i].Path == "" {
			continue
		}
		if err := os.Remove(o.Parts[i].Path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
		o.Parts[i].Path = ""
	}
	return firstErr
}

// Batch is an ordered group of messages delivered under one rate-limiting cycle.
type Batch struct {
	Index    int
	Messages []*Outgoing
}

func (b *Batch) Len() int { return len(b.Messages) }

// LastID returns the id of the batch's last message, or 0 for an empty batch.
func (b *Batch) LastID() int64 {
	if len(b.Messages) == 0 {
		return 0
	}
	return b.Messages[len(b.Messages)-1].Message.ID
}

// FirstID returns the id of the batch's first message, or 0 for an empty batch.
func (b *Batch) FirstID() int64 {
	if len(b.Messages) == 0 {
		return 0
	}
	return b.Messages[0].Message.ID
}

// Release frees spooled payloads of every message in the batch.
func (b *Batch) Release() {
	for _, m := range b.Messages {
		_ = m.Release()
	}
}
