package domain

import "time"

// Entry is the journal record kept for every archived message.
type Entry struct {
	ID          int64            `json:"id"`
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	Date        time.Time        `json:"date"`
	Sender      string           `json:"sender"`
	Text        string           `json:"text"`
	Attachments []AttachmentKind `json:"attachments,omitempty"`
	Skipped     int              `json:"skipped,omitempty"`
	Link        string           `json:"link,omitempty"`
	ArchivedAt  time.Time        `json:"archived_at"`
}
