package domain

import (
	"fmt"
	"time"
)

// Key identifies the single cursor record of a (source, destination) pair.
type Key struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s->%s", k.Source, k.Destination)
}

// Cursor is the archive low-water-mark. LastArchivedID never decreases and
// is only advanced after the message it names has been delivered.
type Cursor struct {
	Key
	LastArchivedID int64     `json:"last_message_id"`
	TotalProcessed int64     `json:"total_processed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Zero returns the implicit cursor of a pair that has never been archived.
func Zero(key Key) *Cursor {
	return &Cursor{Key: key}
}

// IsZero reports whether nothing has been committed yet.
func (c *Cursor) IsZero() bool {
	return c == nil || c.LastArchivedID == 0
}
