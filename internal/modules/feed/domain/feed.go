package domain

import "time"

// Meta describes the feed published for one archived source.
type Meta struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Updated     time.Time `json:"updated"`
	Items       int       `json:"items"`
}
