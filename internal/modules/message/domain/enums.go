//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// AttachmentKind is the capability an attachment is re-materialized through
// ENUM(media_file,live_location,webpage_preview,unsupported)
type AttachmentKind string

// PartKind is a single deliverable unit of an outgoing message
// ENUM(text,document,location,webpage,placeholder)
type PartKind string

// EntityKind is the formatting of a text block, named after Bot API entity types
// ENUM(plain,bold,italic,underline,strikethrough,spoiler,code,pre,text_link,url,mention,hashtag,cashtag,bot_command,email,phone_number,blockquote)
type EntityKind string
