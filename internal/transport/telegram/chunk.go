package telegram

import (
	"unicode/utf16"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

type textChunk struct {
	text  string
	spans []domain.Span
}

// chunkText splits text into pieces of at most limit UTF-16 units,
// preferring to cut after a newline. Spans are clipped to each piece and
// rebased onto it. Surrogate pairs are never split.
func chunkText(text string, spans []domain.Span, limit int) []textChunk {
	units := utf16.Encode([]rune(text))
	if len(units) <= limit {
		return []textChunk{{text: text, spans: spans}}
	}

	var chunks []textChunk
	for start := 0; start < len(units); {
		end := min(start+limit, len(units))
		if end < len(units) {
			if nl := lastNewline(units[start:end]); nl > 0 {
				end = start + nl + 1
			} else if utf16.IsSurrogate(rune(units[end-1])) && units[end-1] < 0xdc00 {
				end--
			}
		}

		chunk := textChunk{text: string(utf16.Decode(units[start:end]))}
		for _, s := range spans {
			lo, hi := max(s.Offset, start), min(s.Offset+s.Length, end)
			if lo >= hi {
				continue
			}
			s.Offset, s.Length = lo-start, hi-lo
			chunk.spans = append(chunk.spans, s)
		}
		chunks = append(chunks, chunk)
		start = end
	}
	return chunks
}

func lastNewline(units []uint16) int {
	for i := len(units) - 1; i >= len(units)/2; i-- {
		if units[i] == '\n' {
			return i
		}
	}
	return -1
}
