package domain

import (
	"sort"
	"unicode/utf16"
)

// Span is a formatting entity over text, with Offset and Length counted in
// UTF-16 code units as Telegram reports them.
type Span struct {
	Offset   int
	Length   int
	Kind     EntityKind
	URL      string
	Language string
}

// SplitBlocks cuts text into ordered blocks along spans. Uncovered runs
// become plain blocks. Spans that overlap an earlier span or fall outside
// the text are dropped; nesting is not representable as a flat block list.
func SplitBlocks(text string, spans []Span) []TextBlock {
	if text == "" {
		return nil
	}
	units := utf16.Encode([]rune(text))

	sorted := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Length <= 0 || s.Offset < 0 || s.Offset >= len(units) {
			continue
		}
		if s.Offset+s.Length > len(units) {
			s.Length = len(units) - s.Offset
		}
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var blocks []TextBlock
	pos := 0
	for _, s := range sorted {
		if s.Offset < pos {
			continue
		}
		if s.Offset > pos {
			blocks = append(blocks, TextBlock{Kind: EntityKindPlain, Text: decode(units[pos:s.Offset])})
		}
		blocks = append(blocks, TextBlock{
			Kind:     s.Kind,
			Text:     decode(units[s.Offset : s.Offset+s.Length]),
			URL:      s.URL,
			Language: s.Language,
		})
		pos = s.Offset + s.Length
	}
	if pos < len(units) {
		blocks = append(blocks, TextBlock{Kind: EntityKindPlain, Text: decode(units[pos:])})
	}
	return blocks
}

// Spans is the inverse of SplitBlocks: it returns the plain text and the
// non-plain blocks as UTF-16 spans, shifted by base units.
func Spans(blocks []TextBlock, base int) (string, []Span) {
	var (
		text  []rune
		spans []Span
		pos   = base
	)
	for _, b := range blocks {
		n := UTF16Len(b.Text)
		if b.Kind != EntityKindPlain && b.Kind != "" && n > 0 {
			spans = append(spans, Span{Offset: pos, Length: n, Kind: b.Kind, URL: b.URL, Language: b.Language})
		}
		text = append(text, []rune(b.Text)...)
		pos += n
	}
	return string(text), spans
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func decode(units []uint16) string {
	return string(utf16.Decode(units))
}
