package normalize

import (
	"html"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/sells-group/localities-compare/pkg/localities"
)

// Span is a run of display text, either matched by the query or not.
type Span struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched,omitempty"`
}

// Highlight splits s into spans using server-reported match offsets. Offsets count
// UTF-16 code units. The input order of subs does not matter; spans past the end of
// s are clamped and spans overlapping an earlier match start where it ended.
func Highlight(s string, subs []localities.Substring) []Span {
	if len(subs) == 0 {
		return plain(s)
	}

	units := utf16.Encode([]rune(s))
	n := len(units)

	sorted := append([]localities.Substring(nil), subs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Offset != sorted[j].Offset {
			return sorted[i].Offset < sorted[j].Offset
		}
		return sorted[i].Length < sorted[j].Length
	})

	var spans []Span
	last := 0
	for _, sub := range sorted {
		start := clamp(sub.Offset, 0, n)
		end := clamp(sub.Offset+sub.Length, 0, n)
		if start < last {
			start = last
		}
		if end <= start {
			continue
		}
		if start > last {
			spans = append(spans, Span{Text: decode(units[last:start])})
		}
		spans = append(spans, Span{Text: decode(units[start:end]), Matched: true})
		last = end
	}
	if last < n {
		spans = append(spans, Span{Text: decode(units[last:])})
	}
	return spans
}

func plain(s string) []Span {
	if s == "" {
		return nil
	}
	return []Span{{Text: s}}
}

func decode(u []uint16) string {
	return string(utf16.Decode(u))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SpansHTML renders spans as markup. Every run is escaped on its own and only
// matched runs are wrapped in <b>.
func SpansHTML(spans []Span) string {
	var b strings.Builder
	for _, sp := range spans {
		if sp.Matched {
			b.WriteString("<b>")
			b.WriteString(html.EscapeString(sp.Text))
			b.WriteString("</b>")
			continue
		}
		b.WriteString(html.EscapeString(sp.Text))
	}
	return b.String()
}

// SpansText joins spans back into plain text.
func SpansText(spans []Span) string {
	var b strings.Builder
	for _, sp := range spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}
