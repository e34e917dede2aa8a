package textscan

import (
	"strings"

	"pkt.systems/tabedit/schema"
)

// Highlighter controls how Render marks up a buffer.
type Highlighter interface {
	// Escape makes unmatched text safe for the target display.
	Escape(text string) string
	// Wrap marks a matched span. The matched text is passed unescaped and
	// Wrap is responsible for escaping it.
	Wrap(match string) string
}

// Render emits the full text with every span wrapped by h. Spans must be
// sorted and non-overlapping, as returned by FindAll; spans outside the text
// are ignored.
func Render(text string, spans []schema.Span, h Highlighter) string {
	src := []rune(text)
	var b strings.Builder
	last := 0
	for _, span := range spans {
		if span.Start < last || span.End > len(src) || span.Start >= span.End {
			continue
		}
		b.WriteString(h.Escape(string(src[last:span.Start])))
		b.WriteString(h.Wrap(string(src[span.Start:span.End])))
		last = span.End
	}
	b.WriteString(h.Escape(string(src[last:])))
	return b.String()
}
