// Package textscan implements the full-buffer match scans used by search and
// replace. Offsets are rune offsets. Every scan is leftmost-first and
// non-overlapping: once a match is taken, scanning resumes at its end.
package textscan

import (
	"strings"
	"unicode"

	"pkt.systems/tabedit/schema"
)

// FindAll returns the spans of every occurrence of term in text. When fold is
// true, runes are compared under Unicode simple case folding. An empty term
// matches nothing.
func FindAll(text, term string, fold bool) []schema.Span {
	if term == "" {
		return nil
	}
	return findRunes([]rune(text), []rune(term), fold)
}

func findRunes(text, pat []rune, fold bool) []schema.Span {
	m := len(pat)
	if m == 0 {
		return nil
	}
	var spans []schema.Span
	// A window shorter than the pattern at the tail never matches.
	for i := 0; i+m <= len(text); {
		if matchAt(text, pat, i, fold) {
			spans = append(spans, schema.Span{Start: i, End: i + m})
			i += m
			continue
		}
		i++
	}
	return spans
}

func matchAt(text, pat []rune, i int, fold bool) bool {
	for j, p := range pat {
		r := text[i+j]
		if r == p {
			continue
		}
		if !fold || !equalFold(r, p) {
			return false
		}
	}
	return true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}

// ReplaceAll substitutes every case-sensitive occurrence of old with repl and
// reports the number of substitutions. Consumed text is never re-examined, so
// a replacement that contains old is not replaced again.
func ReplaceAll(text, old, repl string) (string, int) {
	if old == "" {
		return text, 0
	}
	src := []rune(text)
	spans := findRunes(src, []rune(old), false)
	if len(spans) == 0 {
		return text, 0
	}
	var b strings.Builder
	if size := len(text) + len(spans)*(len(repl)-len(old)); size > 0 {
		b.Grow(size)
	}
	last := 0
	for _, span := range spans {
		b.WriteString(string(src[last:span.Start]))
		b.WriteString(repl)
		last = span.End
	}
	b.WriteString(string(src[last:]))
	return b.String(), len(spans)
}
