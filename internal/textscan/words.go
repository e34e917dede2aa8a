package textscan

import (
	"unicode"

	"pkt.systems/tabedit/schema"
)

// FindWords returns the spans of whole-word occurrences of word. A word is a
// maximal run of letters and digits; matching is case-sensitive.
func FindWords(text, word string) []schema.Span {
	if word == "" {
		return nil
	}
	src := []rune(text)
	pat := []rune(word)
	var spans []schema.Span
	i := 0
	for i < len(src) {
		if !isWordRune(src[i]) {
			i++
			continue
		}
		j := i
		for j < len(src) && isWordRune(src[j]) {
			j++
		}
		if j-i == len(pat) && matchAt(src, pat, i, false) {
			spans = append(spans, schema.Span{Start: i, End: j})
		}
		i = j
	}
	return spans
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
