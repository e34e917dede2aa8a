package core

import "pkt.systems/tabedit/schema"

// document is the authoritative text of a tab, held as runes so positions
// match search spans.
type document struct {
	runes []rune
}

func newDocument(text string) *document {
	return &document{runes: []rune(text)}
}

// Text returns the full content.
func (d *document) Text() string {
	return string(d.runes)
}

// Len returns the content length in runes.
func (d *document) Len() int {
	return len(d.runes)
}

// Slice returns the runes in [start, end) as a string.
func (d *document) Slice(start, end int) (string, error) {
	if start < 0 || end < start || end > len(d.runes) {
		return "", schema.ErrInvalidEdit
	}
	return string(d.runes[start:end]), nil
}

// Splice replaces n runes at pos with text and returns what was removed.
func (d *document) Splice(pos, n int, text string) (string, error) {
	removed, err := d.Slice(pos, pos+n)
	if err != nil {
		return "", err
	}
	insert := []rune(text)
	out := make([]rune, 0, len(d.runes)-n+len(insert))
	out = append(out, d.runes[:pos]...)
	out = append(out, insert...)
	out = append(out, d.runes[pos+n:]...)
	d.runes = out
	return removed, nil
}

// Reset replaces the whole content and returns the previous text.
func (d *document) Reset(text string) string {
	old := string(d.runes)
	d.runes = []rune(text)
	return old
}
