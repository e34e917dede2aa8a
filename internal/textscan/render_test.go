package textscan

import (
	"strings"
	"testing"

	"pkt.systems/tabedit/schema"
)

type bracketHighlighter struct{}

func (bracketHighlighter) Escape(text string) string {
	return strings.ReplaceAll(text, "[", "\\[")
}

func (bracketHighlighter) Wrap(match string) string {
	return "[" + match + "]"
}

func TestRenderWrapsMatches(t *testing.T) {
	text := "The Cat and the cat"
	spans := FindAll(text, "cat", true)
	got := Render(text, spans, bracketHighlighter{})
	want := "The [Cat] and the [cat]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderEscapesUnmatchedText(t *testing.T) {
	text := "[x] x"
	got := Render(text, []schema.Span{{Start: 4, End: 5}}, bracketHighlighter{})
	want := "\\[x] [x]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderWithoutSpansEscapesAll(t *testing.T) {
	got := Render("[a]", nil, bracketHighlighter{})
	if got != "\\[a]" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestRenderSkipsInvalidSpans(t *testing.T) {
	spans := []schema.Span{{Start: 0, End: 1}, {Start: 0, End: 2}, {Start: 3, End: 9}}
	got := Render("abc", spans, bracketHighlighter{})
	if got != "[a]bc" {
		t.Fatalf("unexpected rendering %q", got)
	}
}
