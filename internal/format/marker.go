package format

import (
	"pkt.systems/tabedit/internal/textscan"
	"pkt.systems/tabedit/schema"
)

const (
	// MarkerOpen starts a highlighted match in marker renderings.
	MarkerOpen = "[HIGHLIGHT]"
	// MarkerClose ends a highlighted match in marker renderings.
	MarkerClose = "[/HIGHLIGHT]"
)

// MarkerRenderer wraps matches in plain-text markers. Unmatched text is
// passed through; it suits terminals and logs.
type MarkerRenderer struct{}

// NewMarkerRenderer returns a plain-text marker renderer.
func NewMarkerRenderer() *MarkerRenderer {
	return &MarkerRenderer{}
}

// Render implements core.Renderer.
func (r *MarkerRenderer) Render(text string, spans []schema.Span) string {
	return textscan.Render(text, spans, r)
}

// Escape implements textscan.Highlighter.
func (r *MarkerRenderer) Escape(text string) string {
	return text
}

// Wrap implements textscan.Highlighter.
func (r *MarkerRenderer) Wrap(match string) string {
	return MarkerOpen + match + MarkerClose
}

// Renderer renders a buffer with its search matches highlighted.
type Renderer interface {
	Render(text string, spans []schema.Span) string
}

// ByName returns the renderer registered under name: "html" or "marker".
func ByName(name string) (Renderer, bool) {
	switch name {
	case "", "html":
		return NewHTMLRenderer(), true
	case "marker":
		return NewMarkerRenderer(), true
	default:
		return nil, false
	}
}
