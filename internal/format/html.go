// Package format renders search highlights for presentation surfaces.
package format

import (
	"strings"

	"pkt.systems/tabedit/internal/textscan"
	"pkt.systems/tabedit/schema"
)

// HighlightStyle is the inline style applied to matches by HTMLRenderer.
const HighlightStyle = "background-color: yellow;"

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// HTMLRenderer renders matches as inline-styled spans inside escaped text.
type HTMLRenderer struct {
	style string
}

// NewHTMLRenderer returns a renderer using HighlightStyle.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{style: HighlightStyle}
}

// Render implements core.Renderer.
func (r *HTMLRenderer) Render(text string, spans []schema.Span) string {
	return textscan.Render(text, spans, r)
}

// Escape implements textscan.Highlighter.
func (r *HTMLRenderer) Escape(text string) string {
	return htmlEscaper.Replace(text)
}

// Wrap implements textscan.Highlighter.
func (r *HTMLRenderer) Wrap(match string) string {
	style := r.style
	if style == "" {
		style = HighlightStyle
	}
	return `<span style="` + style + `">` + htmlEscaper.Replace(match) + "</span>"
}
