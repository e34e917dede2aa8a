package core

import "pkt.systems/tabedit/schema"

// Renderer formats a buffer with its search matches highlighted.
type Renderer interface {
	Render(text string, spans []schema.Span) string
}
