package persist

import (
	"fmt"

	"pkt.systems/tabedit/internal/format"
	"pkt.systems/tabedit/internal/protocol"
	"pkt.systems/tabedit/internal/textscan"
)

// Handler answers store commands against a Store.
type Handler struct {
	store  *Store
	marker *format.MarkerRenderer
}

// NewHandler constructs a command handler over store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store, marker: format.NewMarkerRenderer()}
}

// Handle executes one wire command and returns the response text. Errors
// are meant for stderr; the caller decides the exit status.
func (h *Handler) Handle(line string) (string, error) {
	cmd, err := protocol.Parse(line)
	if err != nil {
		return "", err
	}
	switch cmd.Verb {
	case protocol.VerbSave:
		if err := h.store.Save(cmd.Filename, cmd.Content); err != nil {
			return "", fmt.Errorf("failed to save to %s: %w", cmd.Filename, err)
		}
		return fmt.Sprintf("Saved to %s.", cmd.Filename), nil
	case protocol.VerbSearch:
		record, ok, err := h.store.Current()
		if err != nil {
			return "", err
		}
		if !ok {
			return protocol.NotFoundMarker, nil
		}
		spans := textscan.FindWords(record.Content, cmd.Word)
		if len(spans) == 0 {
			return protocol.NotFoundMarker, nil
		}
		return h.marker.Render(record.Content, spans), nil
	case protocol.VerbLoad:
		record, ok, err := h.store.Load(cmd.Filename)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("no record for %s", cmd.Filename)
		}
		return record.Content, nil
	default:
		return "", fmt.Errorf("unsupported verb %q", cmd.Verb)
	}
}
