package core

import "pkt.systems/tabedit/schema"

// tab tracks one open document.
type tab struct {
	ID       schema.TabID
	Title    schema.TabTitle
	Filename schema.Filename
	State    schema.SyncState
	doc      *document
	history  *editHistory
}

// Snapshot returns a presentation-friendly view of the tab.
func (t *tab) Snapshot(index int, active bool) schema.TabSnapshot {
	return schema.TabSnapshot{
		ID:       t.ID,
		Index:    index,
		Title:    t.Title,
		Filename: t.Filename,
		State:    t.State,
		Active:   active,
		Length:   t.doc.Len(),
		CanUndo:  t.history.CanUndo(),
		CanRedo:  t.history.CanRedo(),
	}
}
