package core

import (
	"unicode/utf8"

	"pkt.systems/tabedit/schema"
)

// edit is one reversible change: at Pos, Deleted was replaced by Inserted.
type edit struct {
	Pos      int
	Deleted  string
	Inserted string
}

// editHistory is a bounded undo stack with a redo stack. Recording a new
// edit clears redo.
type editHistory struct {
	undo []edit
	redo []edit
	max  int
}

func newEditHistory(max int) *editHistory {
	if max <= 0 {
		max = schema.DefaultHistoryMax
	}
	return &editHistory{max: max}
}

// Record pushes an edit that has already been applied.
func (h *editHistory) Record(e edit) {
	if e.Deleted == "" && e.Inserted == "" {
		return
	}
	h.undo = append(h.undo, e)
	if len(h.undo) > h.max {
		h.undo = append([]edit(nil), h.undo[len(h.undo)-h.max:]...)
	}
	h.redo = nil
}

// Undo reverts the most recent edit on doc. It reports whether doc changed.
func (h *editHistory) Undo(doc *document) (bool, error) {
	if len(h.undo) == 0 {
		return false, nil
	}
	e := h.undo[len(h.undo)-1]
	if _, err := doc.Splice(e.Pos, utf8.RuneCountInString(e.Inserted), e.Deleted); err != nil {
		return false, err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, e)
	return true, nil
}

// Redo reapplies the most recently undone edit on doc.
func (h *editHistory) Redo(doc *document) (bool, error) {
	if len(h.redo) == 0 {
		return false, nil
	}
	e := h.redo[len(h.redo)-1]
	if _, err := doc.Splice(e.Pos, utf8.RuneCountInString(e.Deleted), e.Inserted); err != nil {
		return false, err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, e)
	return true, nil
}

func (h *editHistory) CanUndo() bool {
	return len(h.undo) > 0
}

func (h *editHistory) CanRedo() bool {
	return len(h.redo) > 0
}
