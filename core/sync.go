package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/internal/logx"
	"pkt.systems/tabedit/internal/textscan"
	"pkt.systems/tabedit/schema"
)

// target resolves the tab for a document request and returns a context
// carrying the tab-scoped logger.
func (s *service) target(ctx context.Context, id schema.TabID) (context.Context, *tab, pslog.Logger, error) {
	if ctx == nil {
		return nil, nil, nil, errors.New("missing context")
	}
	s.mu.Lock()
	t, err := s.resolveLocked(id)
	s.mu.Unlock()
	if err != nil {
		return ctx, nil, logx.Ctx(ctx), err
	}
	log := logx.WithFile(logx.WithTab(ctx, t.ID), t.Filename)
	return logx.ContextWithTabLogger(ctx, log, t.ID), t, log, nil
}

// syncTab pushes the full buffer to the store under the tab's filename. The
// tab becomes clean only if the buffer still matches what was sent.
func (s *service) syncTab(ctx context.Context, t *tab, action string) (string, schema.TabSnapshot, error) {
	s.mu.Lock()
	content := t.doc.Text()
	filename := t.Filename
	s.mu.Unlock()

	log := logx.Ctx(ctx)
	if !s.cfg.DisableAuditLogging {
		log.Debug("audit sync", "action", action, "content_len", len(content))
	}
	resp, err := s.store.Save(ctx, filename, content)

	s.mu.Lock()
	changed := false
	if err == nil && t.State != schema.SyncClean && t.doc.Text() == content {
		t.State = schema.SyncClean
		changed = true
	}
	snap := s.snapshotLocked(t)
	activeIndex := s.activeIndexLocked()
	s.mu.Unlock()

	if err != nil {
		log.Warn("session sync failed", "action", action, "err", err)
		return "", snap, err
	}
	if changed {
		s.emitTabEvent(schema.TabEvent{Type: schema.TabEventSynced, Tab: snap, ActiveIndex: activeIndex})
	}
	log.Trace("session sync ok", "action", action, "content_len", len(content))
	return resp, snap, nil
}

func (s *service) GetDocument(ctx context.Context, req schema.GetDocumentRequest) (schema.GetDocumentResponse, error) {
	if ctx == nil {
		return schema.GetDocumentResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.resolveLocked(req.TabID)
	if err != nil {
		return schema.GetDocumentResponse{}, err
	}
	return schema.GetDocumentResponse{Document: schema.DocumentSnapshot{Tab: s.snapshotLocked(t), Text: t.doc.Text()}}, nil
}

func (s *service) Edit(ctx context.Context, req schema.EditRequest) (schema.EditResponse, error) {
	_, t, log, err := s.target(ctx, req.TabID)
	if err != nil {
		return schema.EditResponse{}, err
	}

	s.mu.Lock()
	var e edit
	switch req.Op {
	case schema.EditInsert:
		e = edit{Pos: req.Pos, Inserted: req.Text}
		_, err = t.doc.Splice(req.Pos, 0, req.Text)
	case schema.EditDelete:
		if req.Length < 0 {
			err = schema.ErrInvalidEdit
			break
		}
		e.Pos = req.Pos
		e.Deleted, err = t.doc.Splice(req.Pos, req.Length, "")
	default:
		err = fmt.Errorf("%w: unknown op %q", schema.ErrInvalidEdit, req.Op)
	}
	if err != nil {
		snap := s.snapshotLocked(t)
		s.mu.Unlock()
		log.Warn("session edit rejected", "op", req.Op, "pos", req.Pos, "err", err)
		s.emitFailure(t.ID, "Edit Error", err)
		return schema.EditResponse{Tab: snap}, err
	}
	mutated := e.Deleted != "" || e.Inserted != ""
	becameDirty := false
	if mutated {
		t.history.Record(e)
		becameDirty = t.State != schema.SyncDirty
		t.State = schema.SyncDirty
	}
	snap := s.snapshotLocked(t)
	text := t.doc.Text()
	activeIndex := s.activeIndexLocked()
	s.mu.Unlock()

	if mutated {
		s.emitRender(schema.RenderEvent{TabID: t.ID, Text: text})
	}
	if becameDirty {
		s.emitTabEvent(schema.TabEvent{Type: schema.TabEventSynced, Tab: snap, ActiveIndex: activeIndex})
	}
	log.Trace("session edit applied", "op", req.Op, "pos", req.Pos, "length", snap.Length)
	return schema.EditResponse{Tab: snap}, nil
}

func (s *service) Save(ctx context.Context, req schema.SaveRequest) (schema.SaveResponse, error) {
	ctx, t, log, err := s.target(ctx, req.TabID)
	if err != nil {
		s.emitFailure("", "Save Error", err)
		return schema.SaveResponse{}, err
	}
	resp, snap, err := s.syncTab(ctx, t, "save")
	if err != nil {
		s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusError, Title: "Save Error", Message: fmt.Sprintf("Failed to save file: %v", err)})
		return schema.SaveResponse{Tab: snap}, err
	}

	s.mu.Lock()
	renamed := false
	if title := schema.Basename(string(t.Filename)); title != "" && title != t.Title {
		t.Title = title
		renamed = true
	}
	snap = s.snapshotLocked(t)
	activeIndex := s.activeIndexLocked()
	s.mu.Unlock()

	if renamed {
		s.emitTabEvent(schema.TabEvent{Type: schema.TabEventRenamed, Tab: snap, ActiveIndex: activeIndex})
	}
	s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusInfo, Message: fmt.Sprintf("Saved %s", t.Filename)})
	log.Info("session tab saved", "content_len", snap.Length)
	return schema.SaveResponse{Tab: snap, Response: resp}, nil
}

func (s *service) Search(ctx context.Context, req schema.SearchRequest) (schema.SearchResponse, error) {
	ctx, t, log, err := s.target(ctx, req.TabID)
	if err == nil && req.Term == "" {
		err = schema.ErrEmptyTerm
	}
	if err != nil {
		s.searchFailed(t, err)
		var snap schema.TabSnapshot
		if t != nil {
			snap = s.snapshot(t)
		}
		return schema.SearchResponse{Tab: snap}, err
	}
	if _, snap, err := s.syncTab(ctx, t, "search"); err != nil {
		s.searchFailed(t, err)
		return schema.SearchResponse{Tab: snap}, err
	}
	found, _, err := s.store.Search(ctx, req.Term)
	if err != nil {
		log.Warn("session search failed", "err", err)
		s.searchFailed(t, err)
		return schema.SearchResponse{Tab: s.snapshot(t)}, err
	}

	s.mu.Lock()
	text := t.doc.Text()
	spans := textscan.FindAll(text, req.Term, true)
	snap := s.snapshotLocked(t)
	s.mu.Unlock()

	if !found || len(spans) == 0 {
		if found {
			log.Debug("session search store match without local span", "term_len", len(req.Term))
		}
		s.emitRender(schema.RenderEvent{TabID: t.ID, Text: text})
		s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusNotice, Title: "Search Result", Message: fmt.Sprintf("'%s' not found in document.", req.Term)})
		log.Debug("session search miss", "term_len", len(req.Term))
		return schema.SearchResponse{Tab: snap, Rendering: text}, nil
	}
	rendering := s.renderer.Render(text, spans)
	s.emitRender(schema.RenderEvent{TabID: t.ID, Text: rendering, Highlighted: true})
	s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusInfo, Message: fmt.Sprintf("Found matches for '%s'", req.Term)})
	log.Debug("session search hit", "term_len", len(req.Term), "matches", len(spans))
	return schema.SearchResponse{Tab: snap, Found: true, Spans: spans, Rendering: rendering}, nil
}

func (s *service) searchFailed(t *tab, err error) {
	var id schema.TabID
	if t != nil {
		id = t.ID
	}
	s.emitStatus(schema.StatusEvent{TabID: id, Level: schema.StatusError, Title: "Search Error", Message: fmt.Sprintf("Error during search: %v", err)})
}

func (s *service) Replace(ctx context.Context, req schema.ReplaceRequest) (schema.ReplaceResponse, error) {
	ctx, t, log, err := s.target(ctx, req.TabID)
	if err != nil {
		s.replaceFailed("", err)
		return schema.ReplaceResponse{}, err
	}
	if req.Old == "" {
		return schema.ReplaceResponse{Tab: s.snapshot(t)}, nil
	}
	if _, snap, err := s.syncTab(ctx, t, "replace"); err != nil {
		s.replaceFailed(t.ID, err)
		return schema.ReplaceResponse{Tab: snap}, err
	}

	s.mu.Lock()
	before := t.doc.Text()
	after, count := textscan.ReplaceAll(before, req.Old, req.New)
	if count > 0 {
		t.doc.Reset(after)
		t.history.Record(edit{Pos: 0, Deleted: before, Inserted: after})
		t.State = schema.SyncDirty
	}
	snap := s.snapshotLocked(t)
	s.mu.Unlock()

	if count == 0 {
		s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusNotice, Title: "Replace Result", Message: fmt.Sprintf("No occurrences of '%s' found.", req.Old)})
		log.Debug("session replace miss", "old_len", len(req.Old))
		return schema.ReplaceResponse{Tab: snap}, nil
	}
	s.emitRender(schema.RenderEvent{TabID: t.ID, Text: after})
	if _, snap, err := s.syncTab(ctx, t, "replace"); err != nil {
		s.replaceFailed(t.ID, err)
		return schema.ReplaceResponse{Tab: snap, Count: count}, err
	}
	s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusInfo, Message: fmt.Sprintf("Replaced %d occurrence(s) of '%s' with '%s'", count, req.Old, req.New)})
	log.Info("session replace applied", "count", count)
	return schema.ReplaceResponse{Tab: s.snapshot(t), Count: count}, nil
}

func (s *service) replaceFailed(id schema.TabID, err error) {
	s.emitStatus(schema.StatusEvent{TabID: id, Level: schema.StatusError, Title: "Replace Error", Message: fmt.Sprintf("Error during replace: %v", err)})
}

func (s *service) Undo(ctx context.Context, req schema.UndoRequest) (schema.UndoResponse, error) {
	snap, mutated, err := s.step(ctx, req.TabID, "undo")
	return schema.UndoResponse{Tab: snap, Mutated: mutated}, err
}

func (s *service) Redo(ctx context.Context, req schema.RedoRequest) (schema.RedoResponse, error) {
	snap, mutated, err := s.step(ctx, req.TabID, "redo")
	return schema.RedoResponse{Tab: snap, Mutated: mutated}, err
}

// step applies one undo or redo and always pushes the resulting buffer,
// whether or not anything changed.
func (s *service) step(ctx context.Context, id schema.TabID, action string) (schema.TabSnapshot, bool, error) {
	ctx, t, log, err := s.target(ctx, id)
	if err != nil {
		title := "Undo Error"
		if action == "redo" {
			title = "Redo Error"
		}
		s.emitFailure("", title, err)
		return schema.TabSnapshot{}, false, err
	}
	s.mu.Lock()
	var mutated bool
	if action == "undo" {
		mutated, err = t.history.Undo(t.doc)
	} else {
		mutated, err = t.history.Redo(t.doc)
	}
	if mutated {
		t.State = schema.SyncDirty
	}
	text := t.doc.Text()
	s.mu.Unlock()
	if err != nil {
		log.Error("session history corrupt", "action", action, "err", err)
		s.emitFailure(t.ID, "Edit Error", err)
		return s.snapshot(t), false, err
	}
	if mutated {
		s.emitRender(schema.RenderEvent{TabID: t.ID, Text: text})
	}
	_, snap, err := s.syncTab(ctx, t, action)
	if err != nil {
		s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusError, Title: "Save Error", Message: fmt.Sprintf("Failed to save file: %v", err)})
		return snap, mutated, err
	}
	label := "Undo"
	if action == "redo" {
		label = "Redo"
	}
	s.emitStatus(schema.StatusEvent{TabID: t.ID, Level: schema.StatusInfo, Message: label})
	log.Debug("session history step", "action", action, "mutated", mutated)
	return snap, mutated, nil
}

func (s *service) Verify(ctx context.Context, req schema.VerifyRequest) (schema.VerifyResponse, error) {
	ctx, t, log, err := s.target(ctx, req.TabID)
	if err != nil {
		return schema.VerifyResponse{}, err
	}
	s.mu.Lock()
	current := t.doc.Text()
	filename := t.Filename
	s.mu.Unlock()

	stored, err := s.store.Load(ctx, filename)
	if err != nil {
		log.Warn("session verify failed", "err", err)
		s.emitFailure(t.ID, "Verify Error", err)
		return schema.VerifyResponse{Tab: s.snapshot(t)}, err
	}
	inSync := stored == current
	if inSync {
		log.Debug("session verify ok", "content_len", len(current))
	} else {
		log.Warn("session verify mismatch", "stored_len", len(stored), "current_len", len(current))
	}
	return schema.VerifyResponse{Tab: s.snapshot(t), InSync: inSync, Stored: stored, Current: current}, nil
}

func (s *service) snapshot(t *tab) schema.TabSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(t)
}
