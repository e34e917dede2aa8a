package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"unicode/utf8"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/internal/format"
	"pkt.systems/tabedit/internal/logx"
	"pkt.systems/tabedit/schema"
)

// service implements the core session behavior.
type service struct {
	cfg      schema.ServiceConfig
	store    StoreClient
	renderer Renderer
	sink     EventSink

	mu      sync.Mutex
	tabs    map[schema.TabID]*tab
	order   []schema.TabID
	active  schema.TabID
	nextSeq int
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	if deps.Store == nil {
		return nil, errors.New("store client is required")
	}
	cfg = schema.NormalizeServiceConfig(cfg)
	if deps.Renderer == nil {
		deps.Renderer = format.NewHTMLRenderer()
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger.Debug("session service created", "history_max", cfg.HistoryMax, "audit", !cfg.DisableAuditLogging)
	return &service{
		cfg:      cfg,
		store:    deps.Store,
		renderer: deps.Renderer,
		sink:     deps.EventSink,
		tabs:     make(map[schema.TabID]*tab),
		nextSeq:  1,
	}, nil
}

func (s *service) CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error) {
	if ctx == nil {
		return schema.CreateTabResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	t := s.createTabLocked(req)
	snap := s.snapshotLocked(t)
	event := schema.TabEvent{Type: schema.TabEventCreated, Tab: snap, ActiveIndex: snap.Index}
	s.mu.Unlock()

	s.emitTabEvent(event)
	s.emitRender(schema.RenderEvent{TabID: t.ID, Text: req.Content})
	logx.WithFile(logx.WithTab(ctx, t.ID), t.Filename).Info("session tab created", "title", t.Title, "index", snap.Index, "content_len", len(req.Content))
	return schema.CreateTabResponse{Tab: snap}, nil
}

// createTabLocked appends a tab and makes it active. The naming counter
// advances on every call so sequence numbers are never reused.
func (s *service) createTabLocked(req schema.CreateTabRequest) *tab {
	seq := s.nextSeq
	s.nextSeq++
	title := req.Title
	if title == "" {
		title = schema.DefaultTitle(seq)
	}
	filename := req.Filename
	if filename == "" {
		filename = schema.DefaultFilename(seq)
	}
	t := &tab{
		ID:       schema.TabID(newID()),
		Title:    title,
		Filename: filename,
		State:    schema.SyncDirty,
		doc:      newDocument(req.Content),
		history:  newEditHistory(s.cfg.HistoryMax),
	}
	s.tabs[t.ID] = t
	s.order = append(s.order, t.ID)
	s.active = t.ID
	return t
}

func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	if ctx == nil {
		return schema.CloseTabResponse{}, errors.New("missing context")
	}
	log := logx.Ctx(ctx)

	s.mu.Lock()
	t, err := s.tabAtLocked(req.Index)
	if err != nil {
		s.mu.Unlock()
		log.Warn("session tab close failed", "index", req.Index, "err", err)
		s.emitFailure("", "Close Error", err)
		return schema.CloseTabResponse{}, err
	}
	closedActive := s.active == t.ID
	closed := t.Snapshot(req.Index, closedActive)
	delete(s.tabs, t.ID)
	s.order = append(s.order[:req.Index], s.order[req.Index+1:]...)
	if closedActive {
		s.active = ""
		if len(s.order) > 0 {
			next := req.Index
			if next >= len(s.order) {
				next = len(s.order) - 1
			}
			s.active = s.order[next]
		}
	}
	activeIndex := s.activeIndexLocked()
	events := []schema.TabEvent{{Type: schema.TabEventClosed, Tab: closed, ActiveIndex: activeIndex}}
	if closedActive && s.active != "" {
		events = append(events, schema.TabEvent{Type: schema.TabEventActivated, Tab: s.snapshotLocked(s.tabs[s.active]), ActiveIndex: activeIndex})
	}
	s.mu.Unlock()

	for _, event := range events {
		s.emitTabEvent(event)
	}
	logx.WithFile(logx.WithTab(ctx, t.ID), t.Filename).Info("session tab closed", "index", req.Index, "active_index", activeIndex)
	return schema.CloseTabResponse{Tab: closed}, nil
}

func (s *service) ActiveTab(ctx context.Context) (schema.TabSnapshot, bool) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tabs[s.active]
	if t == nil {
		return schema.TabSnapshot{}, false
	}
	return s.snapshotLocked(t), true
}

func (s *service) ActivateTab(ctx context.Context, req schema.ActivateTabRequest) (schema.ActivateTabResponse, error) {
	if ctx == nil {
		return schema.ActivateTabResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	t, err := s.tabAtLocked(req.Index)
	if err != nil {
		s.mu.Unlock()
		logx.Ctx(ctx).Warn("session tab activate failed", "index", req.Index, "err", err)
		s.emitFailure("", "Switch Error", err)
		return schema.ActivateTabResponse{}, err
	}
	changed := s.active != t.ID
	s.active = t.ID
	snap := s.snapshotLocked(t)
	s.mu.Unlock()

	if changed {
		s.emitTabEvent(schema.TabEvent{Type: schema.TabEventActivated, Tab: snap, ActiveIndex: snap.Index})
		logx.WithTab(ctx, t.ID).Debug("session tab activated", "index", snap.Index)
	}
	return schema.ActivateTabResponse{Tab: snap}, nil
}

func (s *service) ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error) {
	_ = ctx
	_ = req
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]schema.TabSnapshot, 0, len(s.order))
	for i, id := range s.order {
		t := s.tabs[id]
		if t == nil {
			continue
		}
		tabs = append(tabs, t.Snapshot(i, id == s.active))
	}
	return schema.ListTabsResponse{Tabs: tabs, ActiveIndex: s.activeIndexLocked()}, nil
}

func (s *service) RenameTabDisplay(ctx context.Context, req schema.RenameTabRequest) (schema.RenameTabResponse, error) {
	if ctx == nil {
		return schema.RenameTabResponse{}, errors.New("missing context")
	}
	title := schema.Basename(req.Basename)
	s.mu.Lock()
	t, err := s.tabAtLocked(req.Index)
	if err == nil && title == "" {
		err = fmt.Errorf("%w: empty title", schema.ErrValidation)
	}
	if err != nil {
		s.mu.Unlock()
		logx.Ctx(ctx).Warn("session tab rename failed", "index", req.Index, "err", err)
		s.emitFailure("", "Rename Error", err)
		return schema.RenameTabResponse{}, err
	}
	previous := t.Title
	t.Title = title
	snap := s.snapshotLocked(t)
	s.mu.Unlock()

	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventRenamed, Tab: snap, ActiveIndex: s.activeIndex()})
	logx.WithTab(ctx, t.ID).Debug("session tab renamed", "from", previous, "to", title)
	return schema.RenameTabResponse{Tab: snap}, nil
}

func (s *service) MoveTab(ctx context.Context, req schema.MoveTabRequest) (schema.MoveTabResponse, error) {
	if ctx == nil {
		return schema.MoveTabResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	t, err := s.tabAtLocked(req.From)
	if err == nil && (req.To < 0 || req.To >= len(s.order)) {
		err = fmt.Errorf("%w: index %d", schema.ErrTabNotFound, req.To)
	}
	if err != nil {
		s.mu.Unlock()
		logx.Ctx(ctx).Warn("session tab move failed", "from", req.From, "to", req.To, "err", err)
		s.emitFailure("", "Move Error", err)
		return schema.MoveTabResponse{}, err
	}
	s.order = moveID(s.order, req.From, req.To)
	snap := s.snapshotLocked(t)
	activeIndex := s.activeIndexLocked()
	s.mu.Unlock()

	if req.From != req.To {
		s.emitTabEvent(schema.TabEvent{Type: schema.TabEventMoved, Tab: snap, ActiveIndex: activeIndex})
		logx.WithTab(ctx, t.ID).Debug("session tab moved", "from", req.From, "to", req.To)
	}
	return schema.MoveTabResponse{Tab: snap}, nil
}

func (s *service) OpenFile(ctx context.Context, req schema.OpenFileRequest) (schema.OpenFileResponse, error) {
	if ctx == nil {
		return schema.OpenFileResponse{}, errors.New("missing context")
	}
	log := logx.Ctx(ctx).With("path", req.Path)
	data, err := os.ReadFile(req.Path)
	if err == nil && !utf8.Valid(data) {
		err = fmt.Errorf("%w: %s", schema.ErrInvalidUTF8, req.Path)
	}
	name := schema.Basename(req.Path)
	if err == nil {
		err = schema.ValidateFilename(schema.Filename(name))
	}
	if err != nil {
		log.Warn("session file open failed", "err", err)
		s.emitFailure("", "Open failed", err)
		return schema.OpenFileResponse{}, err
	}
	created, err := s.CreateTab(ctx, schema.CreateTabRequest{
		Title:    name,
		Content:  string(data),
		Filename: schema.Filename(name),
	})
	if err != nil {
		return schema.OpenFileResponse{}, err
	}
	t := s.lookup(created.Tab.ID)
	tabLog := logx.WithTab(ctx, t.ID)
	ctx = logx.ContextWithTabLogger(ctx, tabLog, t.ID)
	_, snap, err := s.syncTab(ctx, t, "open")
	if err != nil {
		tabLog.Warn("session file open failed", "path", req.Path, "err", err)
		s.emitFailure(t.ID, "Open failed", err)
		return schema.OpenFileResponse{Tab: snap}, err
	}
	tabLog.Info("session file opened", "path", req.Path, "content_len", len(data))
	return schema.OpenFileResponse{Tab: snap}, nil
}

func (s *service) lookup(id schema.TabID) *tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabs[id]
}

// resolveLocked returns the tab for id, or the active tab when id is empty.
func (s *service) resolveLocked(id schema.TabID) (*tab, error) {
	if id == "" {
		if s.active == "" {
			return nil, schema.ErrNoActiveTab
		}
		id = s.active
	}
	t := s.tabs[id]
	if t == nil {
		return nil, schema.ErrTabNotFound
	}
	return t, nil
}

func (s *service) tabAtLocked(index int) (*tab, error) {
	if index < 0 || index >= len(s.order) {
		return nil, fmt.Errorf("%w: index %d", schema.ErrTabNotFound, index)
	}
	t := s.tabs[s.order[index]]
	if t == nil {
		return nil, fmt.Errorf("%w: index %d", schema.ErrTabNotFound, index)
	}
	return t, nil
}

func (s *service) indexOfLocked(id schema.TabID) int {
	for i, existing := range s.order {
		if existing == id {
			return i
		}
	}
	return -1
}

func (s *service) activeIndexLocked() int {
	if s.active == "" {
		return -1
	}
	return s.indexOfLocked(s.active)
}

func (s *service) activeIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIndexLocked()
}

func (s *service) snapshotLocked(t *tab) schema.TabSnapshot {
	return t.Snapshot(s.indexOfLocked(t.ID), t.ID == s.active)
}

func moveID(order []schema.TabID, from, to int) []schema.TabID {
	id := order[from]
	out := make([]schema.TabID, 0, len(order))
	out = append(out, order[:from]...)
	out = append(out, order[from+1:]...)
	out = append(out[:to], append([]schema.TabID{id}, out[to:]...)...)
	return out
}

func (s *service) emitTabEvent(event schema.TabEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTabEvent(event)
}

func (s *service) emitStatus(event schema.StatusEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnStatus(event)
}

func (s *service) emitRender(event schema.RenderEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnRender(event)
}

func (s *service) emitFailure(tabID schema.TabID, title string, err error) {
	s.emitStatus(schema.StatusEvent{TabID: tabID, Level: schema.StatusError, Title: title, Message: err.Error()})
}
