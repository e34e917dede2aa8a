package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pkt.systems/tabedit/schema"
)

// fakeStore mimics the store service in memory.
type fakeStore struct {
	mu       sync.Mutex
	records  map[schema.Filename]string
	current  string
	saves    int
	searches int
	saveErr  error
	// failAfter makes saves fail once this many have succeeded; 0 disables.
	failAfter int
	commands  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[schema.Filename]string)}
}

func (f *fakeStore) Save(ctx context.Context, filename schema.Filename, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "save:"+string(filename))
	if f.saveErr != nil && (f.failAfter == 0 || f.saves >= f.failAfter) {
		return "", f.saveErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := schema.ValidateFilename(filename); err != nil {
		return "", err
	}
	f.saves++
	f.records[filename] = content
	f.current = content
	return fmt.Sprintf("Saved to %s.", filename), nil
}

func (f *fakeStore) Search(ctx context.Context, word string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "search:"+word)
	f.searches++
	if strings.Contains(strings.ToLower(f.current), strings.ToLower(word)) {
		return true, f.current, nil
	}
	return false, "Word not found!", nil
}

func (f *fakeStore) Load(ctx context.Context, filename schema.Filename) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "load:"+string(filename))
	content, ok := f.records[filename]
	if !ok {
		return "", fmt.Errorf("%w: no record for %s", schema.ErrService, filename)
	}
	return content, nil
}

func (f *fakeStore) record(name schema.Filename) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.records[name]
	return content, ok
}

func (f *fakeStore) commandCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

func (f *fakeStore) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

type recordingSink struct {
	mu      sync.Mutex
	tabs    []schema.TabEvent
	status  []schema.StatusEvent
	renders []schema.RenderEvent
}

func (r *recordingSink) OnTabEvent(event schema.TabEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs = append(r.tabs, event)
}

func (r *recordingSink) OnStatus(event schema.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = append(r.status, event)
}

func (r *recordingSink) OnRender(event schema.RenderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, event)
}

func (r *recordingSink) lastStatus() schema.StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.status) == 0 {
		return schema.StatusEvent{}
	}
	return r.status[len(r.status)-1]
}

func (r *recordingSink) lastRender() schema.RenderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.renders) == 0 {
		return schema.RenderEvent{}
	}
	return r.renders[len(r.renders)-1]
}

func (r *recordingSink) tabEventTypes() []schema.TabEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.TabEventType, 0, len(r.tabs))
	for _, event := range r.tabs {
		out = append(out, event.Type)
	}
	return out
}

type harness struct {
	svc   Service
	store *fakeStore
	sink  *recordingSink
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := newFakeStore()
	sink := &recordingSink{}
	svc, err := NewService(schema.ServiceConfig{}, ServiceDeps{Store: store, EventSink: sink})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return harness{svc: svc, store: store, sink: sink}
}

func (h harness) create(t *testing.T, req schema.CreateTabRequest) schema.TabSnapshot {
	t.Helper()
	resp, err := h.svc.CreateTab(context.Background(), req)
	if err != nil {
		t.Fatalf("create tab: %v", err)
	}
	return resp.Tab
}

func (h harness) text(t *testing.T, id schema.TabID) string {
	t.Helper()
	resp, err := h.svc.GetDocument(context.Background(), schema.GetDocumentRequest{TabID: id})
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	return resp.Document.Text
}

func (h harness) titles(t *testing.T) []schema.TabTitle {
	t.Helper()
	resp, err := h.svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	if err != nil {
		t.Fatalf("list tabs: %v", err)
	}
	out := make([]schema.TabTitle, 0, len(resp.Tabs))
	for _, tab := range resp.Tabs {
		out = append(out, tab.Title)
	}
	return out
}
