package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/pslog"

	"pkt.systems/tabedit/core"
	"pkt.systems/tabedit/internal/format"
	"pkt.systems/tabedit/schema"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[schema.Filename]string
	current string
}

func (m *memoryStore) Save(_ context.Context, filename schema.Filename, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[schema.Filename]string)
	}
	m.records[filename] = content
	m.current = content
	return "Saved to " + string(filename) + ".", nil
}

func (m *memoryStore) Search(_ context.Context, word string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.Contains(strings.ToLower(m.current), strings.ToLower(word)) {
		return true, m.current, nil
	}
	return false, "Word not found!", nil
}

func (m *memoryStore) Load(_ context.Context, filename schema.Filename) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.records[filename]
	if !ok {
		return "", schema.ErrService
	}
	return content, nil
}

func newTestHandler(t *testing.T, cfg HandlerConfig) (*Handler, core.Service) {
	t.Helper()
	svc, err := core.NewService(schema.ServiceConfig{}, core.ServiceDeps{
		Store:    &memoryStore{},
		Renderer: format.NewMarkerRenderer(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewHandler(svc, cfg), svc
}

func run(t *testing.T, h *Handler, input string) Result {
	t.Helper()
	res, err := h.Handle(context.Background(), input)
	if err != nil {
		t.Fatalf("Handle(%q): %v", input, err)
	}
	return res
}

func TestParse(t *testing.T) {
	cmd, ok := Parse("  /Replace  \"a b\" c")
	if !ok {
		t.Fatalf("expected slash command")
	}
	if cmd.Name != "replace" || cmd.Remainder != `"a b" c` {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if _, ok := Parse("plain text"); ok {
		t.Fatalf("plain text should not parse as a command")
	}
}

func TestQuotedArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{in: `old new`, want: []string{"old", "new"}},
		{in: `"two words" x`, want: []string{"two words", "x"}},
		{in: `"line\nbreak" ""`, want: []string{"line\nbreak", ""}},
		{in: `"say \"hi\""`, want: []string{`say "hi"`}},
		{in: `"open`, wantErr: true},
	}
	for _, tc := range tests {
		got, err := QuotedArgs(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("QuotedArgs(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("QuotedArgs(%q): %v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("QuotedArgs(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestTextLinesAppendToActiveDocument(t *testing.T) {
	h, _ := newTestHandler(t, HandlerConfig{})
	run(t, h, "/new")
	run(t, h, "first line")
	run(t, h, "second line")
	res := run(t, h, "/show")
	want := []string{"first line", "second line", ""}
	if diff := cmp.Diff(want, res.Lines); diff != "" {
		t.Fatalf("show mismatch (-want +got):\n%s", diff)
	}
}

func TestTextWithoutTabs(t *testing.T) {
	h, _ := newTestHandler(t, HandlerConfig{})
	if _, err := h.Handle(context.Background(), "orphan"); !errors.Is(err, schema.ErrNoActiveTab) {
		t.Fatalf("expected ErrNoActiveTab, got %v", err)
	}
}

func TestSearchAndReplaceCommands(t *testing.T) {
	h, svc := newTestHandler(t, HandlerConfig{})
	run(t, h, "/new")
	run(t, h, "the cat sat on the mat")
	res := run(t, h, "/search the")
	if len(res.Lines) == 0 || !strings.HasPrefix(res.Lines[0], "[HIGHLIGHT]the[/HIGHLIGHT] cat") {
		t.Fatalf("unexpected search output: %v", res.Lines)
	}
	run(t, h, `/replace "the cat" "a dog"`)
	doc, err := svc.GetDocument(context.Background(), schema.GetDocumentRequest{})
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.Document.Text != "a dog sat on the mat\n" {
		t.Fatalf("unexpected text %q", doc.Document.Text)
	}
	run(t, h, "/undo")
	res = run(t, h, "/verify")
	if len(res.Lines) != 1 || !strings.Contains(res.Lines[0], "in sync") {
		t.Fatalf("expected in sync, got %v", res.Lines)
	}
}

func TestReplaceUsage(t *testing.T) {
	h, _ := newTestHandler(t, HandlerConfig{})
	run(t, h, "/new")
	if _, err := h.Handle(context.Background(), "/replace onlyone"); !errors.Is(err, schema.ErrInvalidCommand) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestTabCommands(t *testing.T) {
	h, svc := newTestHandler(t, HandlerConfig{TitleWidth: 8})
	run(t, h, "/new")
	run(t, h, "/new a very long title indeed")
	run(t, h, "/new")
	res := run(t, h, "/tabs")
	if len(res.Lines) != 3 {
		t.Fatalf("expected 3 tab lines, got %v", res.Lines)
	}
	if !strings.HasPrefix(res.Lines[2], "* 3 Untitle… document_3.txt") {
		t.Fatalf("expected active marker on third tab, got %q", res.Lines[2])
	}
	if !strings.Contains(res.Lines[1], "a very …") {
		t.Fatalf("expected truncated title, got %q", res.Lines[1])
	}
	run(t, h, "/switch 1")
	active, _ := svc.ActiveTab(context.Background())
	if active.Index != 0 {
		t.Fatalf("expected first tab active, got %+v", active)
	}
	run(t, h, "/move 1 3")
	active, _ = svc.ActiveTab(context.Background())
	if active.Index != 2 {
		t.Fatalf("expected active tab moved to 3rd, got %+v", active)
	}
	res = run(t, h, "/close")
	if !strings.HasPrefix(res.Lines[0], "tab closed: Untitled 1") {
		t.Fatalf("unexpected close output %v", res.Lines)
	}
	if _, err := h.Handle(context.Background(), "/switch 0"); !errors.Is(err, schema.ErrInvalidCommand) {
		t.Fatalf("expected invalid tab number, got %v", err)
	}
	if _, err := h.Handle(context.Background(), "/switch 9"); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
}

func TestInsertDeleteUndoRedo(t *testing.T) {
	h, svc := newTestHandler(t, HandlerConfig{})
	run(t, h, "/new")
	run(t, h, `/insert 0 "hello world"`)
	run(t, h, "/delete 5 6")
	run(t, h, "/insert 5 !")
	doc, _ := svc.GetDocument(context.Background(), schema.GetDocumentRequest{})
	if doc.Document.Text != "hello!" {
		t.Fatalf("unexpected text %q", doc.Document.Text)
	}
	run(t, h, "/undo")
	run(t, h, "/undo")
	run(t, h, "/redo")
	doc, _ = svc.GetDocument(context.Background(), schema.GetDocumentRequest{})
	if doc.Document.Text != "hello" {
		t.Fatalf("unexpected text after undo/redo %q", doc.Document.Text)
	}
	run(t, h, "/redo")
	res := run(t, h, "/redo")
	if len(res.Lines) != 1 || res.Lines[0] != "nothing to redo" {
		t.Fatalf("expected nothing to redo, got %v", res.Lines)
	}
}

func TestUnknownAndQuit(t *testing.T) {
	h, _ := newTestHandler(t, HandlerConfig{})
	if _, err := h.Handle(context.Background(), "/frobnicate"); !errors.Is(err, schema.ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if _, err := h.Handle(context.Background(), "/"); !errors.Is(err, schema.ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand for empty command, got %v", err)
	}
	if res := run(t, h, "/quit"); !res.Quit {
		t.Fatalf("expected quit")
	}
	if res := run(t, h, "/help"); len(res.Lines) == 0 {
		t.Fatalf("expected help lines")
	}
}

func TestAuditLogging(t *testing.T) {
	tests := []struct {
		name    string
		disable bool
		want    int
	}{
		{name: "enabled", want: 1},
		{name: "disabled", disable: true, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			capture := &logCapture{}
			logger := pslog.NewWithOptions(capture, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, VerboseFields: true, MinLevel: pslog.DebugLevel})
			ctx := pslog.ContextWithLogger(context.Background(), logger)
			h, _ := newTestHandler(t, HandlerConfig{DisableAuditLogging: tc.disable})
			if _, err := h.Handle(ctx, "/new notes"); err != nil {
				t.Fatalf("new: %v", err)
			}
			var audits []map[string]any
			for _, entry := range capture.Entries(t) {
				if entry["message"] == "audit command" || entry["msg"] == "audit command" {
					audits = append(audits, entry)
				}
			}
			if len(audits) != tc.want {
				t.Fatalf("expected %d audit entries, got %d", tc.want, len(audits))
			}
			if tc.want > 0 && audits[0]["command"] != "/new notes" {
				t.Fatalf("unexpected audit command field: %v", audits[0]["command"])
			}
		})
	}
}

type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *logCapture) Entries(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(c.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}
