package core

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/schema"
)

func TestSyncAuditLog(t *testing.T) {
	for _, disabled := range []bool{false, true} {
		capture := newLogCapture(t)
		logger := pslog.NewWithOptions(capture, pslog.Options{
			Mode:          pslog.ModeStructured,
			NoColor:       true,
			VerboseFields: true,
			MinLevel:      pslog.DebugLevel,
		})
		ctx := pslog.ContextWithLogger(context.Background(), logger)
		svc, err := NewService(schema.ServiceConfig{DisableAuditLogging: disabled}, ServiceDeps{
			Store:  newFakeStore(),
			Logger: logger,
		})
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		tab, err := svc.CreateTab(ctx, schema.CreateTabRequest{Content: "hello"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := svc.Save(ctx, schema.SaveRequest{TabID: tab.Tab.ID}); err != nil {
			t.Fatalf("save: %v", err)
		}
		found := false
		for _, entry := range capture.Entries() {
			if entry.Level == "debug" && entry.Message == "audit sync" {
				found = true
				if entry.Fields["action"] != "save" || entry.Fields["tab"] != string(tab.Tab.ID) {
					t.Fatalf("unexpected audit fields: %v", entry.Fields)
				}
			}
		}
		if found == disabled {
			t.Fatalf("audit entry present=%v with disabled=%v", found, disabled)
		}
	}
}

type logEntry struct {
	Level   string
	Message string
	Fields  map[string]any
	Raw     string
}

type logCapture struct {
	t     *testing.T
	mu    sync.Mutex
	buf   bytes.Buffer
	lines []string
}

func newLogCapture(t *testing.T) *logCapture {
	t.Helper()
	return &logCapture{t: t}
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.buf.Write(p)
	for {
		data := c.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		c.lines = append(c.lines, string(data[:idx]))
		c.buf.Next(idx + 1)
	}
	return len(p), nil
}

func (c *logCapture) Entries() []logEntry {
	c.mu.Lock()
	lines := append([]string(nil), c.lines...)
	c.mu.Unlock()
	entries := make([]logEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, parseLogEntry(line))
	}
	return entries
}

func parseLogEntry(line string) logEntry {
	payload := map[string]any{}
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return logEntry{Raw: line}
	}
	level, _ := payload["level"].(string)
	if level == "" {
		level, _ = payload["lvl"].(string)
	}
	message, _ := payload["message"].(string)
	if message == "" {
		message, _ = payload["msg"].(string)
	}
	return logEntry{Level: level, Message: message, Fields: payload, Raw: line}
}
