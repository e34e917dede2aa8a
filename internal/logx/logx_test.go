package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/schema"
)

func TestWithFileAddsField(t *testing.T) {
	capture := &logCapture{}
	logger := newTestLogger(capture)
	log := WithFile(logger, "notes.txt")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["file"] != "notes.txt" {
		t.Fatalf("expected file field, got %+v", entry)
	}
}

func TestWithFileSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	logger := newTestLogger(capture)
	WithFile(logger, "").Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["file"]; ok {
		t.Fatalf("did not expect file field, got %+v", entry)
	}
}

func TestWithTabAddsField(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newTestLogger(capture))
	WithTab(ctx, "tab1").Info("hello")

	entry := capture.firstEntry(t)
	if entry["tab"] != "tab1" {
		t.Fatalf("expected tab field, got %+v", entry)
	}
}

func TestWithTabDeduplicatesContextMarker(t *testing.T) {
	capture := &logCapture{}
	logger := newTestLogger(capture)
	tabLog := logger.With("tab", "tab1")
	ctx := ContextWithTabLogger(context.Background(), tabLog, "tab1")
	WithTab(ctx, "tab1").Info("hello")

	line := capture.buf.String()
	if n := bytes.Count([]byte(line), []byte(`"tab"`)); n != 1 {
		t.Fatalf("expected a single tab field, got %d in %s", n, line)
	}
}

func TestCopyContextFields(t *testing.T) {
	src := ContextWithTab(context.Background(), "tab9")
	dst := CopyContextFields(context.Background(), src)
	if got, _ := dst.Value(tabKey).(schema.TabID); got != "tab9" {
		t.Fatalf("expected tab marker to be copied, got %q", got)
	}
}

func newTestLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
