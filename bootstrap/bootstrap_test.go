package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/tabedit/internal/appconfig"
)

func TestWriteBootstrapLayout(t *testing.T) {
	outputDir := t.TempDir()
	exe := filepath.Join(t.TempDir(), "tabedit")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write fake executable: %v", err)
	}
	paths, err := WriteBootstrap(outputDir, false, Options{Executable: exe})
	if err != nil {
		t.Fatalf("WriteBootstrap: %v", err)
	}
	if target, err := os.Readlink(paths.BinPath); err != nil || target != exe {
		t.Fatalf("expected %s -> %s, got %q (%v)", paths.BinPath, exe, target, err)
	}
	if info, err := os.Stat(paths.DataDir); err != nil || !info.IsDir() {
		t.Fatalf("expected data dir at %s: %v", paths.DataDir, err)
	}
	cfg, err := appconfig.Load(paths.ConfigPath)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Backend.Binary != paths.BinPath || cfg.Backend.DataDir != paths.DataDir {
		t.Fatalf("unexpected backend config %+v", cfg.Backend)
	}
	if _, err := WriteBootstrap(outputDir, false, Options{Executable: exe}); err == nil {
		t.Fatalf("expected existing config to be rejected")
	}
	if _, err := WriteBootstrap(outputDir, true, Options{Executable: exe}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestWriteBootstrapOverrides(t *testing.T) {
	outputDir := t.TempDir()
	var overrides []ConfigOverride
	for _, raw := range []string{"backend.mode=worker", "backend.timeout_seconds=3", "session.renderer=html"} {
		override, err := ParseOverride(raw)
		if err != nil {
			t.Fatalf("ParseOverride(%q): %v", raw, err)
		}
		overrides = append(overrides, override)
	}
	paths, err := WriteBootstrap(outputDir, false, Options{SkipStoreLink: true, Overrides: overrides})
	if err != nil {
		t.Fatalf("WriteBootstrap: %v", err)
	}
	if paths.BinPath != "" {
		t.Fatalf("expected no store link, got %q", paths.BinPath)
	}
	cfg, err := appconfig.Load(paths.ConfigPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Mode != "worker" || cfg.Backend.TimeoutSeconds != 3 || cfg.Session.Renderer != "html" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestWriteBootstrapRejectsInvalidOverride(t *testing.T) {
	override, err := ParseOverride("backend.mode=socket")
	if err != nil {
		t.Fatalf("ParseOverride: %v", err)
	}
	_, err = WriteBootstrap(t.TempDir(), false, Options{SkipStoreLink: true, Overrides: []ConfigOverride{override}})
	if err == nil || !strings.Contains(err.Error(), "backend.mode") {
		t.Fatalf("expected mode validation error, got %v", err)
	}
}

func TestParseOverrideRejectsMissingValue(t *testing.T) {
	if _, err := ParseOverride("backend.mode"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSetOverrideValueNested(t *testing.T) {
	root := map[string]any{"backend": map[string]any{"mode": "exec"}}
	if err := setOverrideValue(root, "backend.env.FOO", "bar"); err != nil {
		t.Fatalf("setOverrideValue: %v", err)
	}
	env, ok := root["backend"].(map[string]any)["env"].(map[string]any)
	if !ok || env["FOO"] != "bar" {
		t.Fatalf("unexpected tree %v", root)
	}
	if err := setOverrideValue(root, "backend.mode.deep", 1); err == nil {
		t.Fatalf("expected error descending into a scalar")
	}
}
