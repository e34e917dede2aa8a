package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/internal/backend"
	"pkt.systems/tabedit/internal/protocol"
)

const cmdHelperEnv = "TABEDIT_CMD_STORE_HELPER"

func TestMain(m *testing.M) {
	if os.Getenv(cmdHelperEnv) != "" {
		root := newRootCmd()
		root.SetArgs(append([]string{"store-mock"}, os.Args[1:]...))
		if err := root.Execute(); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runOnce(t *testing.T, opts storeMockOptions, command string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := runStoreMockOnce(opts, strings.NewReader(command+"\n"), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestStoreMockOnce(t *testing.T) {
	opts := storeMockOptions{dataDir: t.TempDir()}
	out, _, err := runOnce(t, opts, "save:notes.txt::alpha: beta\ngamma\n")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if out != "Saved to notes.txt." {
		t.Fatalf("unexpected save reply %q", out)
	}
	out, _, err = runOnce(t, opts, "load:notes.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out != "alpha: beta\ngamma\n" {
		t.Fatalf("unexpected load reply %q", out)
	}
	out, _, err = runOnce(t, opts, "search:gamma")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "[HIGHLIGHT]gamma[/HIGHLIGHT]") {
		t.Fatalf("unexpected search reply %q", out)
	}
	out, _, err = runOnce(t, opts, "search:Gamma")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out != protocol.NotFoundMarker {
		t.Fatalf("expected case-sensitive miss, got %q", out)
	}
}

func TestStoreMockOnceErrors(t *testing.T) {
	opts := storeMockOptions{dataDir: t.TempDir()}
	if _, stderr, err := runOnce(t, opts, "load:absent.txt"); err == nil || !strings.Contains(stderr, "no record") {
		t.Fatalf("expected load miss on stderr, got err=%v stderr=%q", err, stderr)
	}
	if _, stderr, err := runOnce(t, opts, "frobnicate"); err == nil || stderr == "" {
		t.Fatalf("expected parse error on stderr, got err=%v stderr=%q", err, stderr)
	}
	opts.fail = "disk full"
	if _, stderr, err := runOnce(t, opts, "search:x"); err == nil || !strings.Contains(stderr, "disk full") {
		t.Fatalf("expected forced failure, got err=%v stderr=%q", err, stderr)
	}
}

func TestStoreMockServer(t *testing.T) {
	var input bytes.Buffer
	for _, cmd := range []string{"save:a.txt::one\ntwo", "load:a.txt", "load:missing.txt"} {
		if err := protocol.WriteFrame(&input, []byte(cmd)); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	var output bytes.Buffer
	opts := storeMockOptions{dataDir: t.TempDir()}
	if err := runStoreMockServer(context.Background(), opts, &input, &output); err != nil {
		t.Fatalf("serve: %v", err)
	}
	reader := bufio.NewReader(&output)
	want := []protocol.Reply{
		{OK: true, Body: "Saved to a.txt."},
		{OK: true, Body: "one\ntwo"},
		{OK: false, Body: "no record for missing.txt"},
	}
	for i, w := range want {
		payload, err := protocol.ReadFrame(reader)
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		got, err := protocol.DecodeReply(payload)
		if err != nil {
			t.Fatalf("decode reply %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("reply %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestResolveStoreDir(t *testing.T) {
	t.Setenv(storeDirEnv, "/env/dir")
	if got, _ := resolveStoreDir(" /flag/dir "); got != "/flag/dir" {
		t.Fatalf("expected flag to win, got %q", got)
	}
	if got, _ := resolveStoreDir(""); got != "/env/dir" {
		t.Fatalf("expected env dir, got %q", got)
	}
}

func TestDoctorChecksAgainstStoreMock(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	for _, mode := range []backend.Mode{backend.ModeExec, backend.ModeWorker} {
		t.Run(string(mode), func(t *testing.T) {
			client, err := backend.NewClient(backend.Config{
				BinaryPath: exe,
				Env:        []string{cmdHelperEnv + "=1", storeDirEnv + "=" + t.TempDir()},
				Timeout:    10 * time.Second,
				Mode:       mode,
			})
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			defer func() { _ = client.Close() }()
			if err := runDoctorChecks(context.Background(), pslog.Ctx(context.Background()), client); err != nil {
				t.Fatalf("doctor checks: %v", err)
			}
		})
	}
}
