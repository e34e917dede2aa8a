package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/internal/protocol"
)

// WorkerTransport keeps one service process alive and exchanges
// length-prefixed frames with it over stdio. Requests are serialized. A
// timeout or a broken pipe kills the worker; the next command restarts it.
type WorkerTransport struct {
	cfg Config

	mu   sync.Mutex
	proc *workerProc
}

type workerProc struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	exited  chan struct{}
	started time.Time
}

type workerResult struct {
	reply protocol.Reply
	err   error
}

// NewWorkerTransport constructs a persistent worker transport. The process
// is started lazily by the first command.
func NewWorkerTransport(cfg Config) *WorkerTransport {
	return &WorkerTransport{cfg: cfg}
}

// Do sends one command to the worker and returns the reply body. A worker
// that was reused from an earlier command and turns out to be gone is
// restarted and the command is sent once more.
func (t *WorkerTransport) Do(ctx context.Context, command string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	log := pslog.Ctx(ctx)

	prev := t.proc
	proc, err := t.ensureStartedLocked(log)
	if err != nil {
		return "", err
	}
	reused := prev != nil && prev == proc
	reply, err := t.roundTripLocked(ctx, log, proc, command)
	if err != nil && reused && ctx.Err() == nil && isWorkerGone(err) {
		log.Warn("backend worker gone; restarting", "err", err)
		proc, err = t.ensureStartedLocked(log)
		if err != nil {
			return "", err
		}
		reply, err = t.roundTripLocked(ctx, log, proc, command)
	}
	if err != nil {
		return "", err
	}
	if !reply.OK {
		return "", &ServiceError{Stderr: reply.Body}
	}
	return reply.Body, nil
}

// roundTripLocked exchanges one frame pair with proc. Any failure stops the
// worker; the returned error keeps the underlying cause for isWorkerGone.
func (t *WorkerTransport) roundTripLocked(ctx context.Context, log pslog.Logger, proc *workerProc, command string) (protocol.Reply, error) {
	results := make(chan workerResult, 1)
	go func() {
		if err := protocol.WriteFrame(proc.stdin, []byte(command)); err != nil {
			results <- workerResult{err: err}
			return
		}
		payload, err := protocol.ReadFrame(proc.stdout)
		if err != nil {
			results <- workerResult{err: err}
			return
		}
		reply, err := protocol.DecodeReply(payload)
		results <- workerResult{reply: reply, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Warn("backend worker request aborted", "err", ctx.Err())
		t.stopLocked(log)
		return protocol.Reply{}, classify(ctx, ctx.Err())
	case res := <-results:
		if res.err != nil {
			log.Warn("backend worker request failed", "err", res.err)
			t.stopLocked(log)
			if errors.Is(res.err, io.EOF) || errors.Is(res.err, io.ErrUnexpectedEOF) {
				return protocol.Reply{}, classify(ctx, fmt.Errorf("worker exited: %w", res.err))
			}
			return protocol.Reply{}, classify(ctx, res.err)
		}
		return res.reply, nil
	}
}

// isWorkerGone reports whether err means the worker process had already
// exited when the command was sent.
func isWorkerGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE)
}

// Close stops the worker if it is running.
func (t *WorkerTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(pslog.Ctx(context.Background()))
	return nil
}

func (t *WorkerTransport) ensureStartedLocked(log pslog.Logger) (*workerProc, error) {
	if t.proc != nil {
		select {
		case <-t.proc.exited:
			log.Warn("backend worker exited; restarting", "uptime_ms", time.Since(t.proc.started).Milliseconds())
			t.proc = nil
		default:
			return t.proc, nil
		}
	}
	binary, err := resolveBinary(t.cfg.BinaryPath)
	if err != nil {
		return nil, err
	}
	args := append(append([]string(nil), t.cfg.Args...), WorkerFlag)
	cmd := exec.Command(binary, args...)
	setpgid(cmd)
	cmd.Env = append(cmd.Env, os.Environ()...)
	if len(t.cfg.Env) > 0 {
		cmd.Env = append(cmd.Env, t.cfg.Env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, classify(context.Background(), err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, classify(context.Background(), err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, classify(context.Background(), err)
	}
	if err := cmd.Start(); err != nil {
		log.Error("backend worker start failed", "err", err)
		return nil, classify(context.Background(), err)
	}
	proc := &workerProc{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReader(stdout),
		exited:  make(chan struct{}),
		started: time.Now(),
	}
	log.Info("backend worker started", "pid", cmd.Process.Pid, "binary", binary)
	go drainStderr(log, stderr)
	go func() {
		err := cmd.Wait()
		if err != nil {
			log.Debug("backend worker finished", "err", err)
		} else {
			log.Debug("backend worker finished")
		}
		close(proc.exited)
	}()
	t.proc = proc
	return proc, nil
}

func (t *WorkerTransport) stopLocked(log pslog.Logger) {
	proc := t.proc
	if proc == nil {
		return
	}
	t.proc = nil
	_ = proc.stdin.Close()
	select {
	case <-proc.exited:
		return
	case <-time.After(pipeGrace):
	}
	kill(proc.cmd)
	<-proc.exited
	log.Info("backend worker stopped", "uptime_ms", time.Since(proc.started).Milliseconds())
}

func drainStderr(log pslog.Logger, reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		preview := previewText(text, 200)
		log.Debug("backend worker stderr", "text_len", len(text), "preview", preview, "truncated", len(preview) < len(text))
	}
}

func previewText(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
