package backend

import (
	"context"
	"errors"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/internal/protocol"
	"pkt.systems/tabedit/schema"
)

// Transport delivers one encoded command and returns the raw response.
type Transport interface {
	Do(ctx context.Context, command string) (string, error)
	Close() error
}

// Client speaks the store command protocol. It is safe for sequential use;
// the worker transport additionally serializes concurrent callers.
type Client struct {
	cfg       Config
	transport Transport
}

// NewClient constructs a client with the transport selected by cfg.Mode.
func NewClient(cfg Config) (*Client, error) {
	normalized, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	var transport Transport
	switch normalized.Mode {
	case ModeWorker:
		transport = NewWorkerTransport(normalized)
	default:
		transport = NewExecTransport(normalized)
	}
	return &Client{cfg: normalized, transport: transport}, nil
}

// NewClientWithTransport constructs a client over a caller-supplied transport.
func NewClientWithTransport(cfg Config, transport Transport) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = schema.DefaultCommandTimeout
	}
	return &Client{cfg: cfg, transport: transport}
}

// Timeout returns the per-command bound.
func (c *Client) Timeout() time.Duration {
	return c.cfg.Timeout
}

// Invoke sends one raw command and returns the trimmed response.
func (c *Client) Invoke(ctx context.Context, command string) (string, error) {
	raw, err := c.do(ctx, "raw", command)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// Save upserts content under filename.
func (c *Client) Save(ctx context.Context, filename schema.Filename, content string) (string, error) {
	cmd, err := protocol.Save(filename, content)
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, string(cmd.Verb), cmd.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// Search reports whether the store found word.
func (c *Client) Search(ctx context.Context, word string) (bool, string, error) {
	cmd, err := protocol.Search(word)
	if err != nil {
		return false, "", err
	}
	raw, err := c.do(ctx, string(cmd.Verb), cmd.String())
	if err != nil {
		return false, "", err
	}
	resp := strings.TrimSpace(raw)
	return !protocol.IsNotFound(resp), resp, nil
}

// Load returns the stored content for filename. The response is returned
// untrimmed so it can be compared with a buffer exactly.
func (c *Client) Load(ctx context.Context, filename schema.Filename) (string, error) {
	cmd, err := protocol.Load(filename)
	if err != nil {
		return "", err
	}
	return c.do(ctx, string(cmd.Verb), cmd.String())
}

// Close releases the transport.
func (c *Client) Close() error {
	if c == nil || c.transport == nil {
		return nil
	}
	return c.transport.Close()
}

func (c *Client) do(ctx context.Context, verb, command string) (string, error) {
	if ctx == nil {
		return "", errors.New("missing context")
	}
	log := pslog.Ctx(ctx).With("verb", verb)
	if !c.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", "store", "command_len", len(command), "mode", c.cfg.Mode)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	started := time.Now()
	raw, err := c.transport.Do(callCtx, command)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, schema.ErrTimeout) {
			err = classify(callCtx, err)
		}
		log.Warn("backend command failed", "err", err, "duration_ms", time.Since(started).Milliseconds())
		return "", err
	}
	log.Trace("backend command ok", "response_len", len(raw), "duration_ms", time.Since(started).Milliseconds())
	return raw, nil
}
