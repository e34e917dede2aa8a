package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"
	"pkt.systems/tabedit"
	"pkt.systems/tabedit/internal/appconfig"
	"pkt.systems/tabedit/internal/backend"
	"pkt.systems/tabedit/internal/command"
	"pkt.systems/tabedit/internal/eventbus"
	"pkt.systems/tabedit/schema"
)

const defaultStoreBinary = "tabedit-store"

func newEditCmd() *cobra.Command {
	var cfgPath string
	var mode string
	var renderer string
	var disableAuditTrails bool
	cmd := &cobra.Command{
		Use:   "edit [file...]",
		Short: "Start an interactive editing session",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Backend.Mode = mode
			}
			if renderer != "" {
				cfg.Session.Renderer = renderer
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			if err := appconfig.Validate(cfg); err != nil {
				return err
			}
			backendCfg, err := backendConfig(cfg)
			if err != nil {
				return err
			}
			logger.Info("edit backend selected", "binary", backendCfg.BinaryPath, "mode", backendCfg.Mode, "timeout", backendCfg.Timeout)

			out := cmd.OutOrStdout()
			editor, err := tabedit.NewEditor(tabedit.EditorConfig{
				Service:             schema.ServiceConfig{HistoryMax: cfg.Session.HistoryMax},
				Backend:             backendCfg,
				Renderer:            cfg.Session.Renderer,
				TitleWidth:          cfg.Session.TitleWidth,
				DisableAuditLogging: cfg.Logging.DisableAuditTrails,
			}, tabedit.EditorDeps{Logger: logger})
			if err != nil {
				return err
			}
			events, unsubscribe := editor.Bus.Subscribe(eventbus.AllTabs)
			defer unsubscribe()
			console := newConsoleSink(out, events)
			defer func() {
				if err := editor.Close(); err != nil {
					logger.Warn("edit backend close failed", "err", err)
				}
			}()

			initial := make([]string, 0, len(args)+1)
			for _, path := range args {
				initial = append(initial, "/open "+path)
			}
			if len(initial) == 0 {
				initial = append(initial, "/new")
			}
			for _, line := range initial {
				_, err := editor.Handle(cmd.Context(), line)
				console.drain()
				if err != nil {
					console.reportError(err)
				}
			}
			return runREPL(cmd.Context(), editor, console, cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&mode, "mode", "", "backend mode override (exec or worker)")
	cmd.Flags().StringVar(&renderer, "renderer", "", "search renderer override (html or marker)")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	return cmd
}

// backendConfig maps config onto the client. When the default store binary
// is not installed, this executable serves as the store through store-mock.
func backendConfig(cfg appconfig.Config) (backend.Config, error) {
	binary := cfg.Backend.Binary
	args := append([]string(nil), cfg.Backend.Args...)
	if binary == defaultStoreBinary {
		if _, err := exec.LookPath(binary); err != nil {
			self, err := os.Executable()
			if err != nil {
				return backend.Config{}, err
			}
			binary = self
			args = append([]string{"store-mock"}, args...)
		}
	}
	env := cfg.Backend.EnvList()
	if cfg.Backend.DataDir != "" {
		if _, ok := cfg.Backend.Env[storeDirEnv]; !ok {
			env = append(env, storeDirEnv+"="+cfg.Backend.DataDir)
		}
	}
	return backend.Config{
		BinaryPath:          binary,
		Args:                args,
		Env:                 env,
		Timeout:             cfg.Backend.Timeout(),
		Mode:                backend.Mode(cfg.Backend.Mode),
		DisableAuditLogging: cfg.Logging.DisableAuditTrails,
	}, nil
}

type lineHandler interface {
	Handle(ctx context.Context, input string) (command.Result, error)
}

func runREPL(ctx context.Context, editor lineHandler, console *consoleSink, in io.Reader, out io.Writer) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for {
		if interactive {
			console.prompt()
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		res, err := editor.Handle(ctx, scanner.Text())
		console.drain()
		if err != nil {
			console.reportError(err)
			continue
		}
		console.printLines(res.Lines)
		if res.Quit {
			return nil
		}
	}
}

// consoleSink prints session events and command output to the terminal.
// Events arrive from an event bus subscription and are drained after each
// handled line, so status output precedes the command's own output.
type consoleSink struct {
	mu         sync.Mutex
	out        io.Writer
	events     <-chan eventbus.Event
	errorShown bool
	active     schema.TabTitle
}

func newConsoleSink(out io.Writer, events <-chan eventbus.Event) *consoleSink {
	return &consoleSink{out: out, events: events}
}

// drain dispatches every event queued on the subscription.
func (c *consoleSink) drain() {
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			switch ev.Type {
			case eventbus.EventTab:
				c.OnTabEvent(ev.Tab)
			case eventbus.EventStatus:
				c.OnStatus(ev.Status)
			}
		default:
			return
		}
	}
}

func (c *consoleSink) OnTabEvent(event schema.TabEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case event.Type == schema.TabEventClosed:
		if event.Tab.Title == c.active {
			c.active = ""
		}
	case event.Tab.Active:
		c.active = event.Tab.Title
	}
}

func (c *consoleSink) OnStatus(event schema.StatusEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch event.Level {
	case schema.StatusError:
		c.errorShown = true
		_, _ = fmt.Fprintf(c.out, "! %s: %s\n", event.Title, event.Message)
	case schema.StatusNotice:
		_, _ = fmt.Fprintf(c.out, "[%s] %s\n", event.Title, event.Message)
	default:
		_, _ = fmt.Fprintf(c.out, "-- %s\n", event.Message)
	}
}

// reportError prints err unless an error status already described it.
func (c *consoleSink) reportError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	shown := c.errorShown
	c.errorShown = false
	if shown && !errors.Is(err, schema.ErrInvalidCommand) {
		return
	}
	_, _ = fmt.Fprintf(c.out, "error: %v\n", err)
}

func (c *consoleSink) printLines(lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorShown = false
	if len(lines) > 0 {
		_, _ = fmt.Fprintln(c.out, strings.Join(lines, "\n"))
	}
}

func (c *consoleSink) prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorShown = false
	title := string(c.active)
	if title == "" {
		title = "-"
	}
	_, _ = fmt.Fprintf(c.out, "%s> ", title)
}
