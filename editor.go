// Package tabedit composes the document session core with the store
// service client, the event bus and the console command handler.
package tabedit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/core"
	"pkt.systems/tabedit/internal/backend"
	"pkt.systems/tabedit/internal/command"
	"pkt.systems/tabedit/internal/eventbus"
	"pkt.systems/tabedit/internal/format"
	"pkt.systems/tabedit/schema"
)

// EditorConfig configures the compositor.
type EditorConfig struct {
	Service schema.ServiceConfig
	Backend backend.Config
	// Renderer names the search highlight renderer ("html" or "marker").
	Renderer   string
	TitleWidth int
	// DisableAuditLogging disables audit trail debug logs in every layer.
	DisableAuditLogging bool
}

// EditorDeps captures optional dependencies. When Store is nil a
// backend.Client is built from EditorConfig.Backend and owned by the editor.
// Presentation surfaces receive session events by subscribing to Editor.Bus.
type EditorDeps struct {
	Store  core.StoreClient
	Logger pslog.Logger
}

// Editor is a running document session: the core service, its event bus
// and the command handler wired together.
type Editor struct {
	Service core.Service
	Handler *command.Handler
	Bus     *eventbus.Bus

	client    *backend.Client
	closeOnce sync.Once
	closeErr  error
}

// NewEditor constructs an editor.
func NewEditor(cfg EditorConfig, deps EditorDeps) (*Editor, error) {
	renderer, ok := format.ByName(cfg.Renderer)
	if !ok {
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}
	cfg.Service = schema.NormalizeServiceConfig(cfg.Service)
	if cfg.DisableAuditLogging {
		cfg.Service.DisableAuditLogging = true
		cfg.Backend.DisableAuditLogging = true
	}

	editor := &Editor{}
	store := deps.Store
	if store == nil {
		client, err := backend.NewClient(cfg.Backend)
		if err != nil {
			return nil, err
		}
		editor.client = client
		store = client
	}

	editor.Bus = eventbus.New(deps.Logger)

	service, err := core.NewService(cfg.Service, core.ServiceDeps{
		Store:     store,
		Renderer:  renderer,
		EventSink: editor.Bus,
		Logger:    deps.Logger,
	})
	if err != nil {
		_ = editor.closeClient()
		return nil, err
	}
	editor.Service = service
	editor.Handler = command.NewHandler(service, command.HandlerConfig{
		TitleWidth:          cfg.TitleWidth,
		DisableAuditLogging: cfg.DisableAuditLogging,
	})
	return editor, nil
}

// Handle runs one line of console input through the command handler.
func (e *Editor) Handle(ctx context.Context, input string) (command.Result, error) {
	if e == nil || e.Handler == nil {
		return command.Result{}, errors.New("editor not initialized")
	}
	return e.Handler.Handle(ctx, input)
}

// Close releases the store client when the editor owns it. It is safe to
// call more than once.
func (e *Editor) Close() error {
	if e == nil {
		return nil
	}
	e.closeOnce.Do(func() {
		e.closeErr = e.closeClient()
	})
	return e.closeErr
}

func (e *Editor) closeClient() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
