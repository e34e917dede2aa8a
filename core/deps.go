package core

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/schema"
)

// StoreClient is the command protocol surface the session needs from the
// external store service. backend.Client implements it.
type StoreClient interface {
	Save(ctx context.Context, filename schema.Filename, content string) (string, error)
	Search(ctx context.Context, word string) (found bool, response string, err error)
	Load(ctx context.Context, filename schema.Filename) (string, error)
}

// ServiceDeps captures dependencies for the core service. Store is required.
type ServiceDeps struct {
	Store     StoreClient
	Renderer  Renderer
	EventSink EventSink
	Logger    pslog.Logger
}
