package core

import (
	"context"

	"pkt.systems/tabedit/schema"
)

// Service is the presentation-agnostic API of a document session: a registry
// of tabs, each kept in sync with the external store.
type Service interface {
	CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	ActiveTab(ctx context.Context) (schema.TabSnapshot, bool)
	ActivateTab(ctx context.Context, req schema.ActivateTabRequest) (schema.ActivateTabResponse, error)
	ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error)
	RenameTabDisplay(ctx context.Context, req schema.RenameTabRequest) (schema.RenameTabResponse, error)
	MoveTab(ctx context.Context, req schema.MoveTabRequest) (schema.MoveTabResponse, error)
	OpenFile(ctx context.Context, req schema.OpenFileRequest) (schema.OpenFileResponse, error)

	GetDocument(ctx context.Context, req schema.GetDocumentRequest) (schema.GetDocumentResponse, error)
	Edit(ctx context.Context, req schema.EditRequest) (schema.EditResponse, error)
	Save(ctx context.Context, req schema.SaveRequest) (schema.SaveResponse, error)
	Search(ctx context.Context, req schema.SearchRequest) (schema.SearchResponse, error)
	Replace(ctx context.Context, req schema.ReplaceRequest) (schema.ReplaceResponse, error)
	Undo(ctx context.Context, req schema.UndoRequest) (schema.UndoResponse, error)
	Redo(ctx context.Context, req schema.RedoRequest) (schema.RedoResponse, error)
	Verify(ctx context.Context, req schema.VerifyRequest) (schema.VerifyResponse, error)
}
