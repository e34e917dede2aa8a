package schema

// Tab lifecycle.

// CreateTabRequest describes a request to create a tab. Empty fields are
// filled from the session's naming counter.
type CreateTabRequest struct {
	Title    TabTitle
	Content  string
	Filename Filename
}

// CreateTabResponse reports the created tab.
type CreateTabResponse struct {
	Tab TabSnapshot
}

// CloseTabRequest describes a request to close the tab at Index.
type CloseTabRequest struct {
	Index int
}

// CloseTabResponse reports the closed tab snapshot.
type CloseTabResponse struct {
	Tab TabSnapshot
}

// ListTabsRequest describes a request to list tabs.
type ListTabsRequest struct{}

// ListTabsResponse reports tabs in display order and the active index (-1 if none).
type ListTabsResponse struct {
	Tabs        []TabSnapshot
	ActiveIndex int
}

// ActivateTabRequest describes a request to activate the tab at Index.
type ActivateTabRequest struct {
	Index int
}

// ActivateTabResponse reports the activated tab snapshot.
type ActivateTabResponse struct {
	Tab TabSnapshot
}

// RenameTabRequest changes a tab's display title to the base name of Basename.
type RenameTabRequest struct {
	Index    int
	Basename string
}

// RenameTabResponse reports the renamed tab.
type RenameTabResponse struct {
	Tab TabSnapshot
}

// MoveTabRequest moves the tab at From to position To.
type MoveTabRequest struct {
	From int
	To   int
}

// MoveTabResponse reports the moved tab.
type MoveTabResponse struct {
	Tab TabSnapshot
}

// OpenFileRequest opens a UTF-8 file from disk into a new tab.
type OpenFileRequest struct {
	Path string
}

// OpenFileResponse reports the tab created for the file.
type OpenFileResponse struct {
	Tab TabSnapshot
}

// Document operations. A zero TabID targets the active tab.

// GetDocumentRequest asks for a tab's current text.
type GetDocumentRequest struct {
	TabID TabID
}

// GetDocumentResponse carries the tab text.
type GetDocumentResponse struct {
	Document DocumentSnapshot
}

// EditRequest applies a local text-input edit.
type EditRequest struct {
	TabID  TabID
	Op     EditOp
	Pos    int
	Text   string
	Length int
}

// EditResponse reports the tab after the edit.
type EditResponse struct {
	Tab TabSnapshot
}

// SaveRequest pushes a tab's full buffer to the store.
type SaveRequest struct {
	TabID TabID
}

// SaveResponse reports the saved tab and the raw service response.
type SaveResponse struct {
	Tab      TabSnapshot
	Response string
}

// SearchRequest highlights every case-insensitive occurrence of Term.
type SearchRequest struct {
	TabID TabID
	Term  string
}

// SearchResponse reports matches and the highlighted rendering. When Found
// is false, Rendering is the plain buffer text.
type SearchResponse struct {
	Tab       TabSnapshot
	Found     bool
	Spans     []Span
	Rendering string
}

// ReplaceRequest replaces every case-sensitive occurrence of Old with New.
type ReplaceRequest struct {
	TabID TabID
	Old   string
	New   string
}

// ReplaceResponse reports the replacement count.
type ReplaceResponse struct {
	Tab   TabSnapshot
	Count int
}

// UndoRequest reverts the most recent edit.
type UndoRequest struct {
	TabID TabID
}

// UndoResponse reports whether the buffer changed.
type UndoResponse struct {
	Tab     TabSnapshot
	Mutated bool
}

// RedoRequest reapplies the most recently undone edit.
type RedoRequest struct {
	TabID TabID
}

// RedoResponse reports whether the buffer changed.
type RedoResponse struct {
	Tab     TabSnapshot
	Mutated bool
}

// VerifyRequest compares a tab's buffer with its store record.
type VerifyRequest struct {
	TabID TabID
}

// VerifyResponse reports whether the store record matches the buffer.
type VerifyResponse struct {
	Tab     TabSnapshot
	InSync  bool
	Stored  string
	Current string
}
