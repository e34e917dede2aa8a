package schema

// TabID identifies a tab for its whole lifetime.
type TabID string

// TabTitle is the user-facing label of a tab.
type TabTitle string

// Filename is the key under which the external store keeps a tab's content.
type Filename string

// SyncState records whether a tab's buffer may differ from its store record.
type SyncState string

const (
	// SyncClean indicates the store record matches the buffer.
	SyncClean SyncState = "clean"
	// SyncDirty indicates local edits have not been pushed yet.
	SyncDirty SyncState = "dirty"
)

// EditOp identifies a local text-input edit.
type EditOp string

const (
	// EditInsert inserts text at a rune position.
	EditInsert EditOp = "insert"
	// EditDelete removes a rune range.
	EditDelete EditOp = "delete"
)

// Span is a half-open [Start, End) range of rune offsets.
type Span struct {
	Start int
	End   int
}

// Len returns the number of runes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}
