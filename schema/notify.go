package schema

// TabEventType describes tab lifecycle or state changes.
type TabEventType string

const (
	// TabEventCreated indicates a tab was created.
	TabEventCreated TabEventType = "created"
	// TabEventClosed indicates a tab was closed.
	TabEventClosed TabEventType = "closed"
	// TabEventActivated indicates a tab became active.
	TabEventActivated TabEventType = "activated"
	// TabEventRenamed indicates a tab title changed.
	TabEventRenamed TabEventType = "renamed"
	// TabEventMoved indicates a tab changed position.
	TabEventMoved TabEventType = "moved"
	// TabEventSynced indicates a tab's sync state changed.
	TabEventSynced TabEventType = "synced"
)

// TabEvent represents a change to a tab or the tab list.
type TabEvent struct {
	Type        TabEventType
	Tab         TabSnapshot
	ActiveIndex int
}

// StatusLevel classifies status messages for the presentation surface.
type StatusLevel string

const (
	// StatusInfo is a transient status bar message.
	StatusInfo StatusLevel = "info"
	// StatusNotice is an informational modal notification.
	StatusNotice StatusLevel = "notice"
	// StatusError is a blocking error notification.
	StatusError StatusLevel = "error"
)

// StatusEvent is a message for the status bar or a modal prompt.
type StatusEvent struct {
	TabID   TabID
	Level   StatusLevel
	Title   string
	Message string
}

// RenderEvent replaces what a tab displays. Highlighted renderings are
// transient and never alter the stored text.
type RenderEvent struct {
	TabID       TabID
	Text        string
	Highlighted bool
}
