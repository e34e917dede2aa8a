package schema

// TabSnapshot is a read-only view of tab state for presentation surfaces.
type TabSnapshot struct {
	ID       TabID
	Index    int
	Title    TabTitle
	Filename Filename
	State    SyncState
	Active   bool
	Length   int
	CanUndo  bool
	CanRedo  bool
}

// DocumentSnapshot carries a tab's full text.
type DocumentSnapshot struct {
	Tab  TabSnapshot
	Text string
}
