package core

import "pkt.systems/tabedit/schema"

// EventSink receives tab, status and render events from the core service.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
	OnStatus(event schema.StatusEvent)
	OnRender(event schema.RenderEvent)
}
