// Package eventbus fans core session events out to presentation
// subscribers over buffered channels.
package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventTab carries tab lifecycle updates.
	EventTab EventType = "tab"
	// EventStatus carries status bar and notification messages.
	EventStatus EventType = "status"
	// EventRender carries replacement display text for a tab.
	EventRender EventType = "render"
)

// AllTabs subscribes to events for every tab.
const AllTabs schema.TabID = ""

// Event represents a UI-facing event emitted by the core service.
type Event struct {
	Type   EventType
	Tab    schema.TabEvent
	Status schema.StatusEvent
	Render schema.RenderEvent
}

// TabID returns the tab the event concerns, or AllTabs.
func (e Event) TabID() schema.TabID {
	switch e.Type {
	case EventTab:
		return e.Tab.Tab.ID
	case EventStatus:
		return e.Status.TabID
	case EventRender:
		return e.Render.TabID
	default:
		return AllTabs
	}
}

// Bus fans events out to per-tab subscribers. Publishing never blocks; a
// full subscriber drops the event.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.TabID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.TabID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for a tab (AllTabs for everything) and
// returns a channel + cancel.
func (b *Bus) Subscribe(tabID schema.TabID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	tabSubs := b.subs[tabID]
	if tabSubs == nil {
		tabSubs = make(map[chan Event]struct{})
		b.subs[tabID] = tabSubs
	}
	tabSubs[ch] = struct{}{}
	count := len(tabSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("tab", tabID).Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[tabID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, tabID)
				}
			}
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.With("tab", tabID).Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnTabEvent publishes a tab event.
func (b *Bus) OnTabEvent(event schema.TabEvent) {
	b.publish(Event{Type: EventTab, Tab: event})
}

// OnStatus publishes a status event.
func (b *Bus) OnStatus(event schema.StatusEvent) {
	b.publish(Event{Type: EventStatus, Status: event})
}

// OnRender publishes a render event.
func (b *Bus) OnRender(event schema.RenderEvent) {
	b.publish(Event{Type: EventRender, Render: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	tabID := event.TabID()
	b.mu.Lock()
	subs := make([]chan Event, 0, len(b.subs[AllTabs])+len(b.subs[tabID]))
	for sub := range b.subs[AllTabs] {
		subs = append(subs, sub)
	}
	if tabID != AllTabs {
		for sub := range b.subs[tabID] {
			subs = append(subs, sub)
		}
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 && b.log != nil {
		b.log.With("tab", tabID).Trace("eventbus dropped", "count", dropped, "type", event.Type)
	}
}
