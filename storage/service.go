package storage

import (
	"sync"

	"tabengine/ids"
	"tabengine/partition"
)

// defaultBusCapacity bounds the broadcast channel buffer so a slow or
// absent subscriber cannot make publish() block the mutating caller
// indefinitely; see Bus.Publish.
const defaultBusCapacity = 256

// Subscription is a receive-only channel of Events delivered to one
// subscriber of a Bus.
type Subscription <-chan Event

// Bus fans a stream of StorageEvents out to any number of subscribers.
// A Publish with no subscribers is a cheap no-op, matching the original
// engine's broadcast-channel semantics.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
	cap  int
}

// NewBus returns a Bus with the default buffer capacity per subscriber.
func NewBus() *Bus {
	return &Bus{cap: defaultBusCapacity}
}

// Subscribe registers a new listener and returns its channel. The channel
// is never closed — callers that stop listening should simply stop
// reading; the Bus only ever sends, never closes, since its lifetime
// spans the whole process.
func (b *Bus) Subscribe() Subscription {
	ch := make(chan Event, b.cap)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers ev to every current subscriber. A subscriber whose
// buffer is full is skipped rather than blocking the publisher — a lagging
// devtools listener must not stall tab storage mutations.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// notifyingArea wraps an Area and publishes a StorageEvent on the owning
// Bus after every successful mutation. get_item never publishes: reads are
// not observable events.
type notifyingArea struct {
	inner     Area
	bus       *Bus
	zone      ids.ZoneId
	part      partition.Key
	origin    string
	sourceTab *ids.TabId
	scope     Scope
}

func (a *notifyingArea) GetItem(key string) (string, bool) {
	return a.inner.GetItem(key)
}

func (a *notifyingArea) SetItem(key, value string) error {
	old, hadOld := a.inner.GetItem(key)
	if err := a.inner.SetItem(key, value); err != nil {
		return err
	}
	ev := Event{
		Zone: a.zone, Partition: a.part, Origin: a.origin,
		Key: strPtr(key), NewValue: strPtr(value),
		SourceTab: a.sourceTab, Scope: a.scope,
	}
	if hadOld {
		ev.OldValue = strPtr(old)
	}
	a.bus.Publish(ev)
	return nil
}

func (a *notifyingArea) RemoveItem(key string) error {
	old, hadOld := a.inner.GetItem(key)
	if err := a.inner.RemoveItem(key); err != nil {
		return err
	}
	if !hadOld {
		return nil
	}
	a.bus.Publish(Event{
		Zone: a.zone, Partition: a.part, Origin: a.origin,
		Key: strPtr(key), OldValue: strPtr(old),
		SourceTab: a.sourceTab, Scope: a.scope,
	})
	return nil
}

func (a *notifyingArea) Clear() error {
	if err := a.inner.Clear(); err != nil {
		return err
	}
	a.bus.Publish(Event{
		Zone: a.zone, Partition: a.part, Origin: a.origin,
		SourceTab: a.sourceTab, Scope: a.scope,
	})
	return nil
}

func (a *notifyingArea) Len() int       { return a.inner.Len() }
func (a *notifyingArea) Keys() []string { return a.inner.Keys() }

func strPtr(s string) *string { return &s }

// Service is the single entry point tabs and zones use to reach storage:
// it owns the LocalStore, SessionStore, and the Bus events are published
// on, and wraps every Area it hands out in a notifyingArea.
type Service struct {
	local   LocalStore
	session SessionStore
	bus     *Bus
}

// NewService builds a Service over the given backing stores.
func NewService(local LocalStore, session SessionStore) *Service {
	return &Service{local: local, session: session, bus: NewBus()}
}

// Subscribe returns a stream of every StorageEvent published through this
// service, across all zones, tabs, and origins.
func (s *Service) Subscribe() Subscription {
	return s.bus.Subscribe()
}

// LocalFor returns a notifying Area over local storage for (zone,
// partition, origin), attributing published events to sourceTab (nil if
// the caller is not tab-scoped, e.g. a devtools panel).
func (s *Service) LocalFor(zone ids.ZoneId, part partition.Key, origin string, sourceTab *ids.TabId) Area {
	return &notifyingArea{
		inner: s.local.Area(zone, part, origin), bus: s.bus,
		zone: zone, part: part, origin: origin,
		sourceTab: sourceTab, scope: ScopeLocal,
	}
}

// SessionFor returns a notifying Area over session storage for (zone, tab,
// partition, origin).
func (s *Service) SessionFor(zone ids.ZoneId, tab ids.TabId, part partition.Key, origin string) Area {
	return &notifyingArea{
		inner: s.session.Area(zone, tab, part, origin), bus: s.bus,
		zone: zone, part: part, origin: origin,
		sourceTab: &tab, scope: ScopeSession,
	}
}

// DropTab releases every session storage area owned by tab. Local storage
// is unaffected: it outlives the tab that wrote it.
func (s *Service) DropTab(zone ids.ZoneId, tab ids.TabId) {
	s.session.DropTab(zone, tab)
}
