// Package zone implements the isolation boundary that owns a set of tabs
// and the storage/cookie services they share: creation, closure, shared
// metadata, and storage-event forwarding.
package zone

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"tabengine/cookies"
	"tabengine/geom"
	"tabengine/ids"
	"tabengine/netfetch"
	"tabengine/partition"
	"tabengine/render"
	"tabengine/storage"
	"tabengine/tab"
)

// TabInitTimeout bounds how long CreateTab waits for the spawned worker
// to report ready before giving up and aborting the task.
const TabInitTimeout = 3 * time.Second

var (
	// ErrTabLimitExceeded is returned by CreateTab when the zone is at
	// max_tabs capacity.
	ErrTabLimitExceeded = errors.New("zone: tab limit exceeded")
	// ErrTabInitTimeout is returned when a spawned tab worker fails to
	// report ready within TabInitTimeout.
	ErrTabInitTimeout = errors.New("zone: tab init timed out")
	// ErrTabNotFound is returned by operations naming an unknown tab.
	ErrTabNotFound = errors.New("zone: tab not found")
)

// SharedFlags gates cross-zone reads of autocomplete/bookmarks/passwords/
// the cookie jar. Enforcement is the reader's responsibility; the zone
// only records the flags.
type SharedFlags struct {
	ShareAutocomplete bool
	ShareBookmarks    bool
	SharePasswords    bool
	ShareCookieJar    bool
}

// Config bounds a zone's resource usage.
type Config struct {
	MaxTabs int
}

// DefaultConfig returns reasonable zone defaults.
func DefaultConfig() Config {
	return Config{MaxTabs: 64}
}

// Services is the set of zone-wide collaborators tabs inherit from unless
// overridden.
type Services struct {
	Storage         *storage.Service
	CookieJar       cookies.Jar
	PartitionPolicy partition.Policy
	Fetcher         netfetch.Fetcher
}

// TabOverrides customizes the effective services a single tab resolves to;
// see ResolveServices.
type TabOverrides struct {
	PartitionKey    *partition.Key
	StorageCustom   *storage.Service
	StorageEphemeral bool
	CookieJarCustom cookies.Jar
	CookieEphemeral bool
	Cache           tab.CacheMode
}

// ResolveServices implements the effective-tab-services resolution rules:
// an override always wins; storage/cookie "ephemeral" requests get a
// fresh in-memory instance instead of the zone's shared one.
func ResolveServices(zoneID ids.ZoneId, zoneSvc Services, overrides TabOverrides) tab.Services {
	partKey := partition.TopLevel(zoneID.String())
	partPolicy := zoneSvc.PartitionPolicy
	if overrides.PartitionKey != nil {
		partKey = *overrides.PartitionKey
		partPolicy = partition.PolicyNone
	}

	storageSvc := zoneSvc.Storage
	switch {
	case overrides.StorageCustom != nil:
		storageSvc = overrides.StorageCustom
	case overrides.StorageEphemeral:
		storageSvc = storage.NewService(storage.NewInMemoryLocalStore(), storage.NewInMemorySessionStore())
	}

	jar := zoneSvc.CookieJar
	switch {
	case overrides.CookieJarCustom != nil:
		jar = overrides.CookieJarCustom
	case overrides.CookieEphemeral:
		jar = cookies.NewDefaultJar()
	case jar == nil:
		jar = cookies.NewDefaultJar()
	}

	return tab.Services{
		CookieJar:       jar,
		Storage:         storageSvc,
		PartitionKey:    partKey,
		PartitionPolicy: partPolicy,
		Cache:           overrides.Cache,
	}
}

// record is the zone's bookkeeping for one live tab.
type record struct {
	handle tab.Handle
	cancel context.CancelFunc
}

// Zone owns a set of tabs and the services they share.
type Zone struct {
	id     ids.ZoneId
	config Config

	mu          sync.RWMutex
	title       string
	icon        string
	description string
	color       geom.Color
	flags       SharedFlags
	tabs        map[ids.TabId]*record

	services Services
	backend  render.Backend
	events   chan<- tab.Event
	bus      storage.Subscription

	log *zap.Logger
}

// New constructs a Zone with a freshly randomized id.
func New(config Config, services Services, backend render.Backend, events chan<- tab.Event, log *zap.Logger) *Zone {
	return NewWithID(ids.NewZoneId(), config, services, backend, events, log)
}

// NewWithID constructs a Zone with an explicit id, deterministically
// deriving its display color from that id the way the original engine
// seeds a PRNG from the zone id's first (high-order) 64 bits.
func NewWithID(id ids.ZoneId, config Config, services Services, backend render.Backend, events chan<- tab.Event, log *zap.Logger) *Zone {
	if log == nil {
		log = zap.NewNop()
	}
	z := &Zone{
		id:       id,
		config:   config,
		color:    DeriveColor(id),
		tabs:     make(map[ids.TabId]*record),
		services: services,
		backend:  backend,
		events:   events,
		log:      log.With(zap.String("zone_id", id.String())),
	}
	if services.Storage != nil {
		z.bus = services.Storage.Subscribe()
		go z.forwardStorageEvents()
	}
	return z
}

// DeriveColor returns a deterministic color seeded from zone's first
// (high-order) 64 bits, so the same zone id always renders the same
// default color.
func DeriveColor(zone ids.ZoneId) geom.Color {
	r := rand.New(rand.NewSource(int64(zone.Seed())))
	return geom.NewColor(r.Float32(), r.Float32(), r.Float32(), 1)
}

func (z *Zone) ID() ids.ZoneId { return z.id }

func (z *Zone) forwardStorageEvents() {
	for ev := range z.bus {
		zoneID := z.id
		z.events <- tab.Event{
			Kind:         tab.EvStorageChanged,
			Zone:         zoneID,
			Origin:       ev.Origin,
			StorageKey:   ev.Key,
			StorageValue: ev.NewValue,
			StorageScope: ev.Scope.String(),
		}
	}
}

// SetTitle updates the zone's title. No event is emitted for the change,
// neither here nor by the engine.
func (z *Zone) SetTitle(title string) {
	z.mu.Lock()
	z.title = title
	z.mu.Unlock()
}

func (z *Zone) SetIcon(icon string) {
	z.mu.Lock()
	z.icon = icon
	z.mu.Unlock()
}

func (z *Zone) SetDescription(desc string) {
	z.mu.Lock()
	z.description = desc
	z.mu.Unlock()
}

func (z *Zone) SetColor(c geom.Color) {
	z.mu.Lock()
	z.color = c
	z.mu.Unlock()
}

// Snapshot is a read-only view of zone metadata.
type Snapshot struct {
	ID          ids.ZoneId
	Title       string
	Icon        string
	Description string
	Color       geom.Color
	Flags       SharedFlags
	TabCount    int
}

func (z *Zone) Snapshot() Snapshot {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return Snapshot{
		ID: z.id, Title: z.title, Icon: z.icon, Description: z.description,
		Color: z.color, Flags: z.flags, TabCount: len(z.tabs),
	}
}

// CreateTab validates capacity, resolves effective services, spawns the
// tab's worker goroutine, and waits (up to TabInitTimeout) for it to
// report ready.
func (z *Zone) CreateTab(ctx context.Context, overrides TabOverrides) (tab.Handle, error) {
	z.mu.Lock()
	if len(z.tabs) >= z.config.MaxTabs {
		z.mu.Unlock()
		return tab.Handle{}, ErrTabLimitExceeded
	}
	z.mu.Unlock()

	tabID := ids.NewTabId()
	svc := ResolveServices(z.id, z.services, overrides)
	t := tab.New(tabID, z.id, svc)

	cmds := make(chan tab.Command, 256)
	tick := tab.NewTickSource()
	w := tab.NewWorker(t, z.backend, z.services.Fetcher, cmds, z.events, tick, z.log)

	workerCtx, cancel := context.WithCancel(ctx)
	go w.Run(workerCtx)

	select {
	case <-w.Ready():
	case <-time.After(TabInitTimeout):
		cancel()
		return tab.Handle{}, ErrTabInitTimeout
	case <-ctx.Done():
		cancel()
		return tab.Handle{}, ctx.Err()
	}

	handle := tab.NewHandle(tabID, z.id, cmds)
	z.mu.Lock()
	z.tabs[tabID] = &record{handle: handle, cancel: cancel}
	z.mu.Unlock()

	z.events <- tab.Event{Kind: tab.EvTabCreated, Tab: tabID, Zone: z.id}
	return handle, nil
}

// CloseTab signals the tab's worker to drain and exit, and drops its
// session storage from the zone's storage service.
func (z *Zone) CloseTab(ctx context.Context, tabID ids.TabId) error {
	z.mu.Lock()
	rec, ok := z.tabs[tabID]
	if ok {
		delete(z.tabs, tabID)
	}
	z.mu.Unlock()
	if !ok {
		return ErrTabNotFound
	}

	err := rec.handle.SendAndWait(ctx, tab.CloseTab())
	rec.cancel()
	if z.services.Storage != nil {
		z.services.Storage.DropTab(z.id, tabID)
	}
	if err != nil && !errors.Is(err, tab.ErrChannelClosed) {
		return fmt.Errorf("zone: close tab: %w", err)
	}
	return nil
}

// ListTabs returns the ids of every currently open tab.
func (z *Zone) ListTabs() []ids.TabId {
	z.mu.RLock()
	defer z.mu.RUnlock()
	out := make([]ids.TabId, 0, len(z.tabs))
	for id := range z.tabs {
		out = append(out, id)
	}
	return out
}

// Tab returns the handle for tabID, if open.
func (z *Zone) Tab(tabID ids.TabId) (tab.Handle, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	rec, ok := z.tabs[tabID]
	if !ok {
		return tab.Handle{}, false
	}
	return rec.handle, true
}

// Shutdown cancels every tab worker without waiting for a clean drain,
// used when the owning engine tears the zone down.
func (z *Zone) Shutdown() {
	z.mu.Lock()
	recs := make([]*record, 0, len(z.tabs))
	for id, rec := range z.tabs {
		recs = append(recs, rec)
		delete(z.tabs, id)
	}
	z.mu.Unlock()
	for _, rec := range recs {
		rec.cancel()
	}
}
