package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tabengine/cookies"
	"tabengine/geom"
	"tabengine/ids"
	"tabengine/netfetch"
	"tabengine/partition"
	"tabengine/render"
	"tabengine/storage"
	"tabengine/tab"
	"tabengine/zone"
)

// Config bounds the engine's resource usage and supplies the defaults new
// zones inherit unless a CreateZone call overrides them.
type Config struct {
	MaxZones        int
	DefaultZone     zone.Config
	PartitionPolicy partition.Policy
	EventBufferSize int
}

// DefaultConfig returns reasonable engine-wide defaults.
func DefaultConfig() Config {
	return Config{
		MaxZones:        32,
		DefaultZone:     zone.DefaultConfig(),
		PartitionPolicy: partition.PolicyTopLevelOrigin,
		EventBufferSize: 1024,
	}
}

// zoneRecord is the engine's bookkeeping for one live zone.
type zoneRecord struct {
	z       *zone.Zone
	fetcher netfetch.Fetcher
}

// Engine is the top-level façade: it owns zones, the render backend, and
// the event stream every zone's tabs publish into. One Engine should be
// driven by one host command loop; the Engine itself holds no loop of its
// own beyond its single event fan-in goroutine.
type Engine struct {
	config  Config
	backend render.Backend
	sink    render.CompositorSink

	mu    sync.RWMutex
	zones map[ids.ZoneId]*zoneRecord

	internal chan tab.Event // zones publish here
	public   chan tab.Event // host reads here

	log *zap.Logger
}

// New constructs an Engine backed by backend and starts its single
// internal fan-in goroutine: every zone's tab events are received on an
// internal channel, optionally dispatched to a CompositorSink as
// SubmitFrame calls, then republished on the host-facing channel
// returned by Events(). The fan-in goroutine keeps running after
// Shutdown; see Shutdown.
func New(config Config, backend render.Backend, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if config.MaxZones <= 0 {
		config.MaxZones = DefaultConfig().MaxZones
	}
	if config.EventBufferSize <= 0 {
		config.EventBufferSize = DefaultConfig().EventBufferSize
	}
	e := &Engine{
		config:   config,
		backend:  backend,
		zones:    make(map[ids.ZoneId]*zoneRecord),
		internal: make(chan tab.Event, config.EventBufferSize),
		public:   make(chan tab.Event, config.EventBufferSize),
		log:      log,
	}
	go e.fanIn()
	return e
}

func (e *Engine) fanIn() {
	for ev := range e.internal {
		e.dispatchToSink(ev)
		e.public <- ev
	}
	close(e.public)
}

// SetCompositorSink wires a host-supplied frame sink. Once set, every
// EvRedraw event flowing through the engine is additionally submitted to
// sink.SubmitFrame; failures are logged, never fatal to the engine.
func (e *Engine) SetCompositorSink(sink render.CompositorSink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

// Events returns the channel every zone's tab events are published on. A
// host typically ranges over this in its own command/event loop.
func (e *Engine) Events() <-chan tab.Event { return e.public }

// ZoneOptions configures a new zone's services at creation time.
type ZoneOptions struct {
	CookieJar cookies.Jar
	Fetcher   netfetch.Fetcher
	MaxTabs   int
}

// CreateZone allocates a new isolated zone, enforcing max_zones.
func (e *Engine) CreateZone(opts ZoneOptions) (ids.ZoneId, error) {
	e.mu.Lock()
	if len(e.zones) >= e.config.MaxZones {
		e.mu.Unlock()
		return ids.ZoneId{}, NewError(KindZoneLimitExceeded)
	}
	e.mu.Unlock()

	maxTabs := opts.MaxTabs
	if maxTabs <= 0 {
		maxTabs = e.config.DefaultZone.MaxTabs
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = netfetch.NewHTTPFetcher()
	}
	jar := opts.CookieJar
	if jar == nil {
		jar = cookies.NewDefaultJar()
	}

	svc := zone.Services{
		Storage:         storage.NewService(storage.NewInMemoryLocalStore(), storage.NewInMemorySessionStore()),
		CookieJar:       jar,
		PartitionPolicy: e.config.PartitionPolicy,
		Fetcher:         fetcher,
	}

	z := zone.New(zone.Config{MaxTabs: maxTabs}, svc, e.backend, e.internal, e.log)

	e.mu.Lock()
	e.zones[z.ID()] = &zoneRecord{z: z, fetcher: fetcher}
	e.mu.Unlock()

	return z.ID(), nil
}

// CloseZone tears down a zone and every tab it owns.
func (e *Engine) CloseZone(zoneID ids.ZoneId) error {
	e.mu.Lock()
	rec, ok := e.zones[zoneID]
	if ok {
		delete(e.zones, zoneID)
	}
	e.mu.Unlock()
	if !ok {
		return NewError(KindZoneNotFound)
	}
	rec.z.Shutdown()
	return nil
}

// ListZones returns every currently open zone id.
func (e *Engine) ListZones() []ids.ZoneId {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ids.ZoneId, 0, len(e.zones))
	for id := range e.zones {
		out = append(out, id)
	}
	return out
}

// Zone returns the named zone, if open.
func (e *Engine) Zone(zoneID ids.ZoneId) (*zone.Zone, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.zones[zoneID]
	if !ok {
		return nil, NewError(KindZoneNotFound)
	}
	return rec.z, nil
}

// ZoneSnapshot returns the zone's metadata snapshot.
func (e *Engine) ZoneSnapshot(zoneID ids.ZoneId) (zone.Snapshot, error) {
	z, err := e.Zone(zoneID)
	if err != nil {
		return zone.Snapshot{}, err
	}
	return z.Snapshot(), nil
}

// SetZoneTitle/SetZoneIcon/SetZoneDescription/SetZoneColor route metadata
// updates to the named zone, surfacing ZoneNotFound for an unknown id.
func (e *Engine) SetZoneTitle(zoneID ids.ZoneId, title string) error {
	z, err := e.Zone(zoneID)
	if err != nil {
		return err
	}
	z.SetTitle(title)
	return nil
}

func (e *Engine) SetZoneIcon(zoneID ids.ZoneId, icon string) error {
	z, err := e.Zone(zoneID)
	if err != nil {
		return err
	}
	z.SetIcon(icon)
	return nil
}

func (e *Engine) SetZoneDescription(zoneID ids.ZoneId, desc string) error {
	z, err := e.Zone(zoneID)
	if err != nil {
		return err
	}
	z.SetDescription(desc)
	return nil
}

func (e *Engine) SetZoneColor(zoneID ids.ZoneId, c geom.Color) error {
	z, err := e.Zone(zoneID)
	if err != nil {
		return err
	}
	z.SetColor(c)
	return nil
}

// CreateTab opens a new tab in zoneID, translating zone-level tab-limit
// and init-timeout failures into the engine's unified error taxonomy.
func (e *Engine) CreateTab(ctx context.Context, zoneID ids.ZoneId, overrides zone.TabOverrides) (tab.Handle, error) {
	z, err := e.Zone(zoneID)
	if err != nil {
		return tab.Handle{}, err
	}
	h, err := z.CreateTab(ctx, overrides)
	if err != nil {
		switch err {
		case zone.ErrTabLimitExceeded:
			return tab.Handle{}, NewError(KindTabLimitExceeded)
		case zone.ErrTabInitTimeout:
			return tab.Handle{}, Wrap(KindTaskInitFailed, err)
		default:
			return tab.Handle{}, Wrap(KindInternal, err)
		}
	}
	return h, nil
}

// CloseTab closes a tab within zoneID.
func (e *Engine) CloseTab(ctx context.Context, zoneID ids.ZoneId, tabID ids.TabId) error {
	z, err := e.Zone(zoneID)
	if err != nil {
		return err
	}
	if err := z.CloseTab(ctx, tabID); err != nil {
		if err == zone.ErrTabNotFound {
			return NewError(KindInvalidTabId)
		}
		return Wrap(KindInternal, err)
	}
	return nil
}

// Tab returns a handle to a tab within zoneID.
func (e *Engine) Tab(zoneID ids.ZoneId, tabID ids.TabId) (tab.Handle, error) {
	z, err := e.Zone(zoneID)
	if err != nil {
		return tab.Handle{}, err
	}
	h, ok := z.Tab(tabID)
	if !ok {
		return tab.Handle{}, NewError(KindInvalidTabId)
	}
	return h, nil
}

func (e *Engine) dispatchToSink(ev tab.Event) {
	if ev.Kind != tab.EvRedraw {
		return
	}
	e.mu.RLock()
	sink := e.sink
	e.mu.RUnlock()
	if sink == nil {
		return
	}
	if err := sink.SubmitFrame(ev.Tab, ev.FrameID, ev.Handle); err != nil {
		e.log.Warn("compositor sink rejected frame", zap.String("tab_id", ev.Tab.String()), zap.Error(err))
	}
}

// Shutdown tears down every open zone. The fan-in goroutine is left
// running, since a tab worker racing its own cancellation may still emit
// a trailing event; it exits naturally once the process that owns the
// Engine exits.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	recs := make([]*zoneRecord, 0, len(e.zones))
	for id, rec := range e.zones {
		recs = append(recs, rec)
		delete(e.zones, id)
	}
	e.mu.Unlock()
	for _, rec := range recs {
		rec.z.Shutdown()
	}
}
