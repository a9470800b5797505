package tab

import (
	"sync"

	"tabengine/browsing"
	"tabengine/cookies"
	"tabengine/geom"
	"tabengine/ids"
	"tabengine/partition"
	"tabengine/render"
	"tabengine/storage"
)

// CacheMode is an advisory hint a tab's navigations can carry; the core
// does not implement caching itself. The mode is recorded in
// Services.Cache and is not passed to the fetcher.
type CacheMode int

const (
	CacheInherit CacheMode = iota
	CacheDefault
	CacheBypass
	CacheEphemeral
)

// Services is the bundle of zone-or-override-resolved collaborators a tab
// is constructed with (see the engine-wide services resolution rules).
type Services struct {
	CookieJar        cookies.Jar
	Storage          *storage.Service
	PartitionKey     partition.Key
	PartitionPolicy  partition.Policy
	Cache            CacheMode
}

// Tab is the mutable state of one browsing context, owned exclusively by
// its worker goroutine once Worker.Run has started; any access from
// outside goes through the mutex-guarded accessors or a Command.
type Tab struct {
	mu sync.RWMutex

	id   ids.TabId
	zone ids.ZoneId

	state    State
	activity ActivityMode

	committedViewport geom.Viewport
	desiredViewport   geom.Viewport
	dirtyAfterInflight bool

	services Services
	context  *browsing.BrowsingContext
	surface  render.Surface

	thumbnail *render.RgbaImage
}

// New constructs a Tab in its initial Idle state.
func New(id ids.TabId, zone ids.ZoneId, services Services) *Tab {
	return &Tab{
		id:       id,
		zone:     zone,
		state:    Idle(),
		activity: ActivityActive,
		services: services,
		context:  browsing.New(),
	}
}

func (t *Tab) ID() ids.TabId     { return t.id }
func (t *Tab) ZoneID() ids.ZoneId { return t.zone }

// State returns a copy of the tab's current state.
func (t *Tab) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Tab) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// ActivityMode returns the tab's current scheduling class.
func (t *Tab) ActivityMode() ActivityMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activity
}

// SetActivityMode updates the tab's scheduling class; the worker picks
// this up on its next loop iteration via its TickSource.
func (t *Tab) SetActivityMode(m ActivityMode) {
	t.mu.Lock()
	t.activity = m
	t.mu.Unlock()
}

// DesiredViewport returns the latest requested viewport.
func (t *Tab) DesiredViewport() geom.Viewport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.desiredViewport
}

// CommittedViewport returns the viewport the in-flight or last completed
// render used.
func (t *Tab) CommittedViewport() geom.Viewport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.committedViewport
}

// RequestViewport records a new desired viewport. If the tab is currently
// rendering, the divergence is captured in dirtyAfterInflight so the
// worker re-renders exactly once more after the in-flight render
// completes, per the no-intermediate-sizes contract.
func (t *Tab) RequestViewport(vp geom.Viewport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.desiredViewport == vp {
		return
	}
	t.desiredViewport = vp
	if t.state.Kind == StateRendering {
		t.dirtyAfterInflight = true
	}
	t.context.SetViewport(vp)
}

func (t *Tab) takeDirtyAfterInflight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.dirtyAfterInflight
	t.dirtyAfterInflight = false
	return v
}

func (t *Tab) commitViewport(vp geom.Viewport) {
	t.mu.Lock()
	t.committedViewport = vp
	t.mu.Unlock()
}

// Context returns the tab's BrowsingContext.
func (t *Tab) Context() *browsing.BrowsingContext { return t.context }

// Services returns the tab's resolved collaborators.
func (t *Tab) Services() Services {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.services
}

func (t *Tab) setSurface(s render.Surface) {
	t.mu.Lock()
	t.surface = s
	t.mu.Unlock()
}

func (t *Tab) getSurface() render.Surface {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.surface
}

// Thumbnail returns the most recent snapshot, which the worker takes after
// every completed render; nil until the first snapshot succeeds.
func (t *Tab) Thumbnail() *render.RgbaImage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.thumbnail
}

func (t *Tab) setThumbnail(img render.RgbaImage) {
	t.mu.Lock()
	t.thumbnail = &img
	t.mu.Unlock()
}
