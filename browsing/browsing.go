// Package browsing implements BrowsingContext: the per-tab document state
// that turns a fetched response into a RenderList. Real HTML/CSS/DOM
// parsing and layout are out of scope; RebuildRenderList instead renders
// the raw source as monospaced text lines, which is enough to exercise the
// full tab/zone/engine lifecycle end to end.
package browsing

import (
	"context"
	"strings"
	"sync"

	"tabengine/displaylist"
	"tabengine/geom"
	"tabengine/ids"
	"tabengine/netfetch"
	"tabengine/partition"
	"tabengine/storage"
)

// DirtyFlags tracks which stages of the (placeholder) pipeline need to
// rerun before the render list is current.
type DirtyFlags struct {
	DOM    bool
	Style  bool
	Layout bool
	Render bool
}

// Any reports whether any stage is dirty.
func (d DirtyFlags) Any() bool {
	return d.DOM || d.Style || d.Layout || d.Render
}

// AllClean returns the zero-value DirtyFlags.
func AllClean() DirtyFlags { return DirtyFlags{} }

// AllDirty returns flags with every stage marked dirty, as after a fresh
// navigation.
func AllDirty() DirtyFlags {
	return DirtyFlags{DOM: true, Style: true, Layout: true, Render: true}
}

// BoundStorage is the set of storage/cookie handles a BrowsingContext uses
// once it knows its committed origin and partition.
type BoundStorage struct {
	Local     storage.Area
	Session   storage.Area
	Partition partition.Key
}

// loadHandle tracks one in-flight fetch so it can be cancelled by a
// subsequent navigation.
type loadHandle struct {
	cancel context.CancelFunc
	result <-chan netfetch.Result
}

// BrowsingContext holds the state of one tab's loaded document.
type BrowsingContext struct {
	mu sync.Mutex

	url         string
	rawDocument string
	viewport    geom.Viewport
	sceneEpoch  uint64
	dirty       DirtyFlags
	renderList  *displaylist.RenderList
	storage     BoundStorage
	loading     *loadHandle
}

// New returns an empty BrowsingContext with no document loaded yet.
func New() *BrowsingContext {
	return &BrowsingContext{renderList: displaylist.New()}
}

// SetViewport updates the viewport and marks layout/render dirty if the
// size actually changed.
func (b *BrowsingContext) SetViewport(vp geom.Viewport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.viewport == vp {
		return
	}
	b.viewport = vp
	b.dirty.Layout = true
	b.dirty.Render = true
}

// Viewport returns the current viewport.
func (b *BrowsingContext) Viewport() geom.Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport
}

// SetRawDocument installs a freshly fetched document body and marks the
// whole pipeline dirty, as a real navigation would.
func (b *BrowsingContext) SetRawDocument(url, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = url
	b.rawDocument = body
	b.dirty = AllDirty()
}

// BindStorage attaches the local/session storage areas and partition key
// resolved for this document's origin.
func (b *BrowsingContext) BindStorage(bound BoundStorage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storage = bound
}

// Storage returns the currently bound storage handles.
func (b *BrowsingContext) Storage() BoundStorage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storage
}

// SceneEpoch returns the monotonically increasing counter bumped on every
// RebuildRenderList, so callers can detect a stale in-flight render.
func (b *BrowsingContext) SceneEpoch() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sceneEpoch
}

// Dirty returns the current dirty flags.
func (b *BrowsingContext) Dirty() DirtyFlags {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// StartLoading cancels any in-flight load for this context and starts a
// new fetch of url via fetcher. The new load's cancel function is kept on
// the context; CancelLoading (e.g. on tab close) and the next StartLoading
// use it.
func (b *BrowsingContext) StartLoading(ctx context.Context, zone ids.ZoneId, tab ids.TabId, url string, fetcher netfetch.Fetcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loading != nil {
		b.loading.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	result := netfetch.FetchAsync(loadCtx, fetcher, url)
	b.loading = &loadHandle{cancel: cancel, result: result}
}

// PollLoading is non-blocking: it reports whether the in-flight load (if
// any) has finished, and if so, consumes the result and clears the
// in-flight marker. Because it receives from the load's result channel,
// it must not be mixed with a direct receive from LoadChan for the same
// load: whichever receives first takes the single result.
func (b *BrowsingContext) PollLoading() (done bool, res netfetch.Result, ok bool) {
	b.mu.Lock()
	lh := b.loading
	b.mu.Unlock()
	if lh == nil {
		return true, netfetch.Result{}, false
	}
	select {
	case r := <-lh.result:
		b.mu.Lock()
		b.loading = nil
		b.mu.Unlock()
		return true, r, true
	default:
		return false, netfetch.Result{}, false
	}
}

// LoadChan returns the channel the worker should select on to learn when
// the in-flight load (if any) completes, or nil if nothing is loading.
// Receiving from it drains the load; callers must then call InstallLoad to
// record the outcome (LoadChan does not itself clear b.loading, so a
// second PollLoading after a direct receive correctly reports "not
// loading" only once InstallLoad has run).
func (b *BrowsingContext) LoadChan() <-chan netfetch.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loading == nil {
		return nil
	}
	return b.loading.result
}

// InstallLoad clears the in-flight load marker after the worker has
// consumed a result from the channel returned by LoadChan.
func (b *BrowsingContext) InstallLoad() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = nil
}

// CancelLoading cancels any in-flight load without waiting for it.
func (b *BrowsingContext) CancelLoading() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loading != nil {
		b.loading.cancel()
		b.loading = nil
	}
}

const (
	lineHeight = 16
	lineStartY = 24
	lineStartX = 14
	textSize   = 23
)

// RebuildRenderList regenerates the render list from the raw document:
// a full-surface Clear, followed by one TextRun per source line, each
// width-constrained to the viewport. Clears every dirty bit on return.
func (b *BrowsingContext) RebuildRenderList(background geom.Color, textColor geom.Color) *displaylist.RenderList {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := displaylist.New()
	list.PushClear(background)

	maxWidth := float32(b.viewport.Width)
	for i, line := range strings.Split(b.rawDocument, "\n") {
		y := float32(lineStartY + i*lineHeight)
		list.PushText(line, lineStartX, y, textSize, textColor, &maxWidth)
	}

	b.renderList = list
	b.dirty = AllClean()
	b.sceneEpoch++
	return list
}

// RenderList returns the most recently built render list.
func (b *BrowsingContext) RenderList() *displaylist.RenderList {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renderList
}

// URL returns the currently committed document URL.
func (b *BrowsingContext) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}
