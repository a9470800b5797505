package tab

import (
	"context"
	"testing"
	"time"

	"tabengine/cookies"
	"tabengine/geom"
	"tabengine/ids"
	"tabengine/netfetch"
	"tabengine/partition"
	"tabengine/render/backends/null"
	"tabengine/storage"
)

// manualTick is a TickSource a test can drive by hand, avoiding any
// dependency on real wall-clock timing.
type manualTick struct {
	ch chan time.Time
}

func newManualTick() *manualTick { return &manualTick{ch: make(chan time.Time, 8)} }

func (m *manualTick) Chan(mode ActivityMode) <-chan time.Time {
	if mode == ActivitySuspended {
		return nil
	}
	return m.ch
}

func (m *manualTick) Stop() {}

func (m *manualTick) fire() {
	select {
	case m.ch <- time.Now():
	default:
	}
}

// pump fires the tick repeatedly until stop is closed, so tests don't
// have to race single fire() calls against asynchronous command
// processing in the worker goroutine.
func (m *manualTick) pump(stop <-chan struct{}) {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.fire()
		case <-stop:
			return
		}
	}
}

func newTestWorker(t *testing.T, fetcher netfetch.Fetcher) (*Tab, chan Command, chan Event, *manualTick, context.CancelFunc) {
	t.Helper()
	zone := ids.NewZoneId()
	tabID := ids.NewTabId()
	svc := Services{
		CookieJar: cookies.NewDefaultJar(),
		Storage:   storage.NewService(storage.NewInMemoryLocalStore(), storage.NewInMemorySessionStore()),
		PartitionKey: partition.None,
	}
	tb := New(tabID, zone, svc)
	cmds := make(chan Command, 8)
	events := make(chan Event, 32)
	tick := newManualTick()
	w := NewWorker(tb, null.New(), fetcher, cmds, events, tick, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	select {
	case <-w.Ready():
	case <-time.After(time.Second):
		t.Fatalf("worker did not become ready")
	}
	return tb, cmds, events, tick, cancel
}

func drainUntil(t *testing.T, events chan Event, kind EventKind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestNavigateLoadAndRender(t *testing.T) {
	fetcher := &netfetch.StubFetcher{Response: netfetch.Response{Status: 200, Body: []byte("hello\nworld")}}
	tb, cmds, events, tick, cancel := newTestWorker(t, fetcher)
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go tick.pump(stop)

	cmds <- SetViewport(0, 0, 800, 600)
	cmds <- Navigate("https://example.com")

	drainUntil(t, events, EvLoadFinished, time.Second)

	ev := drainUntil(t, events, EvRedraw, time.Second)
	if ev.Tab != tb.ID() {
		t.Fatalf("redraw event for wrong tab")
	}

	deadline := time.After(time.Second)
	for {
		if tb.State().Kind == StateIdle {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("tab never settled to Idle, stuck at %s", tb.State().Kind)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRenderedTabCapturesThumbnail(t *testing.T) {
	fetcher := &netfetch.StubFetcher{Response: netfetch.Response{Status: 200, Body: []byte("hello")}}
	tb, cmds, events, tick, cancel := newTestWorker(t, fetcher)
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go tick.pump(stop)

	cmds <- SetViewport(0, 0, 64, 32)
	cmds <- Navigate("https://example.com")
	drainUntil(t, events, EvRedraw, time.Second)

	deadline := time.After(time.Second)
	for tb.Thumbnail() == nil {
		select {
		case <-deadline:
			t.Fatalf("thumbnail was never captured")
		case <-time.After(time.Millisecond):
		}
	}
	img := tb.Thumbnail()
	if img.Width > thumbnailMaxDim || img.Height > thumbnailMaxDim {
		t.Fatalf("thumbnail exceeds max dim: %dx%d", img.Width, img.Height)
	}
}

func TestLoadFinishedURLIsNormalized(t *testing.T) {
	fetcher := &netfetch.StubFetcher{Response: netfetch.Response{Status: 200, Body: []byte("hello")}}
	tb, cmds, events, tick, cancel := newTestWorker(t, fetcher)
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go tick.pump(stop)

	cmds <- Navigate("https://example.com")
	ev := drainUntil(t, events, EvLoadFinished, time.Second)
	if ev.Tab != tb.ID() {
		t.Fatalf("load finished event for wrong tab")
	}
	if ev.URL != "https://example.com/" {
		t.Fatalf("expected normalized URL with trailing slash, got %q", ev.URL)
	}
}

func TestNavigateInvalidURLIsNoOp(t *testing.T) {
	fetcher := &netfetch.StubFetcher{}
	tb, cmds, _, _, cancel := newTestWorker(t, fetcher)
	defer cancel()

	before := tb.State()
	cmds <- Navigate("not a url")
	time.Sleep(20 * time.Millisecond)
	if tb.State() != before {
		t.Fatalf("expected no state change for unparseable URL, got %+v", tb.State())
	}
}

func TestLoadFailureTransitionsToFailed(t *testing.T) {
	fetcher := &netfetch.StubFetcher{Err: context.DeadlineExceeded}
	tb, cmds, events, tick, cancel := newTestWorker(t, fetcher)
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go tick.pump(stop)

	cmds <- Navigate("https://example.com")

	drainUntil(t, events, EvLoadFailed, time.Second)
	deadline := time.After(time.Second)
	for {
		if tb.State().Kind == StateFailed {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected Failed state, got %s", tb.State().Kind)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestResizeDuringRenderCapturesDirtyAfterInflight(t *testing.T) {
	tb := New(ids.NewTabId(), ids.NewZoneId(), Services{})
	tb.RequestViewport(geom.NewViewport(0, 0, 800, 600))
	tb.commitViewport(geom.NewViewport(0, 0, 800, 600))
	tb.setState(Rendering(geom.NewViewport(0, 0, 800, 600)))

	tb.RequestViewport(geom.NewViewport(0, 0, 1024, 768))
	if !tb.takeDirtyAfterInflight() {
		t.Fatalf("expected dirty_after_inflight to be set by a resize during Rendering")
	}
	if tb.takeDirtyAfterInflight() {
		t.Fatalf("expected takeDirtyAfterInflight to clear the flag")
	}
}

func TestCloseTabStopsWorker(t *testing.T) {
	fetcher := &netfetch.StubFetcher{}
	tb, cmds, events, _, cancel := newTestWorker(t, fetcher)
	defer cancel()

	cmds <- CloseTab()
	drainUntil(t, events, EvTabClosed, time.Second)
	if tb.ID().IsZero() {
		t.Fatalf("tab id should not be zero")
	}
}
