package tab

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"tabengine/browsing"
	"tabengine/displaylist"
	"tabengine/geom"
	"tabengine/netfetch"
	"tabengine/render"
	"tabengine/storage"
)

// errorBackground/errorText are the placeholder colors the Failed state's
// error display list uses, distinct from the normal document background
// so a host can visually tell a crashed tab apart at a glance.
var (
	errorBackground = geom.NewColor(0.4, 0.05, 0.05, 1)
	errorText       = geom.White
)

// thumbnailMaxDim bounds the side of the thumbnail snapshot taken each
// time a tab finishes rendering, per the render backend's snapshot
// contract.
const thumbnailMaxDim = 256

// Worker drives one tab's state machine. It owns the tab exclusively per
// the single-writer discipline: no other goroutine may mutate the tab's
// browsing context, surface, or services once the worker has started.
type Worker struct {
	tab     *Tab
	backend render.Backend
	fetcher netfetch.Fetcher
	cmds    <-chan Command
	events  chan<- Event
	tick    TickSource
	log     *zap.Logger

	ready chan struct{}
}

// NewWorker builds a Worker for tab. cmds is the tab's command inbox;
// events is the engine-wide event channel the worker publishes to.
func NewWorker(t *Tab, backend render.Backend, fetcher netfetch.Fetcher, cmds <-chan Command, events chan<- Event, tick TickSource, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		tab: t, backend: backend, fetcher: fetcher,
		cmds: cmds, events: events, tick: tick,
		log:   log.With(zap.String("tab_id", t.id.String()), zap.String("zone_id", t.zone.String())),
		ready: make(chan struct{}),
	}
}

// Ready is closed once the worker's run loop has started and is ready to
// accept commands; zone.CreateTab waits on it (with T_INIT timeout) before
// handing back a tab.Handle.
func (w *Worker) Ready() <-chan struct{} { return w.ready }

// Run executes the worker loop until ctx is cancelled or a CloseTab
// command is received. It is meant to be called as `go worker.Run(ctx)`.
func (w *Worker) Run(ctx context.Context) {
	mode := w.tab.ActivityMode()
	tickCh := w.tick.Chan(mode)
	close(w.ready)
	defer w.tick.Stop()

	for {
		loadCh := w.tab.Context().LoadChan()

		select {
		case <-ctx.Done():
			return

		case cmd, ok := <-w.cmds:
			if !ok {
				return
			}
			w.handleCommand(ctx, cmd)
			if cmd.Kind == CmdCloseTab {
				return
			}

		case res, ok := <-loadCh:
			if !ok {
				continue
			}
			w.tab.Context().InstallLoad()
			w.handleLoadComplete(res)

		case <-tickCh:
			w.tickOnce(ctx)
		}

		if newMode := w.tab.ActivityMode(); newMode != mode {
			mode = newMode
			tickCh = w.tick.Chan(mode)
		}
	}
}

// tickOnce advances the state machine by one transition, per §4.3.
func (w *Worker) tickOnce(ctx context.Context) {
	st := w.tab.State()
	switch st.Kind {
	case StateIdle:
		if w.tab.Context().Dirty().Any() {
			w.tab.setState(PendingRendering(w.tab.DesiredViewport()))
		}

	case StatePendingLoad:
		w.startLoad(ctx, st.URL)
		w.tab.setState(Loading())
		w.events <- LoadStarted(w.tab.id, w.tab.zone, st.URL)

	case StateLoaded:
		w.tab.setState(PendingRendering(w.tab.DesiredViewport()))

	case StatePendingRendering:
		w.beginRender(st.Viewport)

	case StateRendering:
		w.finishRender(st.Viewport)

	case StateFailed:
		w.renderFailure(st.Message)
	}
}

func (w *Worker) startLoad(ctx context.Context, rawURL string) {
	w.tab.Context().StartLoading(ctx, w.tab.zone, w.tab.id, rawURL, w.fetcher)
}

func (w *Worker) handleLoadComplete(res netfetch.Result) {
	if res.Err != nil {
		w.tab.setState(Failed(res.Err.Error()))
		w.events <- LoadFailed(w.tab.id, w.tab.zone, res.Err.Error())
		return
	}

	w.log.Debug("load complete", zap.Int("status", res.Response.Status))
	resp := res.Response
	svc := w.tab.Services()
	var origin string
	if u, err := url.Parse(resp.URL); err == nil {
		origin = u.Scheme + "://" + u.Host
		if svc.CookieJar != nil {
			svc.CookieJar.StoreResponseCookies(u, resp.Headers["Set-Cookie"])
		}
	}
	committedURL := normalizeURL(resp.URL)
	w.tab.Context().SetRawDocument(committedURL, string(resp.Body))
	if svc.Storage != nil && origin != "" {
		w.tab.Context().BindStorage(browsing.BoundStorage{
			Local:     svc.Storage.LocalFor(w.tab.zone, svc.PartitionKey, origin, &w.tab.id),
			Session:   svc.Storage.SessionFor(w.tab.zone, w.tab.id, svc.PartitionKey, origin),
			Partition: svc.PartitionKey,
		})
	}
	w.tab.setState(Loaded())
	w.events <- LoadFinished(w.tab.id, w.tab.zone, committedURL, resp.Status)
}

// normalizeURL fills in an empty path with "/" so a bare origin like
// "https://example.com" commits as "https://example.com/", matching what
// an actual HTTP client resolves an origin-only request to. Malformed
// URLs are returned unchanged rather than dropped.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func (w *Worker) beginRender(vp geom.Viewport) {
	if vp.Unsized() {
		return
	}
	if surface := w.tab.getSurface(); surface == nil || surface.Size() != vp.AsSize() {
		s, err := w.backend.CreateSurface(vp.AsSize(), render.PresentFifo)
		if err != nil {
			w.log.Warn("create surface failed", zap.Error(err))
			w.tab.setState(Failed(err.Error()))
			w.events <- EngineCrashed(w.tab.id, w.tab.zone, err.Error())
			return
		}
		w.tab.setSurface(s)
	}

	list := w.tab.Context().RenderList()
	if w.tab.Context().Dirty().Render {
		list = w.tab.Context().RebuildRenderList(geom.White, geom.Black)
	}

	if err := w.backend.Render(w.tab.getSurface(), list); err != nil {
		w.tab.setState(Failed(err.Error()))
		w.events <- EngineCrashed(w.tab.id, w.tab.zone, err.Error())
		return
	}
	w.tab.commitViewport(vp)
	w.tab.setState(Rendering(vp))
}

func (w *Worker) finishRender(vp geom.Viewport) {
	handle, err := w.backend.ExternalHandle(w.tab.getSurface())
	if err != nil {
		w.tab.setState(Failed(err.Error()))
		w.events <- EngineCrashed(w.tab.id, w.tab.zone, err.Error())
		return
	}
	w.events <- Redraw(w.tab.id, w.tab.zone, handle, handle.ID)
	w.tab.setState(Rendered(vp))

	if img, err := w.backend.Snapshot(w.tab.getSurface(), thumbnailMaxDim); err != nil {
		w.log.Warn("thumbnail snapshot failed", zap.Error(err))
	} else {
		w.tab.setThumbnail(img)
	}

	if w.tab.takeDirtyAfterInflight() {
		w.tab.setState(PendingRendering(w.tab.DesiredViewport()))
		return
	}
	w.tab.setState(Idle())
}

func (w *Worker) renderFailure(message string) {
	list := displaylist.New()
	list.PushClear(errorBackground)
	maxWidth := float32(w.tab.CommittedViewport().Width)
	list.PushText(message, 14, 24, 23, errorText, &maxWidth)

	vp := w.tab.DesiredViewport()
	if vp.Unsized() {
		vp = w.tab.CommittedViewport()
	}
	w.tab.setState(PendingRendering(vp))
}

// handleCommand applies cmd to the tab. Unknown or unsupported kinds are
// acknowledged as no-ops with a diagnostic event, never an error.
func (w *Worker) handleCommand(ctx context.Context, cmd Command) {
	reply := func(err error) {
		if cmd.Reply != nil {
			cmd.Reply <- err
			close(cmd.Reply)
		}
	}

	switch cmd.Kind {
	case CmdNavigate:
		u, err := url.Parse(cmd.URL)
		if err != nil || u.Scheme == "" {
			reply(nil)
			return
		}
		w.tab.Context().CancelLoading()
		w.tab.setState(PendingLoad(cmd.URL))

	case CmdReload:
		if committedURL := w.tab.Context().URL(); committedURL != "" {
			w.tab.Context().CancelLoading()
			w.tab.setState(PendingLoad(committedURL))
		}

	case CmdStopLoading:
		w.tab.Context().CancelLoading()
		if w.tab.State().Kind == StateLoading {
			w.tab.setState(Idle())
		}

	case CmdCloseTab:
		w.tab.Context().CancelLoading()
		w.events <- Event{Kind: EvTabClosed, Tab: w.tab.id, Zone: w.tab.zone}

	case CmdResumeDrawing:
		w.tab.SetActivityMode(ActivityActive)

	case CmdSuspendDrawing:
		w.tab.SetActivityMode(ActivitySuspended)

	case CmdResize:
		w.tab.RequestViewport(geom.NewViewport(0, 0, cmd.Width, cmd.Height))

	case CmdSetViewport:
		w.tab.RequestViewport(geom.NewViewport(cmd.X, cmd.Y, cmd.Width, cmd.Height))

	case CmdSetCookie:
		if jar := w.tab.Services().CookieJar; jar != nil {
			if u, err := url.Parse(w.tab.Context().URL()); err == nil {
				jar.StoreResponseCookies(u, []string{cmd.CookieHeader})
			}
		}

	case CmdClearCookies:
		if jar := w.tab.Services().CookieJar; jar != nil {
			jar.Clear()
		}

	case CmdSetStorageItem:
		if area := w.localArea(); area != nil {
			_ = area.SetItem(cmd.StorageKey, cmd.StorageValue)
		}

	case CmdRemoveStorageItem:
		if area := w.localArea(); area != nil {
			_ = area.RemoveItem(cmd.StorageKey)
		}

	case CmdClearStorage:
		if area := w.localArea(); area != nil {
			_ = area.Clear()
		}

	case CmdMouseMove, CmdMouseDown, CmdMouseUp, CmdMouseScroll, CmdKeyDown, CmdKeyUp, CmdTextInput:
		// Input delivery to a document model is out of scope; acknowledged
		// as a no-op until a DOM/event-target model exists.
		w.events <- Diagnostic(w.tab.id, w.tab.zone, cmd.Kind.String()+" accepted (no-op)")

	case CmdExecuteScript:
		w.events <- Event{Kind: EvScriptResult, Tab: w.tab.id, Zone: w.tab.zone, ScriptOutput: ""}

	case CmdPlayMedia:
		w.events <- Event{Kind: EvMediaStarted, Tab: w.tab.id, Zone: w.tab.zone, MediaID: cmd.MediaID}

	case CmdPauseMedia:
		w.events <- Event{Kind: EvMediaPaused, Tab: w.tab.id, Zone: w.tab.zone, MediaID: cmd.MediaID}

	case CmdEnableLogging, CmdDumpDomTree:
		w.events <- Diagnostic(w.tab.id, w.tab.zone, cmd.Kind.String()+" accepted (no-op)")

	default:
		w.events <- Diagnostic(w.tab.id, w.tab.zone, "unknown command")
	}

	reply(nil)
}

func (w *Worker) localArea() storage.Area {
	return w.tab.Context().Storage().Local
}
