package tab

import (
	"tabengine/ids"
	"tabengine/render"
)

// EventKind discriminates the variants of Event, the taxonomy a tab
// worker emits onto the engine's event channel.
type EventKind int

const (
	EvRedraw EventKind = iota
	EvFrameComplete
	EvTitleChanged
	EvFavIconChanged
	EvLocationChanged
	EvConnectionEstablished
	EvRedirect
	EvLoadStarted
	EvLoadProgress
	EvLoadFinished
	EvLoadFailed
	EvCookieAdded
	EvStorageChanged
	EvMediaStarted
	EvMediaPaused
	EvScriptResult
	EvNetworkError
	EvJavaScriptError
	EvEngineCrashed
	EvTabCreated
	EvTabClosed
	EvDiagnostic
)

var eventKindNames = [...]string{
	"redraw", "frame_complete", "title_changed", "favicon_changed",
	"location_changed", "connection_established", "redirect",
	"load_started", "load_progress", "load_finished", "load_failed",
	"cookie_added", "storage_changed", "media_started", "media_paused",
	"script_result", "network_error", "javascript_error", "engine_crashed",
	"tab_created", "tab_closed", "diagnostic",
}

// String returns the event kind's wire name, used in logs and the debug
// bridge's JSON projection.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is a tagged union covering every event a tab worker can raise.
type Event struct {
	Kind EventKind
	Tab  ids.TabId
	Zone ids.ZoneId

	Handle  render.ExternalHandle // Redraw
	FrameID uint64                // Redraw / FrameComplete

	Title    string // TitleChanged
	IconURL  string // FavIconChanged
	Location string // LocationChanged

	URL        string // Redirect / LoadFinished
	Status     int    // LoadFinished
	Message    string // LoadFailed / EngineCrashed / diagnostic
	ProgressPct float32 // LoadProgress

	StorageKey   *string // StorageChanged
	StorageValue *string
	StorageScope string
	Origin       string

	MediaID string // MediaStarted/Paused

	ScriptOutput string // ScriptResult

	Line, Col int // JavaScriptError
}

// Redraw builds a Redraw event.
func Redraw(tab ids.TabId, zone ids.ZoneId, handle render.ExternalHandle, frameID uint64) Event {
	return Event{Kind: EvRedraw, Tab: tab, Zone: zone, Handle: handle, FrameID: frameID}
}

// LoadFinished builds a LoadFinished event.
func LoadFinished(tab ids.TabId, zone ids.ZoneId, url string, status int) Event {
	return Event{Kind: EvLoadFinished, Tab: tab, Zone: zone, URL: url, Status: status}
}

// LoadFailed builds a LoadFailed event.
func LoadFailed(tab ids.TabId, zone ids.ZoneId, message string) Event {
	return Event{Kind: EvLoadFailed, Tab: tab, Zone: zone, Message: message}
}

// LoadStarted builds a LoadStarted event.
func LoadStarted(tab ids.TabId, zone ids.ZoneId, url string) Event {
	return Event{Kind: EvLoadStarted, Tab: tab, Zone: zone, URL: url}
}

// EngineCrashed builds an EngineCrashed event for a render failure.
func EngineCrashed(tab ids.TabId, zone ids.ZoneId, reason string) Event {
	return Event{Kind: EvEngineCrashed, Tab: tab, Zone: zone, Message: reason}
}

// Diagnostic builds a diagnostic acknowledgement event for an
// unsupported/unknown command.
func Diagnostic(tab ids.TabId, zone ids.ZoneId, message string) Event {
	return Event{Kind: EvDiagnostic, Tab: tab, Zone: zone, Message: message}
}
