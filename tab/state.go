package tab

import "tabengine/geom"

// StateKind discriminates the variants of State.
type StateKind int

const (
	StateIdle StateKind = iota
	StatePendingLoad
	StateLoading
	StateLoaded
	StatePendingRendering
	StateRendering
	StateRendered
	StateFailed
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "Idle"
	case StatePendingLoad:
		return "PendingLoad"
	case StateLoading:
		return "Loading"
	case StateLoaded:
		return "Loaded"
	case StatePendingRendering:
		return "PendingRendering"
	case StateRendering:
		return "Rendering"
	case StateRendered:
		return "Rendered"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// State is the tagged union of the tab state machine's possible states.
// Only the field relevant to Kind is meaningful.
type State struct {
	Kind     StateKind
	URL      string        // PendingLoad
	Viewport geom.Viewport // PendingRendering / Rendering / Rendered
	Message  string        // Failed
}

// Idle is the tab's initial state.
func Idle() State { return State{Kind: StateIdle} }

// PendingLoad transitions toward starting a fetch of url.
func PendingLoad(url string) State { return State{Kind: StatePendingLoad, URL: url} }

// Loading indicates a fetch is in flight.
func Loading() State { return State{Kind: StateLoading} }

// Loaded indicates the document has been committed and is ready to render.
func Loaded() State { return State{Kind: StateLoaded} }

// PendingRendering indicates a render against vp has been requested but
// not yet dispatched to the backend.
func PendingRendering(vp geom.Viewport) State {
	return State{Kind: StatePendingRendering, Viewport: vp}
}

// Rendering indicates a render against vp is in flight at the backend.
func Rendering(vp geom.Viewport) State { return State{Kind: StateRendering, Viewport: vp} }

// Rendered indicates the last render against vp completed and was handed
// to the compositor.
func Rendered(vp geom.Viewport) State { return State{Kind: StateRendered, Viewport: vp} }

// Failed indicates the last load or render failed with message.
func Failed(message string) State { return State{Kind: StateFailed, Message: message} }
