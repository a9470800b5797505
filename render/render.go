// Package render defines the pluggable render-backend contract: the
// engine core never draws pixels itself, it hands a RenderList to
// whatever RenderBackend the host installed and receives back an opaque
// handle the host's compositor knows how to consume.
package render

import (
	"fmt"

	"tabengine/displaylist"
	"tabengine/geom"
)

// PresentMode mirrors the swapchain present mode a backend surface was
// created with.
type PresentMode int

const (
	PresentFifo PresentMode = iota
	PresentImmediate
)

// PixelFormat enumerates the pixel layouts a backend may produce.
type PixelFormat int

const (
	// PreMulArgb32 is premultiplied-alpha ARGB, 8 bits per channel.
	PreMulArgb32 PixelFormat = iota
	// Rgba8 is straight-alpha RGBA, 8 bits per channel.
	Rgba8
)

// HandleKind discriminates the variants of ExternalHandle.
type HandleKind int

const (
	HandleNull HandleKind = iota
	HandleCpuPixelsOwned
	HandleCpuPixelsPtr
	HandleGpuTexture
	HandleWgpuTextureID
	HandleSkiaImageID
)

// ExternalHandle is the tagged union a backend returns to identify a
// rendered frame to the host compositor. Exactly the fields relevant to
// Kind are populated.
type ExternalHandle struct {
	Kind HandleKind

	// CpuPixelsOwned
	Pixels []byte
	Width  uint32
	Height uint32
	Format PixelFormat

	// CpuPixelsPtr: a pointer into memory the backend owns and promises
	// remains valid until the next Render call on the same surface.
	Ptr    uintptr
	Stride uint32

	// GpuTexture / WgpuTextureId / SkiaImageId: an opaque numeric id the
	// host's compositor resolves against its own texture registry. The
	// null backend also sets it on Null handles, to its frame counter.
	ID uint64
}

// Null returns the handle a backend reports when it has nothing to show
// (e.g. before the first frame).
func Null() ExternalHandle {
	return ExternalHandle{Kind: HandleNull}
}

// RgbaImage is a host-readable snapshot of a rendered surface, always in
// straight-alpha RGBA8 regardless of the surface's native PixelFormat.
type RgbaImage struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// NewRgbaImage validates that pixels is exactly width*height*4 bytes
// before wrapping it.
func NewRgbaImage(width, height uint32, pixels []byte) (RgbaImage, error) {
	want := int(width) * int(height) * 4
	if len(pixels) != want {
		return RgbaImage{}, fmt.Errorf("render: RgbaImage expects %d bytes for %dx%d, got %d", want, width, height, len(pixels))
	}
	return RgbaImage{Width: width, Height: height, Pixels: pixels}, nil
}

// Surface is an opaque handle to backend-owned drawing state for one
// tab/viewport. Backends define their own concrete type; callers only
// ever hold the interface.
type Surface interface {
	Size() geom.SurfaceSize
}

// Backend is the contract a host-supplied renderer implements. The engine
// core calls it from tab workers; it must be safe for concurrent use
// across distinct surfaces (a host-wide backend instance is shared by
// every tab).
type Backend interface {
	// CreateSurface allocates backend state sized for size and intended to
	// be presented with mode.
	CreateSurface(size geom.SurfaceSize, mode PresentMode) (Surface, error)
	// Render consumes list and draws it into surface.
	Render(surface Surface, list *displaylist.RenderList) error
	// Snapshot reads back the current contents of surface as host-owned
	// pixels, down-scaled so max(width, height) <= maxDim. A maxDim of 0
	// means no downscaling.
	Snapshot(surface Surface, maxDim uint32) (RgbaImage, error)
	// ExternalHandle returns the latest frame's handle for compositor
	// hand-off, without forcing a CPU readback when the backend is
	// GPU-backed.
	ExternalHandle(surface Surface) (ExternalHandle, error)
}

// CompositorSink is the host-side receiver of finished frames. The engine
// calls SubmitFrame for every Redraw event a tab worker emits, which
// happens once per completed render.
type CompositorSink interface {
	SubmitFrame(tabID fmt.Stringer, frameID uint64, handle ExternalHandle) error
}

// Error wraps a backend failure with the surface/frame context that
// produced it, so engine-level logging doesn't need to parse strings.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
