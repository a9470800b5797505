// Package null provides a no-op RenderBackend for headless engine
// operation: tests and tools that exercise tab/zone/engine lifecycle
// logic without caring about pixels.
package null

import (
	"sync/atomic"

	"tabengine/displaylist"
	"tabengine/geom"
	"tabengine/render"
)

// Surface is the null backend's Surface: it remembers only its size and a
// frame counter.
type Surface struct {
	size    geom.SurfaceSize
	frameID uint64
}

func (s *Surface) Size() geom.SurfaceSize { return s.size }

// Backend implements render.Backend by doing nothing: Render is a no-op,
// Snapshot returns a uniformly transparent image, and ExternalHandle
// returns a Null handle tagged with the frame counter encoded in ID so
// callers can still observe that frames are being produced.
type Backend struct {
	frames atomic.Uint64
}

// New returns a ready-to-use null Backend.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) CreateSurface(size geom.SurfaceSize, _ render.PresentMode) (render.Surface, error) {
	return &Surface{size: size}, nil
}

func (b *Backend) Render(surface render.Surface, _ *displaylist.RenderList) error {
	s, ok := surface.(*Surface)
	if !ok {
		return &render.Error{Op: "Render", Err: errUnknownSurface}
	}
	s.frameID = b.frames.Add(1)
	return nil
}

func (b *Backend) Snapshot(surface render.Surface, maxDim uint32) (render.RgbaImage, error) {
	s, ok := surface.(*Surface)
	if !ok {
		return render.RgbaImage{}, &render.Error{Op: "Snapshot", Err: errUnknownSurface}
	}
	width, height := s.size.Width, s.size.Height
	if maxDim > 0 {
		if width > maxDim && width >= height {
			height = height * maxDim / maxIfZero(width)
			width = maxDim
		} else if height > maxDim {
			width = width * maxDim / maxIfZero(height)
			height = maxDim
		}
	}
	pixels := make([]byte, int(width)*int(height)*4)
	return render.RgbaImage{Width: width, Height: height, Pixels: pixels}, nil
}

func maxIfZero(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func (b *Backend) ExternalHandle(surface render.Surface) (render.ExternalHandle, error) {
	s, ok := surface.(*Surface)
	if !ok {
		return render.ExternalHandle{}, &render.Error{Op: "ExternalHandle", Err: errUnknownSurface}
	}
	return render.ExternalHandle{Kind: render.HandleNull, ID: s.frameID}, nil
}

var errUnknownSurface = unknownSurfaceError{}

type unknownSurfaceError struct{}

func (unknownSurfaceError) Error() string { return "surface was not created by this backend" }
