// Package cpuraster implements render.Backend entirely on the CPU using
// the standard image package, producing PreMulArgb32 pixel buffers. It
// exists so the engine can run end to end (including a real Snapshot)
// without a GPU, and is the backend a demo host wires in by default.
package cpuraster

import (
	"image"
	"image/color"
	"sync"

	"tabengine/displaylist"
	"tabengine/geom"
	"tabengine/render"
)

// Surface owns a straight-alpha NRGBA raster. Render draws into a freshly
// allocated image and then replaces front with it; ExternalHandle hands
// out a premultiplied CpuPixelsOwned copy of front, which stays valid
// while the next frame is being drawn.
type Surface struct {
	mu    sync.Mutex
	size  geom.SurfaceSize
	front *image.NRGBA
	frame uint64
}

func (s *Surface) Size() geom.SurfaceSize { return s.size }

// Backend is a render.Backend that rasterizes DisplayItems with the
// standard library's 2D primitives: filled rectangles and monospaced text
// approximated as filled bars, which is all the placeholder layout needs.
type Backend struct{}

// New returns a ready-to-use cpuraster Backend.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) CreateSurface(size geom.SurfaceSize, _ render.PresentMode) (render.Surface, error) {
	return &Surface{
		size:  size,
		front: image.NewNRGBA(image.Rect(0, 0, int(size.Width), int(size.Height))),
	}, nil
}

func (b *Backend) Render(surface render.Surface, list *displaylist.RenderList) error {
	s, ok := surface.(*Surface)
	if !ok {
		return &render.Error{Op: "Render", Err: errUnknownSurface}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	img := image.NewNRGBA(image.Rect(0, 0, int(s.size.Width), int(s.size.Height)))
	for _, item := range list.Items() {
		switch item.Kind {
		case displaylist.KindClear:
			fillRect(img, img.Bounds(), item.Background)
		case displaylist.KindRect:
			r := image.Rect(
				int(item.Bounds.X), int(item.Bounds.Y),
				int(item.Bounds.X+item.Bounds.Width), int(item.Bounds.Y+item.Bounds.Height),
			)
			fillRect(img, r.Intersect(img.Bounds()), item.Color)
		case displaylist.KindTextRun:
			drawTextBar(img, item)
		}
	}

	s.front = img
	s.frame++
	return nil
}

func (b *Backend) Snapshot(surface render.Surface, maxDim uint32) (render.RgbaImage, error) {
	s, ok := surface.(*Surface)
	if !ok {
		return render.RgbaImage{}, &render.Error{Op: "Snapshot", Err: errUnknownSurface}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	width, height := s.size.Width, s.size.Height
	pixels := append([]byte(nil), s.front.Pix...)
	if maxDim > 0 {
		width, height, pixels = downscale(width, height, pixels, maxDim)
	}
	return render.NewRgbaImage(width, height, pixels)
}

// downscale nearest-neighbor-samples an RGBA8 buffer so max(width, height)
// <= maxDim, preserving aspect ratio. No third-party image-resize library
// appears anywhere in the retrieved corpus, so this stays on the standard
// library rather than inventing a dependency.
func downscale(width, height uint32, pixels []byte, maxDim uint32) (uint32, uint32, []byte) {
	if width <= maxDim && height <= maxDim {
		return width, height, pixels
	}
	scale := float64(maxDim) / float64(width)
	if h := float64(maxDim) / float64(height); h < scale {
		scale = h
	}
	dstW := uint32(float64(width) * scale)
	dstH := uint32(float64(height) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	out := make([]byte, int(dstW)*int(dstH)*4)
	for y := uint32(0); y < dstH; y++ {
		srcY := y * height / dstH
		for x := uint32(0); x < dstW; x++ {
			srcX := x * width / dstW
			srcOff := (srcY*width + srcX) * 4
			dstOff := (y*dstW + x) * 4
			copy(out[dstOff:dstOff+4], pixels[srcOff:srcOff+4])
		}
	}
	return dstW, dstH, out
}

func (b *Backend) ExternalHandle(surface render.Surface) (render.ExternalHandle, error) {
	s, ok := surface.(*Surface)
	if !ok {
		return render.ExternalHandle{}, &render.Error{Op: "ExternalHandle", Err: errUnknownSurface}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pixels := premultiply(s.front.Pix)
	return render.ExternalHandle{
		Kind:   render.HandleCpuPixelsOwned,
		Pixels: pixels,
		Width:  s.size.Width,
		Height: s.size.Height,
		Format: render.PreMulArgb32,
	}, nil
}

func fillRect(img *image.NRGBA, r image.Rectangle, c geom.Color) {
	u8 := c.U8()
	nc := color.NRGBA{R: u8[0], G: u8[1], B: u8[2], A: u8[3]}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, nc)
		}
	}
}

// drawTextBar approximates a TextRun as a thin filled bar spanning the
// (bounded) text width, since the placeholder layout has no real font
// shaping to draw glyphs with.
func drawTextBar(img *image.NRGBA, item displaylist.DisplayItem) {
	width := item.Size * float32(len(item.Text)) * 0.6
	if item.MaxWidth != nil && width > *item.MaxWidth {
		width = *item.MaxWidth
	}
	r := image.Rect(
		int(item.Position[0]), int(item.Position[1]-item.Size*0.7),
		int(item.Position[0]+width), int(item.Position[1]+item.Size*0.3),
	)
	fillRect(img, r.Intersect(img.Bounds()), item.Color)
}

// premultiply converts a straight-alpha NRGBA buffer to premultiplied
// ARGB byte order, matching PreMulArgb32's layout.
func premultiply(nrgba []byte) []byte {
	out := make([]byte, len(nrgba))
	for i := 0; i+3 < len(nrgba); i += 4 {
		r, g, bl, a := nrgba[i], nrgba[i+1], nrgba[i+2], nrgba[i+3]
		pr := uint8(uint32(r) * uint32(a) / 255)
		pg := uint8(uint32(g) * uint32(a) / 255)
		pb := uint8(uint32(bl) * uint32(a) / 255)
		out[i] = pb
		out[i+1] = pg
		out[i+2] = pr
		out[i+3] = a
	}
	return out
}

var errUnknownSurface = unknownSurfaceError{}

type unknownSurfaceError struct{}

func (unknownSurfaceError) Error() string { return "surface was not created by this backend" }
