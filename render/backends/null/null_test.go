package null

import (
	"testing"

	"tabengine/displaylist"
	"tabengine/geom"
	"tabengine/render"
)

func TestNullBackendLifecycle(t *testing.T) {
	b := New()
	surface, err := b.CreateSurface(geom.SurfaceSize{Width: 100, Height: 100}, render.PresentFifo)
	if err != nil {
		t.Fatalf("create surface: %v", err)
	}
	list := displaylist.New()
	list.PushClear(geom.White)
	if err := b.Render(surface, list); err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := b.Snapshot(surface, 0)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(img.Pixels) != 100*100*4 {
		t.Fatalf("unexpected pixel buffer size: %d", len(img.Pixels))
	}
	handle, err := b.ExternalHandle(surface)
	if err != nil {
		t.Fatalf("external handle: %v", err)
	}
	if handle.Kind != render.HandleNull || handle.ID != 1 {
		t.Fatalf("unexpected handle: %+v", handle)
	}
}

func TestNullBackendSnapshotDownscalesToMaxDim(t *testing.T) {
	b := New()
	surface, _ := b.CreateSurface(geom.SurfaceSize{Width: 200, Height: 100}, render.PresentFifo)
	img, err := b.Snapshot(surface, 50)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if img.Width != 50 || img.Height != 25 {
		t.Fatalf("expected 50x25 downscaled image, got %dx%d", img.Width, img.Height)
	}
}
