package displaylist

import (
	"testing"

	"tabengine/geom"
)

func TestRenderListAddAndLen(t *testing.T) {
	l := New()
	l.PushClear(geom.Black)
	l.PushRect(Rect{0, 0, 10, 10}, geom.White)
	if l.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", l.Len())
	}
	if l.Items()[0].Kind != KindClear {
		t.Fatalf("expected first item Clear, got %v", l.Items()[0].Kind)
	}
}

func TestRenderListReset(t *testing.T) {
	l := New()
	l.PushClear(geom.Black)
	l.Reset()
	if l.Len() != 0 {
		t.Fatalf("expected empty list after reset, got %d", l.Len())
	}
}

func TestTextRunMaxWidth(t *testing.T) {
	mw := float32(100)
	item := TextRun("hello", 14, 24, 23, geom.Black, &mw)
	if item.MaxWidth == nil || *item.MaxWidth != 100 {
		t.Fatalf("expected max width preserved")
	}
}

func TestBoundsEmptyList(t *testing.T) {
	l := New()
	l.PushClear(geom.Black)
	if _, ok := l.Bounds(); ok {
		t.Fatalf("expected no bounds when only a Clear item is present")
	}
}

func TestBoundsGrowsAcrossItems(t *testing.T) {
	l := New()
	l.PushRect(Rect{0, 0, 10, 10}, geom.White)
	l.PushRect(Rect{20, 5, 10, 10}, geom.White)
	b, ok := l.Bounds()
	if !ok {
		t.Fatalf("expected bounds")
	}
	if b.X != 0 || b.Y != 0 || b.Width != 30 || b.Height != 15 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}
