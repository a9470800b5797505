package browsing

import (
	"context"
	"testing"
	"time"

	"tabengine/geom"
	"tabengine/ids"
	"tabengine/netfetch"
)

func TestSetRawDocumentMarksAllDirty(t *testing.T) {
	ctx := New()
	ctx.SetRawDocument("https://example.com", "line one\nline two")
	if !ctx.Dirty().Any() {
		t.Fatalf("expected dirty flags set after new document")
	}
}

func TestRebuildRenderListOneTextRunPerLine(t *testing.T) {
	ctx := New()
	ctx.SetViewport(geom.NewViewport(0, 0, 800, 600))
	ctx.SetRawDocument("https://example.com", "alpha\nbeta\ngamma")
	list := ctx.RebuildRenderList(geom.White, geom.Black)

	if list.Len() != 4 {
		t.Fatalf("expected 1 clear + 3 text runs, got %d", list.Len())
	}
	items := list.Items()
	if items[0].Kind.String() != "Clear" {
		t.Fatalf("expected first item to be Clear")
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		item := items[i+1]
		if item.Text != want {
			t.Fatalf("item %d: got text %q want %q", i, item.Text, want)
		}
		wantY := float32(24 + i*16)
		if item.Position[1] != wantY || item.Position[0] != 14 {
			t.Fatalf("item %d: unexpected position %v", i, item.Position)
		}
		if item.MaxWidth == nil || *item.MaxWidth != 800 {
			t.Fatalf("item %d: expected max width bound to viewport", i)
		}
	}
	if ctx.Dirty().Render || ctx.Dirty().Layout {
		t.Fatalf("expected render/layout dirty cleared after rebuild")
	}
}

func TestStartLoadingCancelsPrevious(t *testing.T) {
	ctx := New()
	zone, tab := ids.NewZoneId(), ids.NewTabId()
	slow := &netfetch.StubFetcher{Delay: time.Hour, Response: netfetch.Response{Status: 200}}
	ctx.StartLoading(context.Background(), zone, tab, "https://slow.example", slow)

	fast := &netfetch.StubFetcher{Response: netfetch.Response{Status: 200, Body: []byte("ok")}}
	ctx.StartLoading(context.Background(), zone, tab, "https://fast.example", fast)

	deadline := time.After(time.Second)
	for {
		done, res, ok := ctx.PollLoading()
		if done && ok {
			if res.Response.URL != "https://fast.example" {
				t.Fatalf("expected fast fetch to win, got %q", res.Response.URL)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for fast load to complete")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestViewportResizeMarksDirty(t *testing.T) {
	ctx := New()
	ctx.SetViewport(geom.NewViewport(0, 0, 800, 600))
	_ = ctx.RebuildRenderList(geom.White, geom.Black)
	ctx.SetViewport(geom.NewViewport(0, 0, 1024, 768))
	if !ctx.Dirty().Layout {
		t.Fatalf("expected resize to mark layout dirty")
	}
}
