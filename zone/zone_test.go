package zone

import (
	"context"
	"testing"
	"time"

	"tabengine/ids"
	"tabengine/netfetch"
	"tabengine/render/backends/null"
	"tabengine/storage"
	"tabengine/tab"
)

func newTestZone(maxTabs int) *Zone {
	events := make(chan tab.Event, 256)
	go func() {
		for range events {
		}
	}()
	svc := Services{
		Storage: storage.NewService(storage.NewInMemoryLocalStore(), storage.NewInMemorySessionStore()),
		Fetcher: &netfetch.StubFetcher{Response: netfetch.Response{Status: 200, Body: []byte("ok")}},
	}
	return New(Config{MaxTabs: maxTabs}, svc, null.New(), events, nil)
}

func TestCreateAndCloseTab(t *testing.T) {
	z := newTestZone(4)
	handle, err := z.CreateTab(context.Background(), TabOverrides{})
	if err != nil {
		t.Fatalf("create tab: %v", err)
	}
	if len(z.ListTabs()) != 1 {
		t.Fatalf("expected 1 tab listed")
	}
	if err := z.CloseTab(context.Background(), handle.ID()); err != nil {
		t.Fatalf("close tab: %v", err)
	}
	if len(z.ListTabs()) != 0 {
		t.Fatalf("expected 0 tabs after close")
	}
}

func TestMaxTabsEnforced(t *testing.T) {
	z := newTestZone(2)
	ctx := context.Background()
	if _, err := z.CreateTab(ctx, TabOverrides{}); err != nil {
		t.Fatalf("create tab 1: %v", err)
	}
	if _, err := z.CreateTab(ctx, TabOverrides{}); err != nil {
		t.Fatalf("create tab 2: %v", err)
	}
	if _, err := z.CreateTab(ctx, TabOverrides{}); err != ErrTabLimitExceeded {
		t.Fatalf("expected ErrTabLimitExceeded, got %v", err)
	}
	if len(z.ListTabs()) != 2 {
		t.Fatalf("expected tab count unaffected by rejected create, got %d", len(z.ListTabs()))
	}
}

func TestDeriveColorIsStable(t *testing.T) {
	id := ids.NewZoneId()
	c1 := DeriveColor(id)
	c2 := DeriveColor(id)
	if c1 != c2 {
		t.Fatalf("expected deterministic color for the same zone id")
	}
}

func TestCloseUnknownTab(t *testing.T) {
	z := newTestZone(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := z.CloseTab(ctx, ids.NewTabId()); err != ErrTabNotFound {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
}
