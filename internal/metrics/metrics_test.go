package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecordLoadUpdatesCountersByOutcome(t *testing.T) {
	c := New()
	c.RecordLoad(time.Now().Add(-10*time.Millisecond), true)
	c.RecordLoad(time.Now().Add(-5*time.Millisecond), false)

	body := scrape(t, c)
	if !strings.Contains(body, "tabengine_loads_finished_total 1") {
		t.Fatalf("expected loads_finished_total=1 in:\n%s", body)
	}
	if !strings.Contains(body, "tabengine_loads_failed_total 1") {
		t.Fatalf("expected loads_failed_total=1 in:\n%s", body)
	}
}

func TestRecordRenderIncrementsFrameCounter(t *testing.T) {
	c := New()
	c.RecordRender(2 * time.Millisecond)
	c.RecordRender(3 * time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, "tabengine_frames_rendered_total 2") {
		t.Fatalf("expected frames_rendered_total=2 in:\n%s", body)
	}
}

func TestStorageAndCookieOpsLabeled(t *testing.T) {
	c := New()
	c.StorageOps.WithLabelValues("set").Inc()
	c.StorageOps.WithLabelValues("set").Inc()
	c.CookieOps.WithLabelValues("store").Inc()

	body := scrape(t, c)
	if !strings.Contains(body, `tabengine_storage_ops_total{op="set"} 2`) {
		t.Fatalf("expected storage_ops_total{op=set}=2 in:\n%s", body)
	}
	if !strings.Contains(body, `tabengine_cookie_ops_total{op="store"} 1`) {
		t.Fatalf("expected cookie_ops_total{op=store}=1 in:\n%s", body)
	}
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}
