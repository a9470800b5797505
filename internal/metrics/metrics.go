// Package metrics exposes the engine's runtime counters via
// prometheus/client_golang: zone/tab population, render throughput, and
// storage/cookie traffic, scraped over HTTP by a host's /metrics route.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every engine-level prometheus metric. Hosts construct
// one per process and update it through its Record* methods or its
// exported metrics; the engine, zone and tab packages do not take a
// Collector, and nothing about the engine core depends on this package.
type Collector struct {
	registry *prometheus.Registry

	ActiveZones prometheus.Gauge
	ActiveTabs  prometheus.Gauge

	TabsCreated prometheus.Counter
	TabsClosed  prometheus.Counter

	LoadsStarted  prometheus.Counter
	LoadsFinished prometheus.Counter
	LoadsFailed   prometheus.Counter
	LoadDuration  prometheus.Histogram

	FramesRendered prometheus.Counter
	RenderDuration prometheus.Histogram

	StorageOps *prometheus.CounterVec
	CookieOps  *prometheus.CounterVec
}

// New builds a Collector with a private registry (so multiple Engines in
// one process, e.g. in tests, don't collide on prometheus's global
// DefaultRegisterer).
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		ActiveZones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tabengine", Name: "active_zones", Help: "Number of currently open zones.",
		}),
		ActiveTabs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tabengine", Name: "active_tabs", Help: "Number of currently open tabs across all zones.",
		}),
		TabsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "tabs_created_total", Help: "Tabs created since process start.",
		}),
		TabsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "tabs_closed_total", Help: "Tabs closed since process start.",
		}),
		LoadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "loads_started_total", Help: "Navigations started since process start.",
		}),
		LoadsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "loads_finished_total", Help: "Navigations that completed successfully.",
		}),
		LoadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "loads_failed_total", Help: "Navigations that failed.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tabengine", Name: "load_duration_seconds", Help: "Time from load start to completion or failure.",
			Buckets: prometheus.DefBuckets,
		}),
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "frames_rendered_total", Help: "Completed Render calls across all tabs.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tabengine", Name: "render_duration_seconds", Help: "Wall time spent inside a backend's Render call.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		StorageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "storage_ops_total", Help: "Storage area operations by kind.",
		}, []string{"op"}),
		CookieOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabengine", Name: "cookie_ops_total", Help: "Cookie jar operations by kind.",
		}, []string{"op"}),
	}
	reg.MustRegister(
		c.ActiveZones, c.ActiveTabs, c.TabsCreated, c.TabsClosed,
		c.LoadsStarted, c.LoadsFinished, c.LoadsFailed, c.LoadDuration,
		c.FramesRendered, c.RenderDuration, c.StorageOps, c.CookieOps,
	)
	return c
}

// Handler returns the http.Handler a host mounts at its metrics route.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordLoad observes a completed or failed navigation's duration and
// bumps the matching outcome counter.
func (c *Collector) RecordLoad(started time.Time, ok bool) {
	c.LoadDuration.Observe(time.Since(started).Seconds())
	if ok {
		c.LoadsFinished.Inc()
	} else {
		c.LoadsFailed.Inc()
	}
}

// RecordRender observes one backend Render call's wall time.
func (c *Collector) RecordRender(elapsed time.Duration) {
	c.FramesRendered.Inc()
	c.RenderDuration.Observe(elapsed.Seconds())
}
