// Command enginehost runs the tab engine as a standalone process: it
// loads config, wires up structured logging and metrics, starts the
// render backend, and exposes a Prometheus /metrics endpoint plus an
// optional debug WebSocket stream of engine events. It is a thin host
// around the engine package, not part of the engine's public API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tabengine/engine"
	"tabengine/internal/config"
	"tabengine/internal/logger"
	"tabengine/internal/metrics"
	"tabengine/partition"
	"tabengine/render"
	"tabengine/render/backends/cpuraster"
	"tabengine/render/backends/null"
	"tabengine/zone"
)

const banner = `
 _        _                       _
| |_ __ _| |__   ___ _ __   __ _ (_)_ __   ___
| __/ _` + "`" + ` | '_ \ / _ \ '_ \ / _` + "`" + ` || | '_ \ / _ \
| || (_| | |_) |  __/ | | | (_| || | | | |  __/
 \__\__,_|_.__/ \___|_| |_|\__, ||_|_| |_|\___|
                           |___/
`

func main() {
	var (
		configPath  = flag.String("config", "enginehost.yaml", "path to the engine host config file")
		backendFlag = flag.String("backend", "cpuraster", "render backend: cpuraster or null")
		debugAddr   = flag.String("debug-addr", "", "address to serve the debug WebSocket bridge on (empty disables it)")
	)
	flag.Parse()

	fmt.Println(banner)

	if err := config.EnsureExists(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "enginehost: seed config: %v\n", err)
		os.Exit(1)
	}

	reloader := config.NewReloader(*configPath, nil)
	if err := reloader.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "enginehost: load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	cfg := reloader.Config()

	log, err := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "enginehost: build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	reloader.OnChange(func(updated config.Config, changed []string) {
		log.Info("config change detected", zap.Strings("fields", changed))
	})

	log.Info("starting enginehost",
		zap.String("config", *configPath),
		zap.String("backend", *backendFlag),
	)

	collector := metrics.New()

	eng := engine.New(engine.Config{
		MaxZones: cfg.MaxZones,
		DefaultZone: zone.Config{
			MaxTabs: cfg.MaxTabsPerZone,
		},
		PartitionPolicy: parsePartitionPolicy(cfg.PartitionPolicy),
		EventBufferSize: cfg.EventBufferSize,
	}, selectBackend(*backendFlag), log)

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	bridge := newDebugBridge()
	go bridge.pump(eng.Events())
	if *debugAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/debug/events", bridge)
		srv := &http.Server{Addr: *debugAddr, Handler: mux}
		go func() {
			log.Info("debug bridge listening", zap.String("addr", *debugAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("debug bridge server failed", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if err := reloader.Start(ctx); err != nil {
		log.Warn("config hot-reload disabled", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		reloader.Stop()
		eng.Shutdown()
		cancel()
	}()

	log.Info("enginehost ready")
	<-ctx.Done()
	log.Info("enginehost stopped")
}

func selectBackend(name string) render.Backend {
	switch name {
	case "null":
		return null.New()
	default:
		return cpuraster.New()
	}
}

func parsePartitionPolicy(name string) partition.Policy {
	if name == "none" {
		return partition.PolicyNone
	}
	return partition.PolicyTopLevelOrigin
}
