package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc is invoked, in its own goroutine, each time the watched
// file is reloaded successfully.
type ChangeFunc func(updated Config, changed []string)

// Reloader watches a config file and keeps an atomically-swapped Config
// in sync with it, debouncing the burst of fsnotify events a single
// editor save typically produces.
type Reloader struct {
	path string

	mu  sync.RWMutex
	cfg Config

	cbMu      sync.Mutex
	callbacks []ChangeFunc

	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	log *zap.Logger
}

// NewReloader builds a Reloader for path. Call Load before Start to get
// an initial Config synchronously.
func NewReloader(path string, log *zap.Logger) *Reloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reloader{path: path, debounce: 500 * time.Millisecond, log: log}
}

// OnChange registers a callback for future successful reloads.
func (r *Reloader) OnChange(fn ChangeFunc) {
	r.cbMu.Lock()
	r.callbacks = append(r.callbacks, fn)
	r.cbMu.Unlock()
}

// Config returns the most recently loaded configuration.
func (r *Reloader) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Load performs a synchronous initial read.
func (r *Reloader) Load() error {
	cfg, err := Load(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	return nil
}

// Start begins watching the config file's directory for writes/renames
// (so atomic-rename-on-save editors are caught) and debounces bursts
// into a single reload.
func (r *Reloader) Start(ctx context.Context) error {
	if r.cancel != nil {
		return fmt.Errorf("config: reloader already started")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	r.watcher = w

	watchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go r.watch(watchCtx)
	return nil
}

// Stop closes the watcher and waits for the watch goroutine to exit.
func (r *Reloader) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.watcher.Close()
	r.wg.Wait()
}

func (r *Reloader) watch(ctx context.Context) {
	defer r.wg.Done()
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(r.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("config watcher error", zap.Error(err))

		case <-reload:
			r.doReload()
		}
	}
}

func (r *Reloader) doReload() {
	updated, err := Load(r.path)
	if err != nil {
		r.log.Warn("config reload failed", zap.String("path", r.path), zap.Error(err))
		return
	}
	r.mu.Lock()
	old := r.cfg
	r.cfg = updated
	r.mu.Unlock()

	changed := Diff(old, updated)
	if len(changed) == 0 {
		return
	}
	r.log.Info("config reloaded", zap.Strings("changed", changed))

	r.cbMu.Lock()
	callbacks := append([]ChangeFunc(nil), r.callbacks...)
	r.cbMu.Unlock()
	for _, cb := range callbacks {
		go cb(updated, changed)
	}
}

// EnsureExists writes a default config file at path if nothing exists
// there yet, so a host's first run doesn't require hand-authoring YAML.
func EnsureExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	return os.WriteFile(path, []byte(defaultYAML), 0o644)
}

const defaultYAML = `log_level: info
log_format: console
log_output: stdout
max_zones: 32
max_tabs_per_zone: 64
event_buffer_size: 1024
command_buffer: 256
partition_policy: top_level_origin
active_tick_ms: 16
background_live_tick_ms: 100
background_idle_tick_ms: 1000
tab_init_timeout: 3s
fetch_timeout: 30s
metrics_addr: ":9090"
`
