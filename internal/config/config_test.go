package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "max_zones: 8\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxZones != 8 {
		t.Fatalf("expected override max_zones=8, got %d", cfg.MaxZones)
	}
	if cfg.MaxTabsPerZone != Default().MaxTabsPerZone {
		t.Fatalf("expected default max_tabs_per_zone, got %d", cfg.MaxTabsPerZone)
	}
}

func TestLoadParsesDurationStrings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "tab_init_timeout: 5s\nfetch_timeout: 1m\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TabInitTimeout.AsDuration() != 5*time.Second {
		t.Fatalf("expected 5s, got %v", cfg.TabInitTimeout.AsDuration())
	}
	if cfg.FetchTimeout.AsDuration() != time.Minute {
		t.Fatalf("expected 1m, got %v", cfg.FetchTimeout.AsDuration())
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "tab_init_timeout: not-a-duration\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestEnsureExistsWritesDefaultOnlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cfg.yaml")
	if err := EnsureExists(path); err != nil {
		t.Fatalf("ensure exists: %v", err)
	}
	info1, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := EnsureExists(path); err != nil {
		t.Fatalf("ensure exists (again): %v", err)
	}
	info2, _ := os.Stat(path)
	if info1.ModTime() != info2.ModTime() {
		t.Fatalf("expected EnsureExists to be a no-op when file already exists")
	}
}

func TestDiffReportsChangedFieldsOnly(t *testing.T) {
	old := Default()
	updated := Default()
	updated.MaxZones = 99
	updated.LogLevel = "debug"

	changed := Diff(old, updated)
	want := map[string]bool{"max_zones": true, "log_level": true}
	if len(changed) != len(want) {
		t.Fatalf("expected %d changed fields, got %v", len(want), changed)
	}
	for _, c := range changed {
		if !want[c] {
			t.Fatalf("unexpected changed field %q", c)
		}
	}
}

func TestReloaderPicksUpFileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "max_zones: 4\n")

	r := NewReloader(path, nil)
	if err := r.Load(); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	if r.Config().MaxZones != 4 {
		t.Fatalf("expected initial max_zones=4, got %d", r.Config().MaxZones)
	}

	changed := make(chan []string, 1)
	r.OnChange(func(updated Config, fields []string) {
		changed <- fields
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.Stop()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "cfg.yaml", "max_zones: 16\n")

	select {
	case fields := <-changed:
		found := false
		for _, f := range fields {
			if f == "max_zones" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected max_zones in changed fields, got %v", fields)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for reload callback")
	}

	deadline := time.After(2 * time.Second)
	for r.Config().MaxZones != 16 {
		select {
		case <-deadline:
			t.Fatalf("config never updated, still %d", r.Config().MaxZones)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
