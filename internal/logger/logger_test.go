package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewConsoleLogger(t *testing.T) {
	cfg := DefaultConfig()
	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("hello", zap.Int("n", 1))
	if err := log.Sync(); err != nil {
		t.Logf("sync: %v", err) // stdout sync commonly errors on some platforms
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "xml"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNewFileOutputCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = filepath.Join(dir, "nested", "engine.log")
	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("written")
	_ = log.Sync()
}

func TestAsyncCoreFallsBackWhenBufferFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Async = true
	cfg.AsyncBuffer = 1
	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 100; i++ {
		log.Info("burst")
	}
	_ = log.Sync()
}
