// Package logger wraps zap into the structured logger the engine and its
// host binaries use: JSON or console encoding, optional file rotation via
// lumberjack, and an async core so a hot per-frame log call on a tab
// worker never blocks behind disk I/O.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls how New builds a logger.
type Config struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // "json" or "console"
	Output      string `yaml:"output"` // "stdout", "stderr", or a file path
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	Compress    bool   `yaml:"compress"`
	Async       bool   `yaml:"async"`
	AsyncBuffer int    `yaml:"async_buffer"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns console logging at info level, suitable for a
// demo host binary; production hosts typically set Output to a file path
// and Format to "json".
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "console",
		Output:      "stdout",
		MaxSizeMB:   100,
		MaxBackups:  5,
		MaxAgeDays:  30,
		Compress:    true,
		AsyncBuffer: 2048,
	}
}

// New builds a *zap.Logger from cfg. Every engine component that accepts
// a logger takes this concrete type directly rather than an interface,
// matching the rest of the stack's use of zap.Field call sites.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	ec := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Development {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeCaller = zapcore.FullCallerEncoder
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(ec)
	case "json":
		encoder = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	ws, err := newWriteSyncer(cfg)
	if err != nil {
		return nil, err
	}

	var core zapcore.Core = zapcore.NewCore(encoder, ws, level)
	if cfg.Async {
		core = newAsyncCore(core, cfg.AsyncBuffer)
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown level %q", level)
	}
}

func newWriteSyncer(cfg Config) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		if dir := filepath.Dir(cfg.Output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("logger: create log dir: %w", err)
			}
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		return zapcore.AddSync(lj), nil
	}
}

// asyncCore buffers Write calls through a channel drained by one
// goroutine, so a tab worker's render-loop logging never stalls on a
// rotating file's fsync. A full buffer falls back to a synchronous write
// rather than dropping the entry. Loggers derived with With write through
// the wrapped core directly, without buffering.
type asyncCore struct {
	zapcore.Core
	entries chan asyncEntry
	done    chan struct{}
	wg      sync.WaitGroup
}

type asyncEntry struct {
	entry  zapcore.Entry
	fields []zapcore.Field
}

func newAsyncCore(inner zapcore.Core, bufferSize int) *asyncCore {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	c := &asyncCore{
		Core:    inner,
		entries: make(chan asyncEntry, bufferSize),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.drain()
	return c
}

func (c *asyncCore) drain() {
	defer c.wg.Done()
	for {
		select {
		case e := <-c.entries:
			c.write(e)
		case <-c.done:
			for {
				select {
				case e := <-c.entries:
					c.write(e)
				default:
					return
				}
			}
		}
	}
}

func (c *asyncCore) write(e asyncEntry) {
	if ce := c.Core.Check(e.entry, nil); ce != nil {
		ce.Write(e.fields...)
	}
}

// Check registers this core (not the wrapped one) for enabled entries, so
// that zap routes them through Write and its buffer.
func (c *asyncCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *asyncCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	select {
	case c.entries <- asyncEntry{entry, fields}:
		return nil
	default:
		return c.Core.Write(entry, fields)
	}
}

func (c *asyncCore) Sync() error {
	close(c.done)
	c.wg.Wait()
	return c.Core.Sync()
}
