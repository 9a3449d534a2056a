package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/evdash/config"
	corelogger "github.com/kilianp07/evdash/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
	rotate *lumberjack.Logger
)

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	mu.RLock()
	w := output
	mu.RUnlock()
	return NewZerologLogger(component, w)
}

// Configure applies the logging section: global level and optional rotated
// file output teed with stdout.
func Configure(cfg config.LoggingConfig) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("logging level: %w", err)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	mu.Lock()
	defer mu.Unlock()
	if rotate != nil {
		_ = rotate.Close()
		rotate = nil
	}
	if cfg.File == "" {
		output = os.Stdout
		return nil
	}
	rotate = &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	output = io.MultiWriter(os.Stdout, rotate)
	return nil
}

// Close flushes and closes the rotated log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	output = os.Stdout
	if rotate == nil {
		return nil
	}
	err := rotate.Close()
	rotate = nil
	return err
}
