// Package logger holds the process-wide slog logger.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ErrInvalidLevel is returned for a level name other than debug, info, warn or error.
var ErrInvalidLevel = errors.New("invalid log level")

var (
	mu           sync.RWMutex
	globalLogger *slog.Logger
)

// ParseLevel converts a level name to a slog.Level. Matching is case-insensitive.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidLevel, level)
}

// InitLogger installs a text logger on stderr. Standard output is kept free
// for dump output.
func InitLogger(level string) error {
	return InitLoggerTo(os.Stderr, level)
}

// InitLoggerTo installs a text logger writing to w.
func InitLoggerTo(w io.Writer, level string) error {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel,
	})

	l := slog.New(handler)
	mu.Lock()
	globalLogger = l
	mu.Unlock()
	slog.SetDefault(l)
	return nil
}

// GetLogger returns the installed logger, or slog.Default before InitLogger.
func GetLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}
