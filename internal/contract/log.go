package contract

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	loggerMu sync.RWMutex
)

// InitLogger configures the process logger. Format is "console" or "json".
func InitLogger(level, format string) error {
	return InitLoggerWithWriter(os.Stderr, level, format)
}

// InitLoggerWithWriter configures the process logger to write to w.
func InitLoggerWithWriter(w io.Writer, level, format string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	out := w
	switch strings.ToLower(format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
	default:
		return fmt.Errorf("invalid log format '%s'. must be console, json", format)
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return nil
}

// Logger returns the process logger.
func Logger() *zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	l := logger
	return &l
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	Logger().Error().Err(err).Msg(msg)
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	Logger().Warn().Err(err).Msg(msg)
}

// LogInfo logs an informational message with optional key/value pairs.
func LogInfo(msg string, kv ...any) {
	Logger().Info().Fields(kv).Msg(msg)
}

// LogDebug logs a debug message with optional key/value pairs.
func LogDebug(msg string, kv ...any) {
	Logger().Debug().Fields(kv).Msg(msg)
}
