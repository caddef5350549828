package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
)

// InitLogging initializes logging
func InitLogging(level, format string) {
	InitLoggingWithWriter(level, format, os.Stdout)
}

// InitLoggingWithWriter initializes logging against an arbitrary writer
func InitLoggingWithWriter(level, format string, w io.Writer) {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", "foodsnap-core").
		Logger()

	mu.Lock()
	logger = l
	mu.Unlock()
}

func parseLevel(v string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Debugf logs debug level messages
func Debugf(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
}

// Warnf logs warn level messages
func Warnf(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
}
