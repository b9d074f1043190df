// Package logger provides tagged console/JSON logging on top of zerolog.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// stdout resolves os.Stdout on every write so redirection after start-up
// (tests, pipes) is honoured.
type stdout struct{}

func (stdout) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

var (
	mu   sync.RWMutex
	base = newLogger("console")
)

func newLogger(format string) zerolog.Logger {
	if format == "json" {
		return zerolog.New(stdout{}).With().Timestamp().Logger()
	}
	w := zerolog.ConsoleWriter{
		Out:        stdout{},
		TimeFormat: time.TimeOnly,
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Configure sets the global level ("debug", "info", "warn", "error") and the
// output format ("console" or "json"). Unknown levels fall back to info.
func Configure(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	base = newLogger(format).Level(lvl)
	mu.Unlock()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debug logs a debug message under tag.
func Debug(tag, msg string) {
	l := current()
	l.Debug().Str("tag", tag).Msg(msg)
}

// Info logs an informational message under tag.
func Info(tag, msg string) {
	l := current()
	l.Info().Str("tag", tag).Msg(msg)
}

// Success logs a completed step under tag.
func Success(tag, msg string) {
	l := current()
	l.Info().Str("tag", tag).Bool("ok", true).Msg(msg)
}

// Warn logs a recoverable problem under tag.
func Warn(tag, msg string) {
	l := current()
	l.Warn().Str("tag", tag).Msg(msg)
}

// Error logs a failure under tag.
func Error(tag, msg string) {
	l := current()
	l.Error().Str("tag", tag).Msg(msg)
}

// Banner logs the application start line.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	l := current()
	l.Info().Str("version", version).Msg("tradeup finder")
}

// Section logs a section heading.
func Section(title string) {
	l := current()
	l.Info().Msg("── " + title + " ──")
}

// Stats logs a single key/value statistic.
func Stats(key string, value interface{}) {
	l := current()
	l.Info().Interface(key, value).Msg("stat")
}
