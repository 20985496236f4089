package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

// wireDebug mirrors libwayland's WAYLAND_DEBUG switch.
var wireDebug bool

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	Logger.SetLevel(levelFromString(os.Getenv("LOG_LEVEL")))

	switch os.Getenv("WAYLAND_DEBUG") {
	case "1", "server":
		wireDebug = true
	}
}

func levelFromString(s string) log.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return log.DebugLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "FATAL":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// SetLevel overrides the level chosen from LOG_LEVEL. An empty string is ignored.
func SetLevel(level string) {
	if level == "" {
		return
	}
	Logger.SetLevel(levelFromString(level))
}

// SetOutput redirects log output, used by the TUI so logs don't tear the screen.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// WireDebug reports whether protocol messages should be traced.
func WireDebug() bool {
	return wireDebug
}

// With returns a child logger carrying a component prefix.
func With(prefix string) *log.Logger {
	return Logger.WithPrefix(prefix)
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
}
