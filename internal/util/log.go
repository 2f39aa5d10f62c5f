package util

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"
)

func init() {
	l := &pterm.DefaultLogger
	l.ShowTime = true
	l.TimeFormat = "02 Jan 15:04:05"
	l.MaxWidth = 1000
}

// The Log* helpers format like fmt.Sprintf and write one entry to pterm's
// default logger: stderr until SetLogFile redirects it.

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// SetLogLevel sets the minimum level by name: debug, info, warn or error.
func SetLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		pterm.DefaultLogger.Level = pterm.LogLevelDebug
	case "info", "":
		pterm.DefaultLogger.Level = pterm.LogLevelInfo
	case "warn", "warning":
		pterm.DefaultLogger.Level = pterm.LogLevelWarn
	case "error":
		pterm.DefaultLogger.Level = pterm.LogLevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}

// LogFile describes a size-rotated log file.
type LogFile struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// SetLogFile sends all log output to a rotated JSON-lines file, leaving the
// terminal to the chat display. It returns a func that closes the file.
func SetLogFile(f LogFile) func() error {
	w := &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   f.Compress,
	}

	pterm.DefaultLogger.Writer = w
	pterm.DefaultLogger.Formatter = pterm.LogFormatterJSON

	return w.Close
}
