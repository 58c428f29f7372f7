package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// New builds a logger writing to w. Format "json" emits one JSON object per
// line; anything else uses the console writer. Unknown levels fall back to info.
func New(level, format string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	logger := &log.Logger{
		Level:      parseLevel(level),
		TimeFormat: "15:04:05",
	}
	if strings.EqualFold(format, "json") {
		logger.Writer = &log.IOWriter{Writer: w}
		logger.TimeFormat = ""
	} else {
		logger.Writer = &log.ConsoleWriter{Writer: w, ColorOutput: false, QuoteString: true}
	}
	return logger
}

// Discard returns a logger that drops everything. Used by tests and library
// callers that do not configure logging.
func Discard() *log.Logger {
	return &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
