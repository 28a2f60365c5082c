package tool

import (
	"strings"

	"github.com/charmbracelet/log"
)

var DefaultLogger = log.Default()

func InitLogger() {
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	DefaultLogger.SetReportCaller(true)
}

// SetLogMode maps the -log flag (dev|prod|none) onto a level.
func SetLogMode(mode string) {
	switch strings.ToLower(mode) {
	case "", "dev", "debug":
		DefaultLogger.SetLevel(log.DebugLevel)
	case "prod", "info":
		DefaultLogger.SetLevel(log.InfoLevel)
	case "warn":
		DefaultLogger.SetLevel(log.WarnLevel)
	case "none":
		DefaultLogger.SetLevel(log.FatalLevel)
	default:
		DefaultLogger.Warnf("Unknown log mode %q, using debug level", mode)
		DefaultLogger.SetLevel(log.DebugLevel)
	}
}

// SessionLogger returns a child logger tagged with the peer endpoint id.
func SessionLogger(endpointID string) *log.Logger {
	return DefaultLogger.With("endpoint", endpointID)
}
