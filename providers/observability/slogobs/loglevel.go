package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLogLevel parses a level name (case-insensitive, surrounding
// whitespace trimmed) into a slog.Level. Unrecognized input returns
// slog.LevelInfo.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return slog.LevelDebug - 4
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogLevelFromEnv retrieves the log level from environment variables.
// It checks PIPELINE_LOG_LEVEL first, then falls back to LOG_LEVEL. If
// neither is set, it returns slog.LevelInfo (default).
func GetLogLevelFromEnv() slog.Level {
	if level := os.Getenv("PIPELINE_LOG_LEVEL"); level != "" {
		return ParseLogLevel(level)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return ParseLogLevel(level)
	}
	return slog.LevelInfo
}

// LogLevelString returns the canonical upper-case name for level.
func LogLevelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return level.String()
	}
}
