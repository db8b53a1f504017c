package utils

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// InitLogger configures the process-wide slog logger. The level is read from
// AICBOT_LOG_LEVEL (error, warn, info, debug); default is info.
func InitLogger() {
	loggerOnce.Do(func() {
		level := slog.LevelInfo
		switch strings.ToLower(os.Getenv("AICBOT_LOG_LEVEL")) {
		case "error":
			level = slog.LevelError
		case "warn":
			level = slog.LevelWarn
		case "debug":
			level = slog.LevelDebug
		}

		handler := tint.NewHandler(os.Stderr, &tint.Options{Level: level})
		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// GetLogger returns the process logger, initializing it if needed.
func GetLogger() *slog.Logger {
	InitLogger()
	return logger
}

// MaskSensitiveString redacts all but the first and last two characters of a
// credential for logging.
func MaskSensitiveString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
