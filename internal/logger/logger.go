package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogger hclog.Logger = hclog.New(&hclog.LoggerOptions{
		Name:  "watchlist",
		Level: hclog.Info,
	})
	defaultMu sync.RWMutex
)

// New builds the root logger from the logging section of the config.
// The returned closer releases the rotating log file, if any.
func New(cfg config.LoggingConfig) (hclog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, nil, err
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxFileSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
		}
		out = io.MultiWriter(os.Stderr, rotating)
		closer = rotating
	}

	color := hclog.ColorOff
	if cfg.EnableColors && cfg.FilePath == "" {
		color = hclog.AutoColor
	}

	l := hclog.New(&hclog.LoggerOptions{
		Name:       "watchlist",
		Level:      hclog.LevelFromString(cfg.Level),
		Output:     out,
		JSONFormat: cfg.Format == "json",
		Color:      color,
	})
	return l, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetDefault replaces the logger used by the package-level helpers
func SetDefault(l hclog.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the logger used by the package-level helpers
func Default() hclog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Info logs informational messages with key/value pairs
func Info(msg string, args ...interface{}) {
	Default().Info(msg, args...)
}

// Warn logs warning messages
func Warn(msg string, args ...interface{}) {
	Default().Warn(msg, args...)
}

// Error logs error messages
func Error(msg string, args ...interface{}) {
	Default().Error(msg, args...)
}

// Debug logs debug messages
func Debug(msg string, args ...interface{}) {
	Default().Debug(msg, args...)
}
