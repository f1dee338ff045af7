// Package logging wires slog for the event counter API: a console handler,
// an optional weekly rotating JSON file, and package-level helpers that fall
// back to stderr before initialization.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/giygas/event-counter-api/config"
)

// Options configures the global logger
type Options struct {
	Dir            string
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Verbose        bool
	Console        io.Writer
}

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	serviceMu             sync.Mutex
)

// Init builds the global logger from opts and installs it as the slog default.
// An empty Dir logs to the console only. If the log directory cannot be
// prepared the console logger is still installed and the error returned.
func Init(opts Options) error {
	service, err := newService(opts)

	serviceMu.Lock()
	previous := DefaultLoggingService
	DefaultLoggingService = service
	serviceMu.Unlock()

	if previous != nil && previous.file != nil {
		_ = previous.file.Close()
	}
	slog.SetDefault(service.Logger)
	return err
}

func newService(opts Options) (*LoggingService, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.Dir == "" {
		return &LoggingService{Logger: slog.New(consoleHandler)}, nil
	}

	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}
	file, err := OpenRotatingLogger(opts.Dir, retention, opts.MaxFileSize)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("File logging disabled", "dir", opts.Dir, "error", err)
		return &LoggingService{Logger: logger}, err
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: GetFileLogLevel(),
	})
	return &LoggingService{
		Logger: slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}),
		file:   file,
	}, nil
}

// Close flushes and closes the log file, if any
func Close() error {
	serviceMu.Lock()
	service := DefaultLoggingService
	serviceMu.Unlock()

	if service == nil || service.file == nil {
		return nil
	}
	return service.file.Close()
}

// parseLogLevel maps LOG_LEVEL values to slog levels, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless verbose,
// an explicit LOG_LEVEL wins elsewhere, and staging/prod default to warn.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if level != "" {
		return parseLogLevel(level)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the file level; the file keeps everything
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func current() *slog.Logger {
	serviceMu.Lock()
	defer serviceMu.Unlock()
	if DefaultLoggingService == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, or slog's default before Init
func Logger() *slog.Logger {
	if logger := current(); logger != nil {
		return logger
	}
	return slog.Default()
}

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
