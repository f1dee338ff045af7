package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	logFilePrefix   = "events-"
	logFileSuffix   = ".log"
	cleanupInterval = 24 * time.Hour
)

// RotatingLogger is an io.Writer over weekly log files. A new file is started
// at each ISO week boundary and whenever the current one would exceed
// maxFileSize. Files older than the retention period are removed daily.
type RotatingLogger struct {
	dir         string
	retention   time.Duration
	maxFileSize int64
	now         func() time.Time

	mu   sync.Mutex
	file *os.File
	week string
	seq  int
	size int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenRotatingLogger creates dir if needed, opens the file for the current
// week and starts the retention sweep. maxFileSize <= 0 disables size rotation.
func OpenRotatingLogger(dir string, retentionWeeks int, maxFileSize int64) (*RotatingLogger, error) {
	rl := newRotatingLogger(dir, retentionWeeks, maxFileSize, time.Now)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	rl.mu.Lock()
	err := rl.openWeek(getWeekKey(rl.now()))
	rl.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rl.done = make(chan struct{})
	go rl.sweep()
	return rl, nil
}

func newRotatingLogger(dir string, retentionWeeks int, maxFileSize int64, now func() time.Time) *RotatingLogger {
	return &RotatingLogger{
		dir:         dir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         now,
		stop:        make(chan struct{}),
	}
}

// getWeekKey returns the ISO week in YYYY-Www form
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func logFileName(week string, seq int) string {
	if seq == 0 {
		return logFilePrefix + week + logFileSuffix
	}
	return fmt.Sprintf("%s%s_%02d%s", logFilePrefix, week, seq, logFileSuffix)
}

// openWeek opens the first file of week that still has room. Caller holds mu.
func (rl *RotatingLogger) openWeek(week string) error {
	seq := 0
	if rl.maxFileSize > 0 {
		for {
			info, err := os.Stat(filepath.Join(rl.dir, logFileName(week, seq)))
			if err != nil || info.Size() < rl.maxFileSize {
				break
			}
			seq++
		}
	}
	return rl.openFile(week, seq)
}

// openFile switches to the given file, appending if it exists. Caller holds mu.
func (rl *RotatingLogger) openFile(week string, seq int) error {
	path := filepath.Join(rl.dir, logFileName(week, seq))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var size int64
	if info, statErr := file.Stat(); statErr == nil {
		size = info.Size()
	}

	if rl.file != nil {
		if closeErr := rl.file.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", closeErr)
		}
	}
	rl.file = file
	rl.week = week
	rl.seq = seq
	rl.size = size
	return nil
}

// Write appends p to the current file, rotating first when needed
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(rl.now())
	switch {
	case week != rl.week || rl.file == nil:
		if err := rl.openWeek(week); err != nil {
			return 0, err
		}
	case rl.maxFileSize > 0 && rl.size > 0 && rl.size+int64(len(p)) > rl.maxFileSize:
		if err := rl.openFile(week, rl.seq+1); err != nil {
			return 0, err
		}
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// CurrentFile returns the name of the file being written
func (rl *RotatingLogger) CurrentFile() string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return logFileName(rl.week, rl.seq)
}

// cleanupOldLogs removes log files last modified before the retention cutoff
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	current := rl.CurrentFile()
	cutoff := rl.now().Add(-rl.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == current || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (rl *RotatingLogger) sweep() {
	defer close(rl.done)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		if removed, err := rl.cleanupOldLogs(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to clean up old logs: %v\n", err)
		} else if removed > 0 {
			// straight to stdout, the slog handlers write into this logger
			fmt.Printf("Cleaned up %d old log files\n", removed)
		}

		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}
	}
}

// Close stops the retention sweep and closes the current file
func (rl *RotatingLogger) Close() error {
	var err error
	rl.closeOnce.Do(func() {
		close(rl.stop)

		if rl.done != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			select {
			case <-rl.done:
			case <-ctx.Done():
				fmt.Fprintln(os.Stderr, "log cleanup goroutine did not stop in time")
			}
		}

		rl.mu.Lock()
		defer rl.mu.Unlock()
		if rl.file != nil {
			err = rl.file.Close()
			rl.file = nil
		}
	})
	return err
}

// multiHandler fans a record out to every handler that accepts its level
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
