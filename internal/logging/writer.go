package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	AllPath     string
	FailurePath string
	MaxMB       int
	MaxBackups  int
}

// Writer fans records out to the all-attempts log and, for windows
// with loss or an error, the failure-only log. Rotation is delegated
// to lumberjack on both files.
type Writer struct {
	mu   sync.Mutex
	all  *lumberjack.Logger
	fail *lumberjack.Logger
}

// New verifies both destinations are writable before monitoring
// starts; lumberjack itself would not open the files until the first
// record arrives, which is too late to abort cleanly.
func New(cfg Config) (*Writer, error) {
	for _, p := range []string{cfg.AllPath, cfg.FailurePath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log %s: %w", p, err)
		}
		_ = f.Close()
	}

	return &Writer{
		all:  newRotator(cfg.AllPath, cfg),
		fail: newRotator(cfg.FailurePath, cfg),
	}, nil
}

func newRotator(path string, cfg Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxMB,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
		Compress:   false,
	}
}

// Append writes the record's line. One line is one Write call, so a
// rotation can never split it across files.
func (w *Writer) Append(rec Record) error {
	line := []byte(rec.Line() + "\n")

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.all.Write(line); err != nil {
		return fmt.Errorf("all-attempts log: %w", err)
	}
	if rec.Failed() {
		if _, err := w.fail.Write(line); err != nil {
			return fmt.Errorf("failure log: %w", err)
		}
	}

	return nil
}

func (w *Writer) Close() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	allErr := w.all.Close()
	failErr := w.fail.Close()
	if allErr != nil {
		return allErr
	}

	return failErr
}
