package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"driftpursuit/corridor/internal/config"
)

// backupStamp is appended to the simulator log path when a file is retired.
const backupStamp = "20060102T150405.000000000"

// rotatingWriter owns the simulator's active log file. Once the file would
// exceed maxSize it is renamed to a timestamped backup, optionally gzipped,
// and old backups are pruned by count and age.
type rotatingWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64

	maxSize    int64
	maxBackups int
	maxAge     time.Duration
	compress   bool
	now        func() time.Time
}

func newRotatingWriter(cfg config.LoggingConfig) (*rotatingWriter, error) {
	switch {
	case cfg.MaxSizeMB <= 0:
		return nil, fmt.Errorf("%s must be positive", config.EnvKey("log_max_size_mb"))
	case cfg.MaxBackups < 0:
		return nil, fmt.Errorf("%s must be non-negative", config.EnvKey("log_max_backups"))
	case cfg.MaxAgeDays < 0:
		return nil, fmt.Errorf("%s must be non-negative", config.EnvKey("log_max_age_days"))
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	w := &rotatingWriter{
		path:       cfg.Path,
		maxSize:    int64(cfg.MaxSizeMB) << 20,
		maxBackups: cfg.MaxBackups,
		maxAge:     time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		compress:   cfg.Compress,
		now:        time.Now,
	}
	if err := w.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return w, nil
}

// open attaches the writer to path, appending or truncating per mode.
func (w *rotatingWriter) open(mode int) error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = file
	w.size = info.Size()
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, errors.New("log file closed")
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.retireLocked(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close releases the active log file.
func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// retireLocked moves the current file aside and starts an empty one.
func (w *rotatingWriter) retireLocked() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil
	backup := w.path + "." + w.now().UTC().Format(backupStamp)
	if err := os.Rename(w.path, backup); err != nil {
		return err
	}
	if w.compress {
		//1.- A failed compression keeps the plain backup rather than losing it.
		if err := gzipFile(backup, backup+".gz"); err == nil {
			_ = os.Remove(backup)
		}
	}
	if err := w.pruneLocked(); err != nil {
		return err
	}
	return w.open(os.O_TRUNC)
}

type logBackup struct {
	path    string
	retired time.Time
}

// backups lists retired files for this log, newest first.
func (w *rotatingWriter) backups() ([]logBackup, error) {
	dir := filepath.Dir(w.path)
	prefix := filepath.Base(w.path) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var found []logBackup
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".gz")
		retired, err := time.Parse(backupStamp, stamp)
		if err != nil {
			continue
		}
		found = append(found, logBackup{path: filepath.Join(dir, name), retired: retired})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].retired.After(found[j].retired) })
	return found, nil
}

func (w *rotatingWriter) pruneLocked() error {
	found, err := w.backups()
	if err != nil {
		return err
	}
	cutoff := time.Time{}
	if w.maxAge > 0 {
		cutoff = w.now().UTC().Add(-w.maxAge)
	}
	for idx, backup := range found {
		overCount := w.maxBackups > 0 && idx >= w.maxBackups
		expired := !cutoff.IsZero() && backup.retired.Before(cutoff)
		if overCount || expired {
			_ = os.Remove(backup.path)
		}
	}
	return nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(out)
	_, copyErr := io.Copy(zw, in)
	closeErr := zw.Close()
	fileErr := out.Close()
	return errors.Join(copyErr, closeErr, fileErr)
}
