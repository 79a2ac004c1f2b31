package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatingWriter is an io.WriteCloser that appends to a log file and rotates
// it by size. Each generator run is short-lived, so pruning of old backups
// happens synchronously during rotation instead of in a background goroutine.
type RotatingWriter struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	size       int64
	maxBytes   int64
	maxBackups int
	maxAgeDays int
	now        func() time.Time
}

// NewRotatingWriter opens the log file (creating it and its directory if
// needed). Rotated files are named <base>-<timestamp><ext>; at most
// maxBackups are kept and those older than maxAgeDays are removed.
func NewRotatingWriter(filePath string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingWriter, error) {
	rw := &RotatingWriter{
		filePath:   filePath,
		maxBytes:   int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
		maxAgeDays: maxAgeDays,
		now:        time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	if err := rw.openFile(); err != nil {
		return nil, err
	}

	return rw, nil
}

func (rw *RotatingWriter) openFile() error {
	f, err := os.OpenFile(rw.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	rw.file = f
	rw.size = info.Size()
	return nil
}

// Write implements io.Writer, rotating first if p would push the file past
// the size limit. An empty file is never rotated.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size > 0 && rw.size+int64(len(p)) > rw.maxBytes {
		if err := rw.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// Close closes the underlying file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}

func (rw *RotatingWriter) splitPath() (base, ext string) {
	ext = filepath.Ext(rw.filePath)
	base = strings.TrimSuffix(rw.filePath, ext)
	if ext == "" {
		ext = ".log"
	}
	return base, ext
}

// rotatedName picks a backup name that does not collide with an existing
// backup from the same second.
func (rw *RotatingWriter) rotatedName() string {
	base, ext := rw.splitPath()
	stamp := rw.now().Format("20060102-150405")
	name := fmt.Sprintf("%s-%s%s", base, stamp, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s-%s.%d%s", base, stamp, i, ext)
	}
}

func (rw *RotatingWriter) rotate() error {
	if rw.file != nil {
		rw.file.Close()
	}

	if err := os.Rename(rw.filePath, rw.rotatedName()); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}

	if err := rw.openFile(); err != nil {
		return err
	}

	rw.cleanup()
	return nil
}

func (rw *RotatingWriter) cleanup() {
	base, ext := rw.splitPath()
	base = filepath.Base(base)
	dir := filepath.Dir(rw.filePath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type backup struct {
		name    string
		modTime time.Time
	}
	prefix := base + "-"
	var rotated []backup
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) || name == filepath.Base(rw.filePath) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		rotated = append(rotated, backup{name: name, modTime: info.ModTime()})
	}

	// Oldest first. Same-second backups carry a sequence suffix, so
	// names alone do not order them.
	sort.Slice(rotated, func(i, j int) bool {
		if !rotated[i].modTime.Equal(rotated[j].modTime) {
			return rotated[i].modTime.Before(rotated[j].modTime)
		}
		return rotated[i].name < rotated[j].name
	})

	for len(rotated) > rw.maxBackups {
		os.Remove(filepath.Join(dir, rotated[0].name)) //nolint:errcheck
		rotated = rotated[1:]
	}

	cutoff := rw.now().AddDate(0, 0, -rw.maxAgeDays)
	for _, b := range rotated {
		if b.modTime.Before(cutoff) {
			os.Remove(filepath.Join(dir, b.name)) //nolint:errcheck
		}
	}
}
