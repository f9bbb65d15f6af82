package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter appends to the host log file and rotates it once it grows
// past a size threshold, keeping a fixed number of numbered backups.
// It implements io.Writer and is safe for concurrent use.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	limit   int64 // bytes
	backups int
	written int64
}

// NewRotatingWriter opens path for appending, creating its directory if
// needed. The file rotates after maxSizeMB megabytes; backups controls how
// many rotated files to keep.
func NewRotatingWriter(path string, maxSizeMB, backups int) (*RotatingWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	if backups <= 0 {
		backups = 3
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	rw := &RotatingWriter{
		path:    path,
		limit:   int64(maxSizeMB) << 20,
		backups: backups,
	}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// Write implements io.Writer, rotating first when p would push the file
// past the limit.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.written+int64(len(p)) > rw.limit {
		if err := rw.rotate(); err != nil {
			return 0, fmt.Errorf("log rotation: %w", err)
		}
	}

	n, err := rw.file.Write(p)
	rw.written += int64(n)
	return n, err
}

// Close closes the underlying file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	return rw.file.Close()
}

func (rw *RotatingWriter) open() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	rw.file = f
	rw.written = info.Size()
	return nil
}

// rotate drops the oldest backup, shifts the rest up one slot and moves the
// live file to .1 before reopening it empty.
func (rw *RotatingWriter) rotate() error {
	if rw.file != nil {
		rw.file.Close()
	}

	os.Remove(rw.backupPath(rw.backups))
	for i := rw.backups - 1; i >= 1; i-- {
		os.Rename(rw.backupPath(i), rw.backupPath(i+1))
	}
	os.Rename(rw.path, rw.backupPath(1))

	return rw.open()
}

func (rw *RotatingWriter) backupPath(i int) string {
	return fmt.Sprintf("%s.%d", rw.path, i)
}
