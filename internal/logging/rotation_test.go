package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriterRotatesAndKeepsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.log")

	rw, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()
	rw.limit = 64 // keep the test small

	line := strings.Repeat("x", 48) + "\n"
	for i := 0; i < 4; i++ {
		if _, err := rw.Write([]byte(line)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, name := range []string{"host.log", "host.log.1", "host.log.2"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s after rotation: %v", name, err)
		}
	}
	if _, err := os.Stat(path + ".3"); err == nil {
		t.Fatal("kept more backups than configured")
	}
}

func TestRotatingWriterResumesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.log")
	if err := os.WriteFile(path, []byte("earlier run\n"), 0600); err != nil {
		t.Fatalf("seed log file: %v", err)
	}

	rw, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	if rw.written != int64(len("earlier run\n")) {
		t.Fatalf("written = %d, want size of the existing file", rw.written)
	}
	if _, err := rw.Write([]byte("this run\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if got := string(data); got != "earlier run\nthis run\n" {
		t.Fatalf("log content = %q, want both runs appended", got)
	}
}
