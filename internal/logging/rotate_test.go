package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// newTinyWriter builds a writer with a byte limit below the public 1 MB
// minimum.
func newTinyWriter(t *testing.T, maxBytes int64, maxFiles int) (*RotatingFileWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courtroom.log")
	w, err := NewRotatingFileWriter(path, 1, maxFiles)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	w.maxBytes = maxBytes
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return string(data)
}

func TestRotatingFileWriter_Write(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
	w, err := NewRotatingFileWriter(path, 0, -1)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer w.Close()
	if w.maxBytes != 1<<20 || w.maxFiles != 0 {
		t.Fatalf("limits not clamped: %d bytes, %d files", w.maxBytes, w.maxFiles)
	}
	if n, err := w.Write([]byte("hello\n")); err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := readFile(t, path); got != "hello\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestRotatingFileWriter_AppendsToExisting(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewRotatingFileWriter(path, 1, 1)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer w.Close()
	if w.size != 4 {
		t.Fatalf("size = %d, want 4", w.size)
	}
	_, _ = w.Write([]byte("new\n"))
	if got := readFile(t, path); got != "old\nnew\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestRotatingFileWriter_Rotates(t *testing.T) {
	t.Parallel()
	w, path := newTinyWriter(t, 50, 2)
	line := strings.Repeat("a", 39) + "\n"

	for i, ch := range []string{"a", "b", "c", "d"} {
		if _, err := w.Write([]byte(strings.ReplaceAll(line, "a", ch))); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	if got := readFile(t, path); !strings.HasPrefix(got, "d") {
		t.Fatalf("current = %q, want the d line", got)
	}
	if got := readFile(t, path+".1"); !strings.HasPrefix(got, "c") {
		t.Fatalf(".1 = %q, want the c line", got)
	}
	if got := readFile(t, path+".2"); !strings.HasPrefix(got, "b") {
		t.Fatalf(".2 = %q, want the b line", got)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf(".3 should not exist, stat err = %v", err)
	}
}

func TestRotatingFileWriter_NoBackups(t *testing.T) {
	t.Parallel()
	w, path := newTinyWriter(t, 10, 0)
	_, _ = w.Write([]byte("first line\n"))
	_, _ = w.Write([]byte("second line\n"))
	if got := readFile(t, path); got != "second line\n" {
		t.Fatalf("content = %q", got)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Fatalf("no backup expected, stat err = %v", err)
	}
}

func TestRotatingFileWriter_OversizedWriteGoesToFreshFile(t *testing.T) {
	t.Parallel()
	w, path := newTinyWriter(t, 10, 1)
	_, _ = w.Write([]byte("x\n"))
	big := strings.Repeat("y", 30) + "\n"
	if _, err := w.Write([]byte(big)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := readFile(t, path); got != big {
		t.Fatalf("content = %q", got)
	}
}

func TestRotatingFileWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()
	w, _ := newTinyWriter(t, 100, 1)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Fatal("expected error writing to a closed writer")
	}
}

func TestRotatingFileWriter_Concurrent(t *testing.T) {
	t.Parallel()
	w, path := newTinyWriter(t, 200, 50)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				_, _ = w.Write([]byte(strings.Repeat(string(rune('a'+i)), 9) + "\n"))
			}
		}()
	}
	wg.Wait()

	total := 0
	files := []string{path}
	for _, n := range w.backups() {
		files = append(files, w.backupPath(n))
	}
	for _, f := range files {
		for _, l := range strings.Split(strings.TrimSpace(readFile(t, f)), "\n") {
			if len(l) != 9 {
				t.Fatalf("torn line %q in %s", l, f)
			}
			total++
		}
	}
	if total != 160 {
		t.Fatalf("lines = %d, want 160", total)
	}
}
