package emit

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Writer persists a generated file.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// AtomicWriter writes through a temp file in the destination directory and
// renames it into place, so readers never observe a partial file.
type AtomicWriter struct {
	Perm os.FileMode
}

func NewAtomicWriter() *AtomicWriter {
	return &AtomicWriter{Perm: 0o644}
}

func (w *AtomicWriter) WriteFile(path string, data []byte) error {
	return writeFileAtomic(path, data, w.Perm)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// CheckWriter writes nothing. It compares each rendered file with the one
// on disk and records the paths that are missing or differ.
// Safe for concurrent use.
type CheckWriter struct {
	mu    sync.Mutex
	stale []string
}

func NewCheckWriter() *CheckWriter { return &CheckWriter{} }

func (w *CheckWriter) WriteFile(path string, data []byte) error {
	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err == nil && bytes.Equal(current, data) {
		return nil
	}
	w.mu.Lock()
	w.stale = append(w.stale, path)
	w.mu.Unlock()
	return nil
}

// Stale returns the recorded paths, sorted.
func (w *CheckWriter) Stale() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.stale))
	copy(out, w.stale)
	sort.Strings(out)
	return out
}
