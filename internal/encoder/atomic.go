package encoder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile is a file that only appears at its destination once Commit
// succeeds. Until then the data lives in a temp file in the same directory.
type AtomicFile struct {
	path string
	tmp  *os.File
	buf  *bufio.Writer
	done bool
}

// CreateAtomic creates a temp file next to path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	return &AtomicFile{
		path: path,
		tmp:  tmp,
		buf:  bufio.NewWriterSize(tmp, 1<<20),
	}, nil
}

// Write buffers p. Write errors are sticky and reported again by Commit.
func (f *AtomicFile) Write(p []byte) (int, error) {
	if f.done {
		return 0, errors.New("write to closed atomic file")
	}
	return f.buf.Write(p)
}

// TempPath returns the path of the temp file.
func (f *AtomicFile) TempPath() string { return f.tmp.Name() }

// Commit flushes, syncs and closes the temp file, then renames it over the
// destination path.
func (f *AtomicFile) Commit() error {
	if f.done {
		return errors.New("atomic file already closed")
	}
	f.done = true

	if err := f.buf.Flush(); err != nil {
		f.discard()
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	if err := f.tmp.Sync(); err != nil {
		f.discard()
		return fmt.Errorf("failed to sync %s: %w", f.path, err)
	}
	if err := f.tmp.Close(); err != nil {
		os.Remove(f.tmp.Name())
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		os.Remove(f.tmp.Name())
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Abort closes and removes the temp file. It is a no-op after Commit.
func (f *AtomicFile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	return f.discard()
}

func (f *AtomicFile) discard() error {
	f.tmp.Close()
	if err := os.Remove(f.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}
