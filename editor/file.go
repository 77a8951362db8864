package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File is a document backed by a file on disk.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) String() string {
	return f.path
}

func (f *File) Text(_ context.Context) (string, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	return string(content), nil
}

// Replace writes text to a temporary file next to the original and renames it into place, preserving the file mode.
// Readers never observe a partially written file.
func (f *File) Replace(_ context.Context, text string) error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", f.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".rabbit-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", f.path, err)
	}

	// no-op once the rename has succeeded
	defer os.Remove(tmp.Name())

	if _, err = tmp.WriteString(text); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}

	if err = tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to set mode of %s: %w", tmp.Name(), err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}

	return nil
}
