// Package walk discovers the documents below a tree root.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/numtide/rabbit/stats"
)

type Type int

const (
	Auto Type = iota
	Filesystem
	Git

	BatchSize = 1024
)

var typeNames = map[Type]string{
	Auto:       "auto",
	Filesystem: "filesystem",
	Git:        "git",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType returns the Type with the given name.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}

	return Auto, fmt.Errorf("unknown walk type %q, must be one of <auto|git|filesystem>", name)
}

// File represents a file on disk with its path relative to the tree root.
type File struct {
	Path    string
	RelPath string
	Info    fs.FileInfo
}

// String returns the file's path as a string.
func (f *File) String() string {
	return f.Path
}

// Reader is an interface for reading files.
// Read fills files and returns how many were written, along with io.EOF once the reader is exhausted.
type Reader interface {
	Read(ctx context.Context, files []*File) (n int, err error)
	Close() error
}

// CompositeReader combines multiple Readers into one.
// It iterates over the given readers, reading each until completion.
type CompositeReader struct {
	idx     int
	current Reader
	readers []Reader
}

func (c *CompositeReader) Read(ctx context.Context, files []*File) (n int, err error) {
	if c.current == nil {
		// check if we have exhausted all the readers
		if c.idx >= len(c.readers) {
			return 0, io.EOF
		}

		c.current = c.readers[c.idx]
		c.idx++
	}

	n, err = c.current.Read(ctx, files)

	// move on to the next reader once the current one has been exhausted
	if errors.Is(err, io.EOF) {
		err = nil
		c.current = nil
	} else if err != nil {
		err = fmt.Errorf("failed to read from current reader: %w", err)
	}

	return n, err
}

func (c *CompositeReader) Close() error {
	var err error
	for _, reader := range c.readers {
		err = errors.Join(err, reader.Close())
	}

	return err
}

// NewReader creates a Reader for path, which is relative to root.
//
//nolint:ireturn
func NewReader(
	walkType Type,
	root string,
	path string,
	statz *stats.Stats,
) (Reader, error) {
	switch walkType {
	case Auto:
		// prefer the git index, so ignored and untracked files are left alone
		reader, err := NewGitReader(root, path, statz)
		if err != nil {
			log.Debugf("falling back to a filesystem walk: %v", err)

			return NewFilesystemReader(root, path, statz, BatchSize), nil
		}

		return reader, nil
	case Filesystem:
		return NewFilesystemReader(root, path, statz, BatchSize), nil
	case Git:
		return NewGitReader(root, path, statz)
	default:
		return nil, fmt.Errorf("unknown walk type: %v", walkType)
	}
}

// NewCompositeReader returns a composite reader for the `root` and all `paths`. It never follows symlinks.
//
//nolint:ireturn
func NewCompositeReader(
	walkType Type,
	root string,
	paths []string,
	statz *stats.Stats,
) (Reader, error) {
	// root may itself be or contain a symlink, so we resolve it first
	root, err := resolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving path %s: %w", root, err)
	}

	// if no paths are provided we default to processing the tree root
	if len(paths) == 0 {
		return NewReader(walkType, root, "", statz)
	}

	readers := make([]Reader, len(paths))

	for idx, path := range paths {
		relPath, info, err := RelPath(root, path)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			// for directories, we honour the walk type as we traverse them
			readers[idx], err = NewReader(walkType, root, relPath, statz)
		} else {
			// for files, we enforce a simple filesystem read
			readers[idx], err = NewReader(Filesystem, root, relPath, statz)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create reader for %s: %w", relPath, err)
		}
	}

	return &CompositeReader{
		readers: readers,
	}, nil
}

// RelPath resolves path and returns it relative to root, which must already be resolved.
// It fails if path does not exist or lies outside of root.
func RelPath(root string, path string) (string, fs.FileInfo, error) {
	resolvedPath, err := resolvePath(path)
	if err != nil {
		return "", nil, fmt.Errorf("error resolving path %s: %w", path, err)
	}

	relPath, err := filepath.Rel(root, resolvedPath)
	if err != nil {
		return "", nil, fmt.Errorf("error computing relative path from %s to %s: %w", root, resolvedPath, err)
	}

	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", nil, fmt.Errorf("path %s not inside the tree root %s", path, root)
	}

	info, err := os.Lstat(resolvedPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat %s: %w", resolvedPath, err)
	}

	if relPath == "." {
		relPath = ""
	}

	return relPath, info, nil
}

// resolvePath returns an absolute path, resolving any symlinks along the way.
func resolvePath(path string) (string, error) {
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("error computing absolute path of %s: %w", path, err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		return "", fmt.Errorf("path %s not found: %w", absolutePath, err)
	}

	return resolvedPath, nil
}

// readFiles fills files from filesCh until it is full or filesCh is closed.
func readFiles(ctx context.Context, filesCh <-chan *File, files []*File) (n int, err error) {
	for n < len(files) {
		select {
		case <-ctx.Done():
			return n, ctx.Err() //nolint:wrapcheck
		case file, ok := <-filesCh:
			if !ok {
				return n, io.EOF
			}

			files[n] = file
			n++
		}
	}

	return n, nil
}
