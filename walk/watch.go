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
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/numtide/rabbit/stats"
)

// settle is how long Read waits for further events before returning what it has collected.
const settle = 100 * time.Millisecond

// WatchReader emits files below root/path whenever they are written or created.
type WatchReader struct {
	root string
	path string

	log   *log.Logger
	stats *stats.Stats

	watcher *fsnotify.Watcher
}

// Read blocks until at least one file has changed, then collects further changes until none arrive for a short
// while. It returns io.EOF once ctx is done.
func (w *WatchReader) Read(ctx context.Context, files []*File) (n int, err error) {
	// ensure we record how many files we traversed
	defer func() {
		w.stats.Add(stats.Traversed, n)
	}()

	seen := make(map[string]bool)

	var timeout <-chan time.Time

	for n < len(files) {
		select {
		case <-ctx.Done():
			return n, io.EOF

		case <-timeout:
			return n, nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return n, io.EOF
			}

			file, err := w.handle(event)
			if err != nil {
				return n, err
			} else if file == nil || seen[file.Path] {
				continue
			}

			seen[file.Path] = true
			files[n] = file
			n++

			timeout = time.After(settle)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return n, io.EOF
			}

			return n, fmt.Errorf("failed to read from watcher: %w", err)
		}
	}

	return n, nil
}

// handle turns an event into a File, returning nil for events which should be ignored.
func (w *WatchReader) handle(event fsnotify.Event) (*File, error) {
	// skip events which don't carry new content
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return nil, nil
	}

	// the temporary files used when replacing a document
	if strings.Contains(filepath.Base(event.Name), ".rabbit-") {
		return nil, nil
	}

	info, err := os.Lstat(event.Name)
	if errors.Is(err, fs.ErrNotExist) {
		// file was removed before we got to it
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", event.Name, err)
	}

	if info.IsDir() {
		// new directories need watching too
		if event.Has(fsnotify.Create) {
			w.log.Debugf("watching new directory %s", event.Name)

			return nil, w.addDirs(event.Name)
		}

		return nil, nil
	} else if !info.Mode().IsRegular() {
		return nil, nil
	}

	relPath, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to determine a relative path for %s: %w", event.Name, err)
	}

	return &File{Path: event.Name, RelPath: relPath, Info: info}, nil
}

// addDirs watches path and every directory below it, skipping .git.
func (w *WatchReader) addDirs(path string) error {
	return filepath.WalkDir(path, func(path string, entry fs.DirEntry, err error) error { //nolint:wrapcheck
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			return nil
		} else if entry.Name() == ".git" {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch path %s: %w", path, err)
		}

		return nil
	})
}

// Close stops watching.
func (w *WatchReader) Close() error {
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	return nil
}

func NewWatchReader(
	root string,
	path string,
	statz *stats.Stats,
	batchSize uint,
) (*WatchReader, error) {
	watcher, err := fsnotify.NewBufferedWatcher(batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	r := WatchReader{
		root:    root,
		path:    path,
		log:     log.WithPrefix("walk | watch"),
		stats:   statz,
		watcher: watcher,
	}

	// path is relative to the root, we also clean it up in case there are any ../../ components
	fqPath := filepath.Clean(filepath.Join(root, path))

	if fqPath != root && !strings.HasPrefix(fqPath, root+string(filepath.Separator)) {
		_ = watcher.Close()

		return nil, fmt.Errorf("path '%s' is outside of the root '%s'", fqPath, root)
	}

	// start watching for changes recursively
	if err = r.addDirs(fqPath); err != nil {
		_ = watcher.Close()

		return nil, fmt.Errorf("failed to walk directory %s: %w", fqPath, err)
	}

	return &r, nil
}
