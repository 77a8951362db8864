package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/numtide/rabbit/stats"
	"golang.org/x/sync/errgroup"
)

// FilesystemReader traverses and reads files from a specified root directory and its subdirectories.
type FilesystemReader struct {
	log   *log.Logger
	root  string
	path  string
	stats *stats.Stats

	eg      *errgroup.Group
	ctx     context.Context //nolint:containedctx
	cancel  context.CancelFunc
	filesCh chan *File
}

// process walks the file tree from root/path, sending regular files to filesCh.
func (f *FilesystemReader) process() error {
	defer close(f.filesCh)

	path := filepath.Join(f.root, f.path)

	err := filepath.WalkDir(path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}

			return nil
		}

		// ignore symlinks and other special files
		if !entry.Type().IsRegular() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		relPath, err := filepath.Rel(f.root, path)
		if err != nil {
			return fmt.Errorf("failed to determine a relative path for %s: %w", path, err)
		}

		f.log.Debugf("processing file: %s", relPath)

		select {
		case <-f.ctx.Done():
			return f.ctx.Err()
		case f.filesCh <- &File{Path: path, RelPath: relPath, Info: info}:
			f.stats.Add(stats.Traversed, 1)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", path, err)
	}

	return nil
}

func (f *FilesystemReader) Read(ctx context.Context, files []*File) (n int, err error) {
	return readFiles(ctx, f.filesCh, files)
}

// Close stops the walk and waits for it to finish.
func (f *FilesystemReader) Close() error {
	f.cancel()

	// drain anything left so process can observe the cancellation
	for range f.filesCh { //nolint:revive
	}

	if err := f.eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// NewFilesystemReader creates a new instance of FilesystemReader to traverse and read files from the specified path
// and its subdirectories. The path is relative to the root, an empty path means the root itself.
func NewFilesystemReader(
	root string,
	path string,
	statz *stats.Stats,
	batchSize int,
) *FilesystemReader {
	ctx, cancel := context.WithCancel(context.Background())

	r := FilesystemReader{
		log:     log.WithPrefix("walk | filesystem"),
		root:    root,
		path:    path,
		stats:   statz,
		eg:      &errgroup.Group{},
		ctx:     ctx,
		cancel:  cancel,
		filesCh: make(chan *File, batchSize),
	}

	r.eg.Go(r.process)

	return &r
}
