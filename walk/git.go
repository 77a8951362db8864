package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/numtide/rabbit/stats"
	"golang.org/x/sync/errgroup"
)

// GitReader reads the files tracked in the git index below root/path.
type GitReader struct {
	root     string
	path     string
	repoRoot string
	stats    *stats.Stats

	log  *log.Logger
	repo *git.Repository

	eg      *errgroup.Group
	ctx     context.Context //nolint:containedctx
	cancel  context.CancelFunc
	filesCh chan *File
}

func (g *GitReader) process() error {
	defer close(g.filesCh)

	gitIndex, err := g.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("failed to open git index: %w", err)
	}

	prefix := filepath.Join(g.root, g.path)

	for _, entry := range gitIndex.Entries {
		// we only want regular files, not submodules or symlinks
		if entry.Mode == filemode.Dir || entry.Mode == filemode.Symlink || entry.Mode == filemode.Submodule {
			continue
		}

		// index entries are relative to the repository root and always use forward slashes
		path := filepath.Join(g.repoRoot, filepath.FromSlash(entry.Name))
		if path != prefix && !strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			continue
		}

		info, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			// the underlying file might have been removed without the change being staged yet
			g.log.Warnf("Path %s is in the index but appears to have been removed from the filesystem", path)

			continue
		} else if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		relPath, err := filepath.Rel(g.root, path)
		if err != nil {
			return fmt.Errorf("failed to determine a relative path for %s: %w", path, err)
		}

		select {
		case <-g.ctx.Done():
			return g.ctx.Err()
		case g.filesCh <- &File{Path: path, RelPath: relPath, Info: info}:
			g.stats.Add(stats.Traversed, 1)
		}
	}

	return nil
}

func (g *GitReader) Read(ctx context.Context, files []*File) (n int, err error) {
	return readFiles(ctx, g.filesCh, files)
}

func (g *GitReader) Close() error {
	g.cancel()

	for range g.filesCh { //nolint:revive
	}

	if err := g.eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// NewGitReader fails if root is not inside a git worktree.
func NewGitReader(
	root string,
	path string,
	statz *stats.Stats,
) (*GitReader, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open git worktree: %w", err)
	}

	repoRoot, err := resolvePath(worktree.Filesystem.Root())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &GitReader{
		root:     root,
		path:     path,
		repoRoot: repoRoot,
		stats:    statz,
		log:      log.WithPrefix("walk | git"),
		repo:     repo,
		eg:       &errgroup.Group{},
		ctx:      ctx,
		cancel:   cancel,
		filesCh:  make(chan *File, BatchSize),
	}

	r.eg.Go(r.process)

	return r, nil
}
