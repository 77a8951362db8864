package format

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/numtide/rabbit/cache"
	"github.com/numtide/rabbit/config"
	"github.com/numtide/rabbit/editor"
	"github.com/numtide/rabbit/format"
	"github.com/numtide/rabbit/invoke"
	"github.com/numtide/rabbit/stats"
	"github.com/numtide/rabbit/walk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	ErrFormattingFailures = errors.New("failed to format one or more documents")
	ErrSinglePath         = errors.New("exactly one path should be specified when using --stdin, --nvim or --clipboard")
)

func Run(v *viper.Viper, statz *stats.Stats, cmd *cobra.Command, paths []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.CI {
		log.Info("ci mode enabled")
	}

	// the alternative sources format a single document, the path is used for selecting a formatter
	singleSource := cfg.Stdin || cfg.Nvim || cfg.Clipboard
	if singleSource && len(paths) != 1 {
		return ErrSinglePath
	}

	// build the environment shared by every formatter process
	overrides, err := invoke.ReadEnvFile(cfg.EnvFile)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	env := invoke.ChildEnviron(os.Environ(), cfg.EnvBlocklist, overrides)
	invoker := invoke.New(env)

	composite, err := format.NewComposite(cfg, statz, env, invoker)
	if err != nil {
		return fmt.Errorf("failed to initialise formatters: %w", err)
	}

	// cancel the context on shutdown, which kills any live formatter processes
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if singleSource {
		return runSingle(ctx, cfg, statz, composite, paths[0])
	}

	// open the cache if configured
	var evalCache *cache.Cache

	if cfg.ClearCache {
		if err = cache.Remove(cfg.TreeRoot); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	if !cfg.NoCache {
		if evalCache, err = openCache(cfg.TreeRoot, composite); err != nil {
			// if we can't open the cache, we log a warning and fallback to no cache
			log.Warnf("failed to open cache: %v", err)

			evalCache = nil
		}
	}

	p := newProcessor(statz, composite, evalCache)

	if err = p.run(ctx, cfg, paths); err != nil {
		return err
	}

	statz.Print(os.Stdout, cfg.Check)

	// failures have already been logged as they happened, interrupting watch mode is a clean exit
	if cfg.Watch {
		return nil
	}

	switch {
	case statz.Value(stats.Failed) > 0:
		return ErrFormattingFailures
	case cfg.Check && statz.Value(stats.Changed) > 0:
		return format.ErrNotFormatted
	default:
		return nil
	}
}

func openCache(treeRoot string, composite *format.Composite) (*cache.Cache, error) {
	c, err := cache.Open(treeRoot)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	hash, err := composite.Hash()
	if err == nil {
		err = c.Bust(hash)
	}

	if err != nil {
		return nil, errors.Join(err, c.Close())
	}

	return c, nil
}

// runSingle formats one document taken from stdin, a Neovim buffer or the clipboard.
func runSingle(
	ctx context.Context,
	cfg *config.Config,
	statz *stats.Stats,
	composite *format.Composite,
	path string,
) error {
	relPath := path
	if absPath, err := filepath.Abs(path); err == nil {
		if rel, err := filepath.Rel(cfg.TreeRoot, absPath); err == nil && filepath.IsLocal(rel) {
			relPath = rel
		}
	}

	var (
		doc   editor.Document
		stdio *editor.Stdio
	)

	switch {
	case cfg.Stdin:
		stdio = editor.NewStdio(relPath, os.Stdin, os.Stdout)
		doc = stdio

	case cfg.Nvim:
		client, err := editor.DialNvim(cfg.NvimAddr)
		if err != nil {
			return err //nolint:wrapcheck
		}

		defer client.Close()

		if doc, err = editor.NewNvim(client, path); err != nil {
			return err //nolint:wrapcheck
		}

	case cfg.Clipboard:
		clip, err := editor.NewClipboard(relPath)
		if err != nil {
			return err //nolint:wrapcheck
		}

		doc = clip
	}

	statz.Add(stats.Traversed, 1)

	formatter, err := composite.Match(relPath)
	if err == nil && formatter != nil {
		err = composite.Apply(ctx, formatter, doc)
	}

	// stdout must always receive the document, even when it could not be formatted
	if stdio != nil {
		err = errors.Join(err, stdio.Close())
	} else {
		statz.Print(os.Stdout, cfg.Check)
	}

	return err
}

// processor applies formatters to the files emitted by walk readers.
type processor struct {
	log        *log.Logger
	stats      *stats.Stats
	composite  *format.Composite
	cache      *cache.Cache
	signatures map[string]string

	eg *errgroup.Group
}

func newProcessor(statz *stats.Stats, composite *format.Composite, evalCache *cache.Cache) *processor {
	eg := &errgroup.Group{}
	// each document spawns a formatter process
	eg.SetLimit(runtime.NumCPU())

	return &processor{
		log:        log.WithPrefix("format"),
		stats:      statz,
		composite:  composite,
		cache:      evalCache,
		signatures: make(map[string]string),
		eg:         eg,
	}
}

func (p *processor) run(ctx context.Context, cfg *config.Config, paths []string) (err error) {
	if p.cache != nil {
		defer func() {
			if closeErr := p.cache.Close(); closeErr != nil {
				p.log.Errorf("failed to close cache: %v", closeErr)
			}
		}()

		for _, formatter := range p.composite.Formatters() {
			if p.signatures[formatter.Name()], err = formatter.Signature(); err != nil {
				return fmt.Errorf("failed to compute signature for formatter %s: %w", formatter.Name(), err)
			}
		}
	}

	walkType, err := walk.ParseType(cfg.Walk)
	if err != nil {
		return fmt.Errorf("invalid walk type: %w", err)
	}

	reader, err := walk.NewCompositeReader(walkType, cfg.TreeRoot, paths, p.stats)
	if err != nil {
		return fmt.Errorf("failed to create walker: %w", err)
	}

	err = p.consume(ctx, reader)
	err = errors.Join(err, reader.Close(), p.eg.Wait())

	if err != nil || !cfg.Watch {
		return err
	}

	return p.watch(ctx, cfg, paths)
}

// watch formats files as they are written, until ctx is cancelled.
func (p *processor) watch(ctx context.Context, cfg *config.Config, paths []string) error {
	root, err := filepath.EvalSymlinks(cfg.TreeRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve tree root: %w", err)
	}

	relPaths := []string{""}

	if len(paths) > 0 {
		relPaths = relPaths[:0]

		for _, path := range paths {
			relPath, info, err := walk.RelPath(root, path)
			if err != nil {
				return err //nolint:wrapcheck
			}

			if !info.IsDir() {
				relPath = filepath.Dir(relPath)
			}

			relPaths = append(relPaths, relPath)
		}
	}

	p.log.Infof("watching for changes in %s", root)

	eg, ctx := errgroup.WithContext(ctx)

	for _, relPath := range relPaths {
		reader, err := walk.NewWatchReader(root, relPath, p.stats, walk.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to create watcher for %s: %w", relPath, err)
		}

		eg.Go(func() error {
			return errors.Join(p.consume(ctx, reader), reader.Close())
		})
	}

	err = errors.Join(eg.Wait(), p.eg.Wait())
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// consume reads files until the reader is exhausted, scheduling each one.
func (p *processor) consume(ctx context.Context, reader walk.Reader) error {
	files := make([]*walk.File, walk.BatchSize)

	for {
		n, err := reader.Read(ctx, files)

		for _, file := range files[:n] {
			if scheduleErr := p.schedule(ctx, file); scheduleErr != nil {
				return scheduleErr
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read files: %w", err)
		}
	}
}

func (p *processor) schedule(ctx context.Context, file *walk.File) error {
	formatter, err := p.composite.Match(file.RelPath)
	if err != nil {
		return err //nolint:wrapcheck
	} else if formatter == nil {
		return nil
	}

	signature := p.signatures[formatter.Name()]

	if p.cache != nil {
		fresh, err := p.cache.Fresh(file.RelPath, file.Info, signature)
		if err != nil {
			return fmt.Errorf("failed to check cache for %s: %w", file.RelPath, err)
		} else if fresh {
			p.log.Debugf("skipping unchanged file: %s", file.RelPath)

			return nil
		}
	}

	p.eg.Go(func() error {
		// failures are logged and counted, they never stop other documents from being formatted
		if err := p.composite.Apply(ctx, formatter, editor.NewFile(file.Path)); err != nil {
			return nil //nolint:nilerr
		}

		if p.cache == nil {
			return nil
		}

		info, err := os.Stat(file.Path)
		if err != nil {
			p.log.Warnf("failed to stat %s after formatting: %v", file.RelPath, err)

			return nil
		}

		p.cache.Record(file.RelPath, info, signature)

		return nil
	})

	return nil
}
