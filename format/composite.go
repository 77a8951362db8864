package format

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
	"github.com/numtide/rabbit/config"
	"github.com/numtide/rabbit/editor"
	"github.com/numtide/rabbit/invoke"
	"github.com/numtide/rabbit/stats"
)

var ErrUnmatched = errors.New("no formatter for path")

// formatterSortFunc orders by priority, highest first, then by name so the outcome is deterministic.
func formatterSortFunc(a, b *Formatter) int {
	if result := cmp.Compare(b.Priority(), a.Priority()); result != 0 {
		return result
	}

	return cmp.Compare(a.Name(), b.Name())
}

// Composite routes documents to one of several Formatter instances based on global excludes and individual
// formatter configuration.
type Composite struct {
	cfg            *config.Config
	stats          *stats.Stats
	mode           Mode
	globalExcludes []glob.Glob

	log            *log.Logger
	changeLevel    log.Level
	unmatchedLevel log.Level

	formatters []*Formatter
}

// Mode reports whether documents are being formatted or checked.
func (c *Composite) Mode() Mode {
	return c.mode
}

// Formatters returns the formatters in order of precedence.
func (c *Composite) Formatters() []*Formatter {
	return c.formatters
}

// Match returns the formatter which should be applied to path, which is relative to the tree root.
// A nil Formatter means no formatter wants the path; the error is non-nil only when on-unmatched is fatal.
func (c *Composite) Match(path string) (*Formatter, error) {
	// first check if this path has been globally excluded
	if pathMatches(path, c.globalExcludes) {
		c.log.Debugf("path matched global excludes: %s", path)

		return nil, nil
	}

	// formatters are sorted, the first to want the path wins
	for _, formatter := range c.formatters {
		if formatter.Wants(path) {
			c.stats.Add(stats.Matched, 1)

			return formatter, nil
		}
	}

	// exit with an error if the unmatched level was set to fatal
	if c.unmatchedLevel == log.FatalLevel {
		return nil, fmt.Errorf("%w: %s", ErrUnmatched, path)
	}

	c.log.Logf(c.unmatchedLevel, "no formatter for path: %s", path)

	return nil, nil
}

// Apply runs formatter against doc in the composite's mode, recording the outcome.
func (c *Composite) Apply(ctx context.Context, formatter *Formatter, doc editor.Document) error {
	changed, err := formatter.Apply(ctx, doc, c.mode)

	switch {
	case errors.Is(err, ErrNotFormatted):
		c.stats.Add(stats.Formatted, 1)
		c.stats.Add(stats.Changed, 1)
		c.log.Log(c.changeLevel, "document is not formatted", "path", doc.Path(), "formatter", formatter.Name())

		return err

	case err != nil:
		c.stats.Add(stats.Failed, 1)

		return err
	}

	c.stats.Add(stats.Formatted, 1)

	if changed {
		c.stats.Add(stats.Changed, 1)
		c.log.Log(c.changeLevel, "document has changed", "path", doc.Path(), "formatter", formatter.Name())
	}

	return nil
}

// Hash takes anything that might affect how documents are formatted and adds it to a sha256 hash.
// This can be used to determine if there has been a material change in config or setup that requires the cache
// to be invalidated.
func (c *Composite) Hash() (string, error) {
	h := sha256.New()

	// start with the global excludes
	h.Write([]byte(strings.Join(c.cfg.Excludes, " ")))

	// formatters are already sorted deterministically
	for _, f := range c.formatters {
		if err := f.Hash(h); err != nil {
			return "", fmt.Errorf("failed to hash formatter: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// NewComposite creates a Formatter for each configured formatter, resolving executables against env.
func NewComposite(
	cfg *config.Config,
	statz *stats.Stats,
	env []string,
	invoker *invoke.Invoker,
) (*Composite, error) {
	// compile global exclude globs
	globalExcludes, err := compileGlobs(cfg.Excludes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile global excludes: %w", err)
	}

	// parse unmatched log level
	unmatchedLevel, err := log.ParseLevel(cfg.OnUnmatched)
	if err != nil {
		return nil, fmt.Errorf("invalid on-unmatched value: %w", err)
	}

	mode := ModeFormat
	// in check mode, unformatted documents are errors
	changeLevel := log.InfoLevel

	if cfg.Check {
		mode = ModeCheck
		changeLevel = log.ErrorLevel
	}

	formatters := make([]*Formatter, 0, len(cfg.FormatterConfigs))

	for name, formatterCfg := range cfg.FormatterConfigs {
		formatter, err := New(name, cfg.TreeRoot, env, invoker, formatterCfg)

		if errors.Is(err, ErrCommandNotFound) && cfg.AllowMissingFormatter {
			log.Debugf("formatter command not found: %v", name)

			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed to initialise formatter %v: %w", name, err)
		}

		formatters = append(formatters, formatter)
	}

	slices.SortFunc(formatters, formatterSortFunc)

	return &Composite{
		cfg:            cfg,
		stats:          statz,
		mode:           mode,
		globalExcludes: globalExcludes,

		log:            log.WithPrefix("composite"),
		changeLevel:    changeLevel,
		unmatchedLevel: unmatchedLevel,

		formatters: formatters,
	}, nil
}
