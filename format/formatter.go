package format

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
	"github.com/numtide/rabbit/config"
	"github.com/numtide/rabbit/editor"
	"github.com/numtide/rabbit/invoke"
	"github.com/numtide/rabbit/options"
)

var (
	ErrInvalidName = errors.New("formatter name must only contain alphanumeric characters, `_` or `-`")
	// ErrCommandNotFound is returned when the Command for a Formatter is not available.
	ErrCommandNotFound = errors.New("formatter command not found in PATH")
	// ErrNotFormatted is returned in check mode when a document does not conform to the formatter's style.
	ErrNotFormatted = errors.New("document is not formatted")

	nameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")
)

// notFormattedExitCode is returned by csharpier check and xstyler --passive for documents that need formatting.
const notFormattedExitCode = 1

// Mode selects whether a Formatter rewrites documents or only checks them.
type Mode int

const (
	// ModeFormat replaces a document with the formatter's output.
	ModeFormat Mode = iota
	// ModeCheck reports whether a document is formatted, never modifying it.
	ModeCheck
)

func (m Mode) String() string {
	if m == ModeCheck {
		return "check"
	}

	return "format"
}

// Kind describes how a Formatter talks to its executable.
type Kind string

const (
	// KindCSharpier receives content via stdin and writes the result to stdout.
	KindCSharpier Kind = "csharpier"
	// KindXamlStyler only operates on files, so content is staged in a temporary file.
	KindXamlStyler Kind = "xstyler"
	// KindGeneric receives content via stdin and is passed its raw options verbatim.
	KindGeneric Kind = "generic"
)

// Formatter represents a command which should be applied to documents.
type Formatter struct {
	name   string
	kind   Kind
	config *config.Formatter

	log        *log.Logger
	invoker    *invoke.Invoker
	executable string // path to the executable described by Command
	treeRoot   string

	csharpier *options.CSharpier
	xstyler   *options.XamlStyler

	// internal, compiled versions of Includes and Excludes.
	includes []glob.Glob
	excludes []glob.Glob
}

func (f *Formatter) Name() string {
	return f.name
}

func (f *Formatter) Kind() Kind {
	return f.kind
}

func (f *Formatter) Priority() int {
	return f.config.Priority
}

// Executable returns the path to the executable defined by Command.
func (f *Formatter) Executable() string {
	return f.executable
}

// Wants is used to determine if a Formatter wants to process a path based on its configured Includes and Excludes
// patterns.
func (f *Formatter) Wants(path string) bool {
	match := !pathMatches(path, f.excludes) && pathMatches(path, f.includes)
	if match {
		f.log.Debugf("match: %v", path)
	}

	return match
}

// Apply runs the formatter against doc.
//
// In ModeFormat the document is replaced with the formatter's output, but only if the formatter succeeded and the
// output differs from the current text. changed reports whether a replacement happened.
// In ModeCheck the document is never modified, changed is true and the error wraps ErrNotFormatted when the
// formatter rejected it.
func (f *Formatter) Apply(ctx context.Context, doc editor.Document, mode Mode) (changed bool, err error) {
	start := time.Now()

	text, err := doc.Text(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", doc.Path(), err)
	}

	result, err := f.invoker.Run(ctx, f.request(doc.Path(), text, mode))

	var toolErr *invoke.ToolError

	switch {
	case mode == ModeCheck && f.kind != KindGeneric && errors.As(err, &toolErr) &&
		toolErr.ExitCode == notFormattedExitCode:
		// the tools share this code with input they could not parse, so the diagnostic must be visible
		f.log.Warnf("%s: %s", doc.Path(), strings.TrimSpace(toolErr.Stderr))

		return true, fmt.Errorf("%w: %s: %w", ErrNotFormatted, doc.Path(), err)

	case err != nil:
		f.log.Errorf("failed to %s %s: %v", mode, doc.Path(), err)

		return false, fmt.Errorf("formatter '%s' failed to %s %s: %w", f.name, mode, doc.Path(), err)

	case mode == ModeCheck:
		// the typed kinds report through their exit code, others are compared against their output
		if f.kind == KindGeneric && result.Stdout != text {
			return true, fmt.Errorf("%w: %s", ErrNotFormatted, doc.Path())
		}

		return false, nil
	}

	if result.Stdout == text {
		f.log.Debugf("%s unchanged in %v", doc.Path(), time.Since(start))

		return false, nil
	}

	if err = doc.Replace(ctx, result.Stdout); err != nil {
		return false, fmt.Errorf("failed to replace %s: %w", doc.Path(), err)
	}

	f.log.Infof("%s formatted in %v", doc.Path(), time.Since(start))

	return true, nil
}

// request builds the invocation for a single document.
func (f *Formatter) request(path string, text string, mode Mode) *invoke.Request {
	req := &invoke.Request{
		Executable: f.executable,
		Dir:        f.workingDir(path),
		Input:      text,
	}

	switch f.kind {
	case KindCSharpier:
		opts := f.csharpier.Clone()

		if mode == ModeCheck {
			opts.Command = options.Ptr(options.CSharpierCheck)
			opts.WriteStdout = nil
		} else {
			opts.Command = options.Ptr(options.CSharpierFormat)
			opts.WriteStdout = options.Ptr(true)
		}

		// the path lets csharpier find its config and ignore files, it must not depend on the working directory
		if opts.StdinPath == nil && path != "" {
			opts.StdinPath = options.Ptr(f.absPath(path))
		}

		req.Delivery = invoke.Stdin{}
		req.Args = invoke.StaticArgs(append(opts.Args(), f.config.Options...)...)

	case KindXamlStyler:
		opts := f.xstyler.Clone()

		if mode == ModeCheck {
			opts.Passive = options.Ptr(true)
			opts.WriteToStdout = nil
		} else {
			opts.Passive = nil
			opts.WriteToStdout = options.Ptr(true)
		}

		ext := filepath.Ext(path)
		if ext == "" {
			ext = ".xaml"
		}

		req.Delivery = invoke.TempFile{Pattern: "rabbit-*" + ext}
		req.Args = func(inputPath string) []string {
			opts.File = options.Ptr(inputPath)

			return append(opts.Args(), f.config.Options...)
		}

	default:
		req.Delivery = invoke.Stdin{}
		req.Args = invoke.StaticArgs(f.config.Options...)
	}

	return req
}

// absPath resolves a document path relative to the tree root.
func (f *Formatter) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(f.treeRoot, path)
}

// workingDir is the directory containing the document, or the tree root when it has no directory on disk.
func (f *Formatter) workingDir(path string) string {
	if path == "" {
		return f.treeRoot
	}

	dir := filepath.Dir(f.absPath(path))

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return f.treeRoot
	}

	return dir
}

// Hash adds the formatter's config and executable to h.
func (f *Formatter) Hash(h hash.Hash) error {
	// including the name allows us to identify changes in config
	h.Write([]byte(f.name))
	h.Write([]byte(f.kind))
	h.Write([]byte(f.config.Command))
	h.Write([]byte(strings.Join(f.config.Options, " ")))
	h.Write([]byte(strings.Join(f.config.Includes, " ")))
	h.Write([]byte(strings.Join(f.config.Excludes, " ")))
	h.Write([]byte(f.csharpier.String()))
	h.Write([]byte(f.xstyler.String()))
	h.Write([]byte(fmt.Sprintf("%d", f.config.Priority)))

	// stat the executable so an upgraded formatter invalidates previous results
	info, err := os.Lstat(f.executable)
	if err != nil {
		return fmt.Errorf("failed to stat formatter executable: %w", err)
	}

	h.Write([]byte(fmt.Sprintf("%v %v", info.Size(), info.ModTime().Unix())))

	return nil
}

// Signature is a hex encoded sha256 of Hash.
func (f *Formatter) Signature() (string, error) {
	h := sha256.New()
	if err := f.Hash(h); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// New is used to create a new Formatter.
func New(
	name string,
	treeRoot string,
	env []string,
	invoker *invoke.Invoker,
	cfg *config.Formatter,
) (*Formatter, error) {
	var err error

	// check the name is valid
	if !nameRegex.MatchString(name) {
		return nil, ErrInvalidName
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for formatter '%v': %w", name, err)
	}

	f := Formatter{
		name:     name,
		config:   cfg,
		invoker:  invoker,
		treeRoot: treeRoot,
	}

	// test if the formatter is available, using the environment it will be run with
	executable, err := invoke.LookPath(treeRoot, env, cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, cfg.Command)
	}

	f.executable = executable

	switch {
	case cfg.CSharpier != nil:
		f.kind, f.csharpier = KindCSharpier, cfg.CSharpier.Clone()
	case cfg.XamlStyler != nil:
		f.kind, f.xstyler = KindXamlStyler, cfg.XamlStyler.Clone()
	default:
		f.kind = inferKind(cfg.Command)
		f.csharpier, f.xstyler = defaultOptions(f.kind)
	}

	// initialise internal state
	if cfg.Priority > 0 {
		f.log = log.WithPrefix(fmt.Sprintf("format | %s[%d]", name, cfg.Priority))
	} else {
		f.log = log.WithPrefix(fmt.Sprintf("format | %s", name))
	}

	f.includes, err = compileGlobs(cfg.Includes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile formatter '%v' includes: %w", f.name, err)
	}

	f.excludes, err = compileGlobs(cfg.Excludes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile formatter '%v' excludes: %w", f.name, err)
	}

	return &f, nil
}

// inferKind recognises the typed formatters by their command when no options section was configured.
// An empty section does not survive a round trip through a config file.
func inferKind(command string) Kind {
	base := strings.TrimSuffix(strings.ToLower(filepath.Base(command)), ".exe")

	switch base {
	case "csharpier", "dotnet-csharpier":
		return KindCSharpier
	case "xstyler":
		return KindXamlStyler
	default:
		return KindGeneric
	}
}

func defaultOptions(kind Kind) (*options.CSharpier, *options.XamlStyler) {
	switch kind {
	case KindCSharpier:
		return &options.CSharpier{}, nil
	case KindXamlStyler:
		return nil, &options.XamlStyler{}
	default:
		return nil, nil
	}
}
