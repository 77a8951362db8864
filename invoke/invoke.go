// Package invoke runs external formatter executables against a single piece of source text.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const DefaultWaitDelay = 5 * time.Second

var ErrNotDirectory = errors.New("not a directory")

// ArgsFunc builds the argument list once the input location is known.
// inputPath is empty when content is delivered via stdin.
type ArgsFunc func(inputPath string) []string

// StaticArgs returns an ArgsFunc which ignores the input location.
func StaticArgs(args ...string) ArgsFunc {
	return func(string) []string {
		return args
	}
}

// Request describes a single formatter invocation.
type Request struct {
	// Executable is the path or name of the formatter.
	Executable string
	Args       ArgsFunc
	// Dir is the working directory, defaults to the current directory.
	Dir string
	// Env overrides the Invoker's environment for this request when not nil.
	Env []string
	// Input is the source text to be formatted, it may be empty.
	Input string
	// Delivery defaults to Stdin.
	Delivery Delivery
}

// Result captures the outcome of a process which ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Invoker spawns formatter processes.
// It holds no per-invocation state and is safe for concurrent use.
type Invoker struct {
	log *log.Logger
	env []string

	// WaitDelay bounds how long a cancelled process has to exit after being interrupted before it is killed.
	WaitDelay time.Duration
}

// New creates an Invoker whose child processes receive env.
func New(env []string) *Invoker {
	return &Invoker{
		log:       log.WithPrefix("invoke"),
		env:       env,
		WaitDelay: DefaultWaitDelay,
	}
}

// Run executes the request and blocks until the process exits.
//
// The process is started with the input staged according to req.Delivery. Stdout and stderr are captured in full.
// A nil error means the process exited with code 0, in which case Stderr is informational only.
// Otherwise, the error is a *StartError, *ToolError or *EnvironmentError, or wraps ctx.Err() if the context was
// cancelled, in which case the process is interrupted and then killed after WaitDelay.
func (i *Invoker) Run(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	tool := filepath.Base(req.Executable)

	// fail fast rather than letting the OS pick a different directory
	if req.Dir != "" {
		info, err := os.Stat(req.Dir)
		if err != nil {
			return nil, &EnvironmentError{Dir: req.Dir, Err: err}
		} else if !info.IsDir() {
			return nil, &EnvironmentError{Dir: req.Dir, Err: ErrNotDirectory}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s was not started: %w", tool, err)
	}

	delivery := req.Delivery
	if delivery == nil {
		delivery = Stdin{}
	}

	staged, err := delivery.Stage(req.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to stage input for %s: %w", tool, err)
	}

	defer func() {
		if err := staged.Close(); err != nil {
			i.log.Warnf("failed to clean up after %s: %v", tool, err)
		}
	}()

	var args []string
	if req.Args != nil {
		args = req.Args(staged.Path)
	}

	env := i.env
	if req.Env != nil {
		env = req.Env
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, req.Executable, args...) //nolint:gosec
	// replace the default Cancel handler installed by CommandContext because it sends SIGKILL (-9).
	cmd.Cancel = func() error {
		return interrupt(cmd.Process, os.Interrupt)
	}
	cmd.WaitDelay = i.WaitDelay
	cmd.Dir = req.Dir
	cmd.Env = env
	cmd.Stdin = staged.Input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	i.log.Debugf("executing: %s", cmd.String())

	if err = cmd.Start(); err != nil {
		return nil, &StartError{Executable: req.Executable, Err: err}
	}

	waitErr := cmd.Wait()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s was interrupted: %w", tool, ctxErr)
	}

	var exitErr *exec.ExitError

	switch {
	case waitErr == nil:
		// success
	case errors.As(waitErr, &exitErr):
		return result, &ToolError{Tool: tool, ExitCode: result.ExitCode, Stderr: result.Stderr}
	default:
		return result, fmt.Errorf("failed to wait for %s: %w", tool, waitErr)
	}

	if result.Stderr != "" {
		i.log.Debug("diagnostics reported on success", "tool", tool, "stderr", result.Stderr)
	}

	i.log.Debugf("%s completed in %v", tool, time.Since(start))

	return result, nil
}

// interrupt asks p to stop with sig, killing it instead when sig cannot be delivered (os.Interrupt on Windows).
func interrupt(p *os.Process, sig os.Signal) error {
	err := p.Signal(sig)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return err
	}

	return p.Kill()
}
