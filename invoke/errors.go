package invoke

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStart is wrapped by StartError.
	ErrStart = errors.New("failed to start formatter")
	// ErrTool is wrapped by ToolError.
	ErrTool = errors.New("formatter exited with a non-zero code")
	// ErrEnvironment is wrapped by EnvironmentError.
	ErrEnvironment = errors.New("invalid formatter environment")
)

// StartError indicates the executable could not be launched at all.
type StartError struct {
	Executable string
	Err        error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Executable, e.Err)
}

func (e *StartError) Unwrap() []error {
	return []error{ErrStart, e.Err}
}

// ToolError indicates the executable ran but exited with a non-zero code.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("%s failed with exit code %d: %s", e.Tool, e.ExitCode, msg)
	}

	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

func (e *ToolError) Unwrap() error {
	return ErrTool
}

// EnvironmentError indicates the invocation could not be prepared, e.g. the working directory does not exist.
type EnvironmentError struct {
	Dir string
	Err error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("working directory %s: %v", e.Dir, e.Err)
}

func (e *EnvironmentError) Unwrap() []error {
	return []error{ErrEnvironment, e.Err}
}
