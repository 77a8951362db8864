package invoke

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Delivery decides how source text reaches a formatter process.
type Delivery interface {
	// Stage prepares content for a single invocation. The returned Staged must be closed once the process has
	// exited, whatever the outcome.
	Stage(content string) (*Staged, error)
}

// Staged is the prepared input for one invocation.
type Staged struct {
	// Input is connected to the process's stdin, nil means the process reads from the null device.
	Input io.Reader
	// Path is the location of the staged content on disk, empty when content is delivered via stdin.
	Path string

	cleanup func() error
}

// Close releases anything acquired by Stage.
func (s *Staged) Close() error {
	if s.cleanup == nil {
		return nil
	}

	return s.cleanup()
}

// Stdin writes content to the process's standard input, closing it once all content has been written.
type Stdin struct{}

func (Stdin) Stage(content string) (*Staged, error) {
	return &Staged{Input: strings.NewReader(content)}, nil
}

func (Stdin) String() string {
	return "stdin"
}

// TempFile writes content to a uniquely named temporary file which is passed to the process by path.
type TempFile struct {
	// Dir is the directory in which to create the file, defaults to os.TempDir().
	Dir string
	// Pattern is passed to os.CreateTemp, it should end with an extension the formatter recognises
	// e.g. `rabbit-*.axaml`.
	Pattern string
}

func (t TempFile) Stage(content string) (*Staged, error) {
	file, err := os.CreateTemp(t.Dir, t.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	remove := func() error {
		if err := os.Remove(file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove temp file %s: %w", file.Name(), err)
		}

		return nil
	}

	if _, err = file.WriteString(content); err != nil {
		_ = file.Close()
		_ = remove()

		return nil, fmt.Errorf("failed to write temp file %s: %w", file.Name(), err)
	}

	if err = file.Close(); err != nil {
		_ = remove()

		return nil, fmt.Errorf("failed to close temp file %s: %w", file.Name(), err)
	}

	return &Staged{Path: file.Name(), cleanup: remove}, nil
}

func (t TempFile) String() string {
	return "temp file"
}
