package editor

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Stdio is a document read from an input stream and written to an output stream.
// The path is only a hint, nothing is read from or written to it.
type Stdio struct {
	path string
	in   io.Reader
	out  io.Writer

	mu      sync.Mutex
	read    bool
	text    string
	written bool
}

func NewStdio(path string, in io.Reader, out io.Writer) *Stdio {
	return &Stdio{path: path, in: in, out: out}
}

func (s *Stdio) Path() string {
	return s.path
}

// Text reads the input stream in full on the first call and returns the same content afterwards.
func (s *Stdio) Text(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked()
}

func (s *Stdio) readLocked() (string, error) {
	if s.read {
		return s.text, nil
	}

	content, err := io.ReadAll(s.in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}

	s.read = true
	s.text = string(content)

	return s.text, nil
}

// Replace writes text to the output stream.
func (s *Stdio) Replace(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written {
		return fmt.Errorf("%s has already been written", s.path)
	}

	if _, err := io.WriteString(s.out, text); err != nil {
		return fmt.Errorf("failed to write stdout: %w", err)
	}

	s.text = text
	s.read = true
	s.written = true

	return nil
}

// Close writes the unchanged content to the output stream if Replace was never called.
func (s *Stdio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written {
		return nil
	}

	text, err := s.readLocked()
	if err != nil {
		return err
	}

	if _, err = io.WriteString(s.out, text); err != nil {
		return fmt.Errorf("failed to write stdout: %w", err)
	}

	s.written = true

	return nil
}
