package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var ErrClipboardUnsupported = errors.New("no clipboard utility available")

// Clipboard is a document held in the system clipboard.
type Clipboard struct {
	path string
}

// NewClipboard returns the clipboard as a document, path is used to select a formatter.
func NewClipboard(path string) (*Clipboard, error) {
	if clipboard.Unsupported {
		return nil, ErrClipboardUnsupported
	}

	return &Clipboard{path: path}, nil
}

func (c *Clipboard) Path() string {
	return c.path
}

func (c *Clipboard) Text(_ context.Context) (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}

	return text, nil
}

func (c *Clipboard) Replace(_ context.Context, text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}

	return nil
}
