// Package editor provides access to the documents rabbit formats: files on disk, stdin/stdout, Neovim buffers and
// the system clipboard.
package editor

import (
	"context"
	"strings"
)

// Document is a piece of text which can be read and replaced as a whole.
type Document interface {
	// Path identifies the document, it is used to select a formatter and as a hint for the formatter itself.
	Path() string
	// Text returns the current content of the document.
	Text(ctx context.Context) (string, error)
	// Replace overwrites the content of the document with text.
	Replace(ctx context.Context, text string) error
}

// splitLines splits text into lines, reporting whether the last line was terminated.
func splitLines(text string) (lines []string, eol bool) {
	if text == "" {
		return nil, false
	}

	eol = strings.HasSuffix(text, "\n")
	if eol {
		text = text[:len(text)-1]
	}

	return strings.Split(text, "\n"), eol
}

func joinLines(lines []string, eol bool) string {
	if len(lines) == 0 {
		return ""
	}

	text := strings.Join(lines, "\n")
	if eol {
		text += "\n"
	}

	return text
}
