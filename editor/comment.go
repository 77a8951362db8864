package editor

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidRange = errors.New("start line must not be after end line")

// Comment inserts prefix at the beginning of every line from start to end inclusive, counting from 1.
// The range is clamped to the lines the document has. The document is replaced once.
func Comment(ctx context.Context, doc Document, start int, end int, prefix string) error {
	if start > end {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, start, end)
	}

	text, err := doc.Text(ctx)
	if err != nil {
		return err
	}

	lines, eol := splitLines(text)

	start = max(start, 1)
	end = min(end, len(lines))

	if start > end {
		// nothing in range
		return nil
	}

	for i := start - 1; i < end; i++ {
		lines[i] = prefix + lines[i]
	}

	return doc.Replace(ctx, joinLines(lines, eol))
}
