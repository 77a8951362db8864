package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

var (
	ErrNoNvimAddress  = errors.New("no neovim address, set --nvim-addr or $NVIM_LISTEN_ADDRESS")
	ErrBufferNotFound = errors.New("no neovim buffer for path")
)

// DialNvim connects to a running Neovim instance.
// When addr is empty, $NVIM_LISTEN_ADDRESS and then $NVIM are consulted.
func DialNvim(addr string) (*nvim.Nvim, error) {
	for _, name := range []string{"NVIM_LISTEN_ADDRESS", "NVIM"} {
		if addr != "" {
			break
		}

		addr = os.Getenv(name)
	}

	if addr == "" {
		return nil, ErrNoNvimAddress
	}

	client, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to neovim at %s: %w", addr, err)
	}

	return client, nil
}

// Nvim is a document held in a Neovim buffer.
type Nvim struct {
	client *nvim.Nvim
	buffer nvim.Buffer
	path   string
}

// NewNvim finds the buffer whose name matches path.
func NewNvim(client *nvim.Nvim, path string) (*Nvim, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	buffers, err := client.Buffers()
	if err != nil {
		return nil, fmt.Errorf("failed to list neovim buffers: %w", err)
	}

	for _, buffer := range buffers {
		name, err := client.BufferName(buffer)
		if err != nil {
			return nil, fmt.Errorf("failed to get name of buffer %d: %w", buffer, err)
		}

		if name == absPath || name == path {
			return &Nvim{client: client, buffer: buffer, path: absPath}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrBufferNotFound, path)
}

func (n *Nvim) Path() string {
	return n.path
}

func (n *Nvim) Text(_ context.Context) (string, error) {
	raw, err := n.client.BufferLines(n.buffer, 0, -1, true)
	if err != nil {
		return "", fmt.Errorf("failed to read buffer for %s: %w", n.path, err)
	}

	// a buffer always has at least one line, an empty one means the buffer is empty
	if len(raw) == 1 && len(raw[0]) == 0 {
		return "", nil
	}

	var eol, fixeol bool

	if err = n.client.BufferOption(n.buffer, "eol", &eol); err != nil {
		return "", fmt.Errorf("failed to read eol option for %s: %w", n.path, err)
	}

	if err = n.client.BufferOption(n.buffer, "fixeol", &fixeol); err != nil {
		return "", fmt.Errorf("failed to read fixeol option for %s: %w", n.path, err)
	}

	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = string(line)
	}

	// the text is what writing the buffer would produce
	return joinLines(lines, eol || fixeol), nil
}

// Replace swaps the whole buffer content in a single batch, which Neovim records as a single change.
func (n *Nvim) Replace(_ context.Context, text string) error {
	lines, eol := splitLines(text)

	replacement := make([][]byte, len(lines))
	for i, line := range lines {
		replacement[i] = []byte(line)
	}

	b := n.client.NewBatch()
	b.SetBufferLines(n.buffer, 0, -1, true, replacement)
	b.SetBufferOption(n.buffer, "eol", eol)

	if !eol {
		b.SetBufferOption(n.buffer, "fixeol", false)
	}

	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to update buffer for %s: %w", n.path, err)
	}

	return nil
}
