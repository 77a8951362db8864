package test

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fake formatter scripts standing in for the real tools:
//   - csharpier: adds a space before `{`, fails on unbalanced braces unless --compilation-errors-as-warnings
//     and refuses to run when DOTNET_ROOT is set.
//   - xstyler: strips trailing whitespace, fails on unbalanced angle brackets, supports -f, -p and
//     --write-to-stdout.
//   - sleepy: never finishes on its own.
//   - noisy: writes 1MiB to stderr before echoing stdin.
//   - envdump: prints its environment and working directory.
//
// When RABBIT_FAKE_ARGS is set, csharpier and xstyler write their arguments into that file, one per line.
//
//go:embed bin/*
var fakes embed.FS

// FakeFormatters installs the fake formatters into a temporary directory and prepends it to PATH for the duration
// of the test. It returns the bin directory.
func FakeFormatters(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake formatters are shell scripts")
	}

	binDir := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.Mkdir(binDir, 0o755))

	entries, err := fs.ReadDir(fakes, "bin")
	require.NoError(t, err)

	for _, entry := range entries {
		script, err := fakes.ReadFile("bin/" + entry.Name())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(binDir, entry.Name()), script, 0o755)) //nolint:gosec
	}

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	return binDir
}

// RecordArgs makes the fake formatters record their arguments and returns a function for reading them back.
func RecordArgs(t *testing.T) func() []string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "args")
	t.Setenv("RABBIT_FAKE_ARGS", path)

	return func() []string {
		t.Helper()

		data, err := os.ReadFile(path)
		require.NoError(t, err, "failed to read recorded args")

		return splitLines(string(data))
	}
}

func splitLines(s string) []string {
	var lines []string

	start := 0

	for idx := 0; idx < len(s); idx++ {
		if s[idx] == '\n' {
			lines = append(lines, s[start:idx])
			start = idx + 1
		}
	}

	if start < len(s) {
		lines = append(lines, s[start:])
	}

	return lines
}
