package walk_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/numtide/rabbit/stats"
	"github.com/numtide/rabbit/test"
	"github.com/numtide/rabbit/walk"
	"github.com/stretchr/testify/require"
)

// readUntil reads from r until all of expected have been seen or timeout passes.
func readUntil(t *testing.T, r walk.Reader, timeout time.Duration, expected []string) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var paths []string

	for ctx.Err() == nil {
		files := make([]*walk.File, 8)
		n, err := r.Read(ctx, files)

		for _, file := range files[:n] {
			if !slices.Contains(paths, file.RelPath) {
				paths = append(paths, file.RelPath)
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		done := true
		for _, path := range expected {
			done = done && slices.Contains(paths, path)
		}

		if done {
			break
		}
	}

	return paths
}

func TestWatchReader(t *testing.T) {
	as := require.New(t)

	tempDir := test.TempExamples(t)
	statz := stats.New()

	r, err := walk.NewWatchReader(tempDir, "", statz, 1024)
	as.NoError(err)

	defer func() {
		as.NoError(r.Close())
	}()

	for _, example := range test.ExamplesPaths {
		path := filepath.Join(tempDir, example)
		as.NoError(os.WriteFile(path, []byte(test.ReadFile(t, path)), 0o600))
	}

	paths := readUntil(t, r, 5*time.Second, test.ExamplesPaths)
	as.ElementsMatch(test.ExamplesPaths, paths)
	as.GreaterOrEqual(statz.Value(stats.Traversed), int32(len(test.ExamplesPaths)))
}

func TestWatchReaderCreate(t *testing.T) {
	as := require.New(t)

	tempDir := test.TempExamples(t)

	r, err := walk.NewWatchReader(tempDir, "src", stats.New(), 1024)
	as.NoError(err)

	defer func() {
		as.NoError(r.Close())
	}()

	// a new directory is picked up and files written into it are reported
	dir := filepath.Join(tempDir, "src", "Services")
	as.NoError(os.Mkdir(dir, 0o755))

	// give the watcher a chance to register the directory
	as.Empty(readUntil(t, r, 500*time.Millisecond, nil))

	as.NoError(os.WriteFile(filepath.Join(dir, "Clock.cs"), []byte("class Clock{}\n"), 0o600))

	// temporary replacement files are ignored
	as.NoError(os.WriteFile(filepath.Join(dir, ".Clock.cs.rabbit-123"), []byte("class Clock {}\n"), 0o600))

	paths := readUntil(t, r, 5*time.Second, []string{"src/Services/Clock.cs"})
	as.Equal([]string{"src/Services/Clock.cs"}, paths)
}

func TestWatchReaderCancel(t *testing.T) {
	tempDir := test.TempExamples(t)

	r, err := walk.NewWatchReader(tempDir, "", stats.New(), 1024)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := r.Read(ctx, make([]*walk.File, 8))
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, r.Close())
}
