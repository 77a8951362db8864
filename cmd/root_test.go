package cmd_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/numtide/rabbit/cmd"
	formatCmd "github.com/numtide/rabbit/cmd/format"
	"github.com/numtide/rabbit/config"
	"github.com/numtide/rabbit/editor"
	"github.com/numtide/rabbit/format"
	"github.com/numtide/rabbit/invoke"
	typedoptions "github.com/numtide/rabbit/options"
	"github.com/numtide/rabbit/stats"
	"github.com/numtide/rabbit/test"
	"github.com/stretchr/testify/require"
)

const (
	calculatorFormatted = "namespace MyApp;\n" +
		"public class Calculator {\n" +
		"public int Add(int a, int b) {return a + b;}\n" +
		"}\n"

	mainWindowFormatted = "<Window xmlns=\"https://github.com/avaloniaui\"\n" +
		"        Title=\"Rabbit\">\n" +
		"    Welcome to Avalonia!\n" +
		"</Window>\n"
)

// setupExamples copies the example tree, installs the fake formatters and changes into the tree.
func setupExamples(t *testing.T) string {
	t.Helper()

	tempDir := test.TempExamples(t)
	test.FakeFormatters(t)
	test.ChangeWorkDir(t, tempDir)

	return tempDir
}

func TestDefaults(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)

	rabbit(t,
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 5,
			stats.Matched:   4,
			stats.Formatted: 4,
			stats.Changed:   2,
			stats.Failed:    0,
		}),
		withOutput(func(out []byte) {
			as.Contains(string(out), "no formatter for path: docs/README.md")
			as.Contains(string(out), "changed 2 documents")
		}),
	)

	as.Equal(calculatorFormatted, test.ReadFile(t, filepath.Join(tempDir, "src/Calculator.cs")))
	as.Equal(mainWindowFormatted, test.ReadFile(t, filepath.Join(tempDir, "src/Views/MainWindow.axaml")))
}

func TestCheck(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)
	calculator := filepath.Join(tempDir, "src/Calculator.cs")
	original := test.ReadFile(t, calculator)

	rabbit(t,
		withArgs("--check"),
		withError(func(err error) {
			as.ErrorIs(err, format.ErrNotFormatted)
		}),
		withStats(t, map[stats.Type]int{
			stats.Matched:   4,
			stats.Formatted: 4,
			stats.Changed:   2,
			stats.Failed:    0,
		}),
		withOutput(func(out []byte) {
			as.Contains(string(out), "found 2 documents not formatted")
			as.Contains(string(out), "Was not formatted")
		}),
	)

	// nothing is modified
	as.Equal(original, test.ReadFile(t, calculator))

	// once formatted, the check passes
	rabbit(t, withNoError(t))

	rabbit(t,
		withArgs("--check"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Formatted: 4,
			stats.Changed:   0,
		}),
	)
}

func TestCI(t *testing.T) {
	as := require.New(t)

	setupExamples(t)

	rabbit(t,
		withArgs("--ci"),
		withError(func(err error) {
			as.ErrorIs(err, format.ErrNotFormatted)
		}),
		withOutput(func(out []byte) {
			as.Contains(string(out), "ci mode enabled")
			as.Contains(string(out), "document is not formatted")
		}),
	)
}

func TestFailures(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)

	broken := filepath.Join(tempDir, "src/Broken.cs")
	as.NoError(os.WriteFile(broken, []byte("public class Broken{\n"), 0o600))

	rabbit(t,
		withError(func(err error) {
			as.ErrorIs(err, formatCmd.ErrFormattingFailures)
		}),
		withStats(t, map[stats.Type]int{
			stats.Matched:   5,
			stats.Formatted: 4,
			stats.Changed:   2,
			stats.Failed:    1,
		}),
		withOutput(func(out []byte) {
			as.Contains(string(out), "} expected")
		}),
	)

	// the broken document is left alone, the others are still formatted
	as.Equal("public class Broken{\n", test.ReadFile(t, broken))
	as.Equal(calculatorFormatted, test.ReadFile(t, filepath.Join(tempDir, "src/Calculator.cs")))
}

func TestOnUnmatched(t *testing.T) {
	as := require.New(t)

	setupExamples(t)

	checkOutput := func(level log.Level) func([]byte) {
		logPrefix := strings.ToUpper(level.String())[:4]

		return func(out []byte) {
			as.Contains(string(out), logPrefix)
			as.Contains(string(out), "no formatter for path: docs/README.md")
		}
	}

	// default is warn
	rabbit(t,
		withArgs("-c"),
		withOutput(checkOutput(log.WarnLevel)),
	)

	for _, level := range []log.Level{log.WarnLevel, log.ErrorLevel} {
		rabbit(t,
			withArgs("-c", "--on-unmatched", level.String()),
			withNoError(t),
			withOutput(checkOutput(level)),
		)

		t.Setenv("RABBIT_ON_UNMATCHED", level.String())

		rabbit(t,
			withArgs("-c"),
			withNoError(t),
			withOutput(checkOutput(level)),
		)
	}

	// info and debug are hidden at the default verbosity
	rabbit(t,
		withArgs("-c", "-u", "debug"),
		withNoError(t),
		withOutput(func(out []byte) {
			as.NotContains(string(out), "no formatter for path")
		}),
	)

	rabbit(t,
		withArgs("-c", "-vv", "-u", "debug"),
		withNoError(t),
		withOutput(checkOutput(log.DebugLevel)),
	)

	// fatal stops processing
	rabbit(t,
		withArgs("-c", "-u", "fatal"),
		withError(func(err error) {
			as.ErrorIs(err, format.ErrUnmatched)
			as.ErrorContains(err, "docs/README.md")
		}),
	)

	rabbit(t,
		withArgs("-c", "-u", "foo"),
		withError(func(err error) {
			as.ErrorContains(err, "invalid on-unmatched value")
		}),
	)
}

func TestAllowMissingFormatter(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)
	configPath := filepath.Join(tempDir, "rabbit.toml")

	cfg := &config.Config{
		FormatterConfigs: map[string]*config.Formatter{
			"csharp": {
				Command:  "dotnet-csharpier-missing",
				Includes: []string{"*.cs"},
			},
			"xaml": {
				Command:  "xstyler",
				Includes: []string{"*.xaml", "*.axaml"},
			},
		},
	}

	rabbit(t,
		withConfig(configPath, cfg),
		withError(func(err error) {
			as.ErrorIs(err, format.ErrCommandNotFound)
		}),
	)

	rabbit(t,
		withArgs("--allow-missing-formatter"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Matched:   2,
			stats.Formatted: 2,
			stats.Changed:   1,
		}),
	)

	t.Setenv("RABBIT_ALLOW_MISSING_FORMATTER", "true")

	rabbit(t,
		withArgs("-c"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Matched: 2,
		}),
	)
}

func TestSpecifyingFormatters(t *testing.T) {
	as := require.New(t)

	setupExamples(t)

	rabbit(t,
		withArgs("-f", "xaml"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 5,
			stats.Matched:   2,
			stats.Formatted: 2,
			stats.Changed:   1,
		}),
	)

	t.Setenv("RABBIT_FORMATTERS", "csharp,xaml")

	rabbit(t,
		withArgs("-c"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Matched:   4,
			stats.Formatted: 4,
			stats.Changed:   1,
		}),
	)

	rabbit(t,
		withArgs("-c", "-f", "rust"),
		withError(func(err error) {
			as.ErrorContains(err, "formatter rust not found in config")
		}),
	)
}

func TestConfig(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)
	recorded := test.RecordArgs(t)

	// typed options are passed through to csharpier
	cfg := &config.Config{
		Excludes: []string{"docs/*"},
		FormatterConfigs: map[string]*config.Formatter{
			"csharp": {
				Command:  "csharpier",
				Includes: []string{"*.cs"},
				CSharpier: &typedoptions.CSharpier{
					CompilationErrorsAsWarnings: typedoptions.Ptr(true),
					LogLevel:                    typedoptions.Ptr("Warning"),
				},
			},
		},
	}

	configPath := filepath.Join(tempDir, ".rabbit.toml")

	rabbit(t,
		withConfig(configPath, cfg),
		withArgs("src/Calculator.cs"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 1,
			stats.Matched:   1,
			stats.Formatted: 1,
			stats.Changed:   1,
		}),
	)

	args := recorded()
	as.Len(args, 7)
	as.Equal([]string{"format", "--write-stdout", "--compilation-errors-as-warnings", "--stdin-path"}, args[:4])
	as.True(filepath.IsAbs(args[4]))
	as.True(strings.HasSuffix(args[4], "/src/Calculator.cs"))
	as.Equal([]string{"--log-level", "Warning"}, args[5:])

	// global excludes apply and xaml is no longer configured
	rabbit(t,
		withArgs("-c"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 6,
			stats.Matched:   2,
		}),
		withOutput(func(out []byte) {
			as.NotContains(string(out), "docs/README.md")
		}),
	)

	// an explicit config file wins over the search
	other := filepath.Join(t.TempDir(), "other.toml")
	test.WriteConfig(t, other, &config.Config{
		FormatterConfigs: map[string]*config.Formatter{
			"xaml": {
				Command:  "xstyler",
				Includes: []string{"*.axaml"},
			},
		},
	})

	rabbit(t,
		withArgs("-c", "--config-file", other, "--tree-root", tempDir),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Matched:   1,
			stats.Formatted: 1,
			stats.Changed:   1,
		}),
	)

	t.Setenv("RABBIT_CONFIG", filepath.Join(tempDir, "missing.toml"))

	rabbit(t,
		withError(func(err error) {
			as.ErrorContains(err, "failed to read config file")
		}),
	)
}

func TestPaths(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)

	rabbit(t,
		withArgs("src/Views"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 2,
			stats.Matched:   2,
			stats.Formatted: 2,
			stats.Changed:   1,
		}),
	)

	// paths are relative to the working directory
	test.ChangeWorkDir(t, filepath.Join(tempDir, "src"))

	rabbit(t,
		withArgs("Calculator.cs", "Models"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 2,
			stats.Matched:   2,
			stats.Formatted: 2,
			stats.Changed:   1,
		}),
	)

	rabbit(t,
		withArgs("Missing.cs"),
		withError(func(err error) {
			as.ErrorContains(err, "not found")
		}),
	)

	rabbit(t,
		withArgs("-C", tempDir, "src/Models/Person.cs"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 1,
			stats.Matched:   1,
		}),
	)
}

func TestCache(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)
	calculator := filepath.Join(tempDir, "src/Calculator.cs")
	original := test.ReadFile(t, calculator)

	rabbit(t,
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 5,
			stats.Formatted: 4,
			stats.Changed:   2,
		}),
	)

	// everything is cached
	rabbit(t,
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 5,
			stats.Formatted: 0,
			stats.Changed:   0,
		}),
	)

	// a modified file is picked up
	as.NoError(os.WriteFile(calculator, []byte(original), 0o600))

	rabbit(t,
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Formatted: 1,
			stats.Changed:   1,
		}),
	)

	// a modified formatter invalidates everything
	bin, err := filepath.Abs(filepath.Join(strings.Split(os.Getenv("PATH"), string(os.PathListSeparator))[0], "xstyler"))
	as.NoError(err)
	test.LutimesBump(t, bin, time.Second, time.Second)

	rabbit(t,
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Formatted: 4,
			stats.Changed:   0,
		}),
	)

	rabbit(t,
		withArgs("--no-cache"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Formatted: 4,
		}),
	)

	rabbit(t,
		withArgs("--clear-cache"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Formatted: 4,
		}),
	)

	// failures are never cached
	broken := filepath.Join(tempDir, "src/Broken.cs")
	as.NoError(os.WriteFile(broken, []byte("public class Broken{\n"), 0o600))

	for i := 0; i < 2; i++ {
		rabbit(t,
			withError(func(err error) {
				as.ErrorIs(err, formatCmd.ErrFormattingFailures)
			}),
			withStats(t, map[stats.Type]int{
				stats.Formatted: 0,
				stats.Failed:    1,
			}),
		)
	}
}

func TestStdin(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)
	original := test.ReadFile(t, filepath.Join(tempDir, "src/Calculator.cs"))
	recorded := test.RecordArgs(t)

	rabbit(t,
		withArgs("--stdin", "src/Example.cs"),
		withStdin(t, original),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 1,
			stats.Matched:   1,
			stats.Formatted: 1,
			stats.Changed:   1,
		}),
		withOutput(func(out []byte) {
			as.Contains(string(out), calculatorFormatted)
			as.NotContains(string(out), "traversed")
		}),
	)

	// the path is only a hint
	as.NoFileExists(filepath.Join(tempDir, "src/Example.cs"))

	// csharpier runs in src, so it must be given a path which does not depend on its working directory
	args := recorded()
	as.Len(args, 4)
	as.Equal([]string{"format", "--write-stdout", "--stdin-path"}, args[:3])
	as.True(filepath.IsAbs(args[3]))
	as.True(strings.HasSuffix(args[3], "/src/Example.cs"))
	as.NotContains(args[3], "/src/src/")

	// failures still echo the input
	rabbit(t,
		withArgs("--stdin", "src/Broken.cs"),
		withStdin(t, "public class Broken{\n"),
		withError(func(err error) {
			var toolErr *invoke.ToolError
			as.ErrorAs(err, &toolErr)
			as.Equal(1, toolErr.ExitCode)
		}),
		withOutput(func(out []byte) {
			as.Contains(string(out), "public class Broken{\n")
		}),
	)

	// unmatched paths are echoed unchanged
	rabbit(t,
		withArgs("--stdin", "notes.txt"),
		withStdin(t, "hello\n"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Matched: 0,
		}),
		withOutput(func(out []byte) {
			as.Contains(string(out), "hello\n")
		}),
	)

	rabbit(t,
		withArgs("--stdin", "src/Example.cs", "src/Other.cs"),
		withError(func(err error) {
			as.ErrorIs(err, formatCmd.ErrSinglePath)
		}),
	)

	rabbit(t,
		withArgs("--stdin", "--clipboard", "src/Example.cs"),
		withError(func(err error) {
			as.ErrorIs(err, config.ErrMultipleSources)
		}),
	)

	rabbit(t,
		withArgs("--stdin", "--watch", "src/Example.cs"),
		withError(func(err error) {
			as.ErrorIs(err, config.ErrWatchWithSource)
		}),
	)
}

func TestNvimWithoutAddress(t *testing.T) {
	as := require.New(t)

	setupExamples(t)

	t.Setenv("NVIM_LISTEN_ADDRESS", "")
	t.Setenv("NVIM", "")

	rabbit(t,
		withArgs("--nvim", "src/Calculator.cs"),
		withError(func(err error) {
			as.ErrorIs(err, editor.ErrNoNvimAddress)
		}),
	)
}

func TestEnvFile(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)

	t.Setenv("DOTNET_ROOT", "/opt/visualstudio/dotnet")
	t.Setenv("RABBIT_TEST_PARENT", "inherited")

	envFile := filepath.Join(tempDir, ".rabbit.env")
	as.NoError(os.WriteFile(envFile, []byte("RABBIT_TEST_OVERRIDE=from-file\nRABBIT_TEST_PARENT=overridden\n"), 0o600))

	cfg := &config.Config{
		FormatterConfigs: map[string]*config.Formatter{
			"dump": {
				Command:  "envdump",
				Includes: []string{"*.md"},
			},
		},
	}

	rabbit(t,
		withConfig(filepath.Join(tempDir, "rabbit.toml"), cfg),
		withArgs("--env-file", ".rabbit.env", "docs/README.md"),
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Formatted: 1,
			stats.Changed:   1,
		}),
	)

	dump := test.ReadFile(t, filepath.Join(tempDir, "docs/README.md"))
	as.Contains(dump, "RABBIT_TEST_OVERRIDE=from-file")
	as.Contains(dump, "RABBIT_TEST_PARENT=overridden")
	as.NotContains(dump, "DOTNET_ROOT=")
	as.Contains(dump, "PWD="+filepath.Join(tempDir, "docs"))

	rabbit(t,
		withArgs("--env-file", "missing.env", "docs/README.md"),
		withError(func(err error) {
			as.ErrorContains(err, "failed to load env file")
		}),
	)
}

func TestComment(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)
	calculator := filepath.Join(tempDir, "src/Calculator.cs")

	rabbit(t,
		withArgs("comment", "src/Calculator.cs", "--start", "2", "--end", "3"),
		withNoError(t),
	)

	as.Equal("namespace MyApp;\n"+
		"// public class Calculator{\n"+
		"// public int Add(int a, int b){return a + b;}\n"+
		"}\n", test.ReadFile(t, calculator))

	rabbit(t,
		withArgs("comment", "src/Calculator.cs", "-s", "4", "-e", "10", "-p", "#"),
		withNoError(t),
	)

	as.True(strings.HasSuffix(test.ReadFile(t, calculator), "\n#}\n"))

	rabbit(t,
		withArgs("comment", "src/Calculator.cs", "-v"),
		withNoError(t),
		withOutput(func(out []byte) {
			as.Contains(string(out), "commenting lines 1-1 of src/Calculator.cs")
		}),
	)

	as.True(strings.HasPrefix(test.ReadFile(t, calculator), "// namespace MyApp;\n"))

	rabbit(t,
		withArgs("comment", "src/Calculator.cs", "--start", "3", "--end", "2"),
		withError(func(err error) {
			as.ErrorIs(err, editor.ErrInvalidRange)
		}),
	)

	rabbit(t,
		withArgs("comment", "src/Missing.cs"),
		withError(func(err error) {
			as.ErrorIs(err, os.ErrNotExist)
		}),
	)
}

func TestInit(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)

	rabbit(t,
		withArgs("--init"),
		withNoError(t),
		withOutput(func(out []byte) {
			as.Contains(string(out), "Generated rabbit.toml")
		}),
	)

	as.FileExists(filepath.Join(tempDir, "rabbit.toml"))

	rabbit(t,
		withArgs("-i"),
		withError(func(err error) {
			as.ErrorContains(err, "rabbit.toml already exists")
		}),
	)

	// the generated config is valid
	rabbit(t,
		withNoError(t),
		withStats(t, map[stats.Type]int{
			stats.Traversed: 6,
			stats.Matched:   4,
			stats.Formatted: 4,
			stats.Changed:   2,
		}),
	)
}

func TestCompletion(t *testing.T) {
	as := require.New(t)

	for _, shell := range []string{"bash", "zsh", "fish"} {
		rabbit(t,
			withArgs("completion", shell),
			withNoError(t),
			withOutput(func(out []byte) {
				as.Contains(string(out), "rabbit")
			}),
		)
	}

	rabbit(t,
		withArgs("completion", "powershell"),
		withError(func(err error) {
			as.ErrorContains(err, "unsupported shell")
		}),
	)
}

func TestWatch(t *testing.T) {
	as := require.New(t)

	tempDir := setupExamples(t)
	created := filepath.Join(tempDir, "src/Created.cs")
	unformatted := "public class Created{\n}\n"
	formatted := "public class Created {\n}\n"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go rabbit(t,
		withArgs("--watch", "--no-cache"),
		withContext(ctx),
		withError(func(err error) {
			errCh <- err
		}),
	)

	// wait for the initial pass
	as.Eventually(func() bool {
		content, err := os.ReadFile(filepath.Join(tempDir, "src/Calculator.cs"))

		return err == nil && string(content) == calculatorFormatted
	}, 10*time.Second, 50*time.Millisecond)

	// keep writing the file until the watcher has picked it up
	as.Eventually(func() bool {
		content, err := os.ReadFile(created)
		if err == nil && string(content) == formatted {
			return true
		}

		_ = os.WriteFile(created, []byte(unformatted), 0o600)

		return false
	}, 15*time.Second, 500*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		as.NoError(err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for rabbit to exit")
	}
}

type options struct {
	args  []string
	ctx   context.Context //nolint:containedctx
	stdin *os.File

	config struct {
		path  string
		value *config.Config
	}

	assertOut   func([]byte)
	assertError func(error)
	assertStats func(*stats.Stats)
}

type option func(*options)

func withArgs(args ...string) option {
	return func(o *options) {
		o.args = args
	}
}

func withConfig(path string, cfg *config.Config) option {
	return func(o *options) {
		o.config.path = path
		o.config.value = cfg
	}
}

func withContext(ctx context.Context) option {
	return func(o *options) {
		o.ctx = ctx
	}
}

func withStdin(t *testing.T, content string) option {
	t.Helper()

	file := test.TempFile(t, t.TempDir(), "stdin", &content)

	return func(o *options) {
		o.stdin = file
	}
}

func withStats(t *testing.T, expected map[stats.Type]int) option {
	return func(o *options) {
		o.assertStats = func(s *stats.Stats) {
			for k, v := range expected {
				require.Equal(t, int32(v), s.Value(k), k.String()) //nolint:gosec
			}
		}
	}
}

func withError(fn func(error)) option {
	return func(o *options) {
		o.assertError = fn
	}
}

func withNoError(t *testing.T) option {
	return func(o *options) {
		o.assertError = func(err error) {
			require.NoError(t, err)
		}
	}
}

func withOutput(fn func([]byte)) option {
	return func(o *options) {
		o.assertOut = fn
	}
}

func rabbit(
	t *testing.T,
	opt ...option,
) {
	t.Helper()

	// build options
	opts := &options{}
	for _, option := range opt {
		option(opts)
	}

	// default args if nil
	// we must pass an empty array otherwise cobra with use os.Args[1:]
	args := opts.args
	if args == nil {
		args = []string{}
	}

	ctx := opts.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	// write config
	if opts.config.value != nil {
		test.WriteConfig(t, opts.config.path, opts.config.value)
	}

	t.Logf("rabbit %s", strings.Join(args, " "))

	tempDir := t.TempDir()
	tempOut := test.TempFile(t, tempDir, "combined_output", nil)

	// capture standard streams before swapping them
	stdin := os.Stdin
	stdout := os.Stdout
	stderr := os.Stderr

	// swap them temporarily
	if opts.stdin != nil {
		os.Stdin = opts.stdin
	}

	os.Stdout = tempOut
	os.Stderr = tempOut

	log.SetOutput(tempOut)

	defer func() {
		// swap streams back
		os.Stdin = stdin
		os.Stdout = stdout
		os.Stderr = stderr
		log.SetOutput(stderr)
	}()

	// run the command
	root, statz := cmd.NewRoot()

	root.SetArgs(args)
	root.SetOut(tempOut)
	root.SetErr(tempOut)

	// execute the command
	cmdErr := root.ExecuteContext(ctx)

	// reset and read the temporary output
	if _, resetErr := tempOut.Seek(0, 0); resetErr != nil {
		t.Fatal(fmt.Errorf("failed to reset temp output for reading: %w", resetErr))
	}

	out, readErr := io.ReadAll(tempOut)
	if readErr != nil {
		t.Fatal(fmt.Errorf("failed to read temp output: %w", readErr))
	}

	t.Log("\n" + string(out))

	if opts.assertStats != nil {
		opts.assertStats(statz)
	}

	if opts.assertOut != nil {
		opts.assertOut(out)
	}

	if opts.assertError != nil {
		opts.assertError(cmdErr)
	}
}
