package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/numtide/rabbit/invoke"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrMultipleSources     = errors.New("only one of --stdin, --nvim or --clipboard may be used")
	ErrWatchWithSource     = errors.New("--watch cannot be combined with --stdin, --nvim or --clipboard")
	ErrMultipleOptionKinds = errors.New("a formatter can have either a csharpier or an xstyler section, not both")
)

// Config is used to represent the list of configured Formatters and how they should be applied.
type Config struct {
	AllowMissingFormatter bool     `mapstructure:"allow-missing-formatter" toml:"allow-missing-formatter,omitempty"`
	Check                 bool     `mapstructure:"check" toml:"-"` // not allowed in config
	CI                    bool     `mapstructure:"ci" toml:"ci,omitempty"`
	ClearCache            bool     `mapstructure:"clear-cache" toml:"-"` // not allowed in config
	Clipboard             bool     `mapstructure:"clipboard" toml:"-"`   // not allowed in config
	EnvBlocklist          []string `mapstructure:"env-blocklist" toml:"env-blocklist,omitempty"`
	EnvFile               string   `mapstructure:"env-file" toml:"env-file,omitempty"`
	Excludes              []string `mapstructure:"excludes" toml:"excludes,omitempty"`
	Formatters            []string `mapstructure:"formatters" toml:"formatters,omitempty"`
	NoCache               bool     `mapstructure:"no-cache" toml:"-"` // not allowed in config
	Nvim                  bool     `mapstructure:"nvim" toml:"-"`     // not allowed in config
	NvimAddr              string   `mapstructure:"nvim-addr" toml:"-"`
	OnUnmatched           string   `mapstructure:"on-unmatched" toml:"on-unmatched,omitempty"`
	Quiet                 bool     `mapstructure:"quiet" toml:"-"`
	Stdin                 bool     `mapstructure:"stdin" toml:"-"` // not allowed in config
	TreeRoot              string   `mapstructure:"tree-root" toml:"tree-root,omitempty"`
	Verbose               uint8    `mapstructure:"verbose" toml:"verbose,omitempty"`
	Walk                  string   `mapstructure:"walk" toml:"walk,omitempty"`
	Watch                 bool     `mapstructure:"watch" toml:"-"` // not allowed in config
	WorkingDirectory      string   `mapstructure:"working-dir" toml:"-"`

	FormatterConfigs map[string]*Formatter `mapstructure:"formatter" toml:"formatter,omitempty"`
}

// SetFlags appends our flags to the provided flag set.
// We have a flag matching most entries in Config, taking care to ensure the name matches the field name defined in the
// mapstructure tag.
// We rely on a flag's default value being provided in the event the same value was not specified in the config file.
func SetFlags(fs *pflag.FlagSet) {
	fs.Bool(
		"allow-missing-formatter", false,
		"Do not exit with error if a configured formatter is missing. (env $RABBIT_ALLOW_MISSING_FORMATTER)",
	)
	fs.Bool(
		"check", false,
		"Check that documents are formatted without modifying them, exiting with error if any are not. "+
			"(env $RABBIT_CHECK)",
	)
	fs.Bool(
		"ci", false,
		"Runs rabbit in a CI mode, enabling --no-cache and --check. (env $RABBIT_CI)",
	)
	fs.BoolP(
		"clear-cache", "c", false,
		"Reset the evaluation cache. (env $RABBIT_CLEAR_CACHE)",
	)
	fs.Bool(
		"clipboard", false,
		"Format the contents of the system clipboard, using the single path argument to select a formatter.",
	)
	fs.StringSlice(
		"env-blocklist", invoke.DefaultBlocklist,
		"Environment variables removed from the environment of formatter processes. (env $RABBIT_ENV_BLOCKLIST)",
	)
	fs.String(
		"env-file", "",
		"A dotenv file with environment overrides for formatter processes. (env $RABBIT_ENV_FILE)",
	)
	fs.StringSlice(
		"excludes", nil,
		"Exclude files or directories matching the specified globs. (env $RABBIT_EXCLUDES)",
	)
	fs.StringSliceP(
		"formatters", "f", nil,
		"Specify formatters to apply. Defaults to all configured formatters. (env $RABBIT_FORMATTERS)",
	)
	fs.Bool(
		"no-cache", false,
		"Ignore the evaluation cache entirely. (env $RABBIT_NO_CACHE)",
	)
	fs.Bool(
		"nvim", false,
		"Format a buffer in a running Neovim instance, identified by the single path argument.",
	)
	fs.String(
		"nvim-addr", "",
		"Address of the Neovim instance, defaults to $NVIM_LISTEN_ADDRESS or $NVIM. (env $RABBIT_NVIM_ADDR)",
	)
	fs.StringP(
		"on-unmatched", "u", "warn",
		"Log paths that did not match any formatters at the specified log level. Possible values are "+
			"<debug|info|warn|error|fatal>. (env $RABBIT_ON_UNMATCHED)",
	)
	fs.BoolP(
		"quiet", "q", false,
		"Only log errors. (env $RABBIT_QUIET)",
	)
	fs.Bool(
		"stdin", false,
		"Format the content passed in via stdin, using the single path argument to select a formatter.",
	)
	fs.String(
		"tree-root", "",
		"The root directory from which rabbit will start walking the filesystem (defaults to the directory "+
			"containing the config file). (env $RABBIT_TREE_ROOT)",
	)
	fs.CountP(
		"verbose", "v",
		"Set the verbosity of logs e.g. -vv. (env $RABBIT_VERBOSE)",
	)
	fs.String(
		"walk", "auto",
		"The method used to traverse the files within the tree root. Currently supports "+
			"<auto|git|filesystem>. (env $RABBIT_WALK)",
	)
	fs.BoolP(
		"watch", "w", false,
		"Keep running and format files as they are written. (env $RABBIT_WATCH)",
	)
	fs.StringP(
		"working-dir", "C", ".",
		"Run as if rabbit was started in the specified working directory instead of the current working "+
			"directory. (env $RABBIT_WORKING_DIR)",
	)
}

// NewViper creates a Viper instance pre-configured with the following options:
// * TOML config type
// * automatic env enabled
// * `RABBIT_` env prefix for environment variables
// * replacement of `-` and `.` with `_` when mapping flags to env e.g. `env-file` => `RABBIT_ENV_FILE`.
func NewViper() (*viper.Viper, error) {
	v := viper.New()

	// Enforce toml (may open this up to other formats in the future)
	v.SetConfigType("toml")

	// Allow env overrides for config and flags.
	v.SetEnvPrefix("rabbit")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// unset some env variables that we don't want automatically applied
	for _, name := range []string{"RABBIT_STDIN", "RABBIT_NVIM", "RABBIT_CLIPBOARD"} {
		if err := os.Unsetenv(name); err != nil {
			return nil, fmt.Errorf("failed to unset %s: %w", name, err)
		}
	}

	return v, nil
}

// FromViper takes a viper instance and produces a Config instance.
func FromViper(v *viper.Viper) (*Config, error) {
	configReset := map[string]any{
		"check":       false,
		"clear-cache": false,
		"clipboard":   false,
		"no-cache":    false,
		"nvim":        false,
		"stdin":       false,
		"watch":       false,
		"working-dir": ".",
	}

	// reset certain values which are not allowed to be specified in the config file
	if err := v.MergeConfigMap(configReset); err != nil {
		return nil, fmt.Errorf("failed to overwrite config values: %w", err)
	}

	// read config from viper
	var err error

	cfg := &Config{}

	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// resolve the working directory to an absolute path
	cfg.WorkingDirectory, err = filepath.Abs(cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for working directory: %w", err)
	}

	// determine the tree root
	if cfg.TreeRoot == "" {
		if configFile := v.ConfigFileUsed(); configFile != "" {
			// the directory containing the config file
			cfg.TreeRoot = filepath.Dir(configFile)
		} else {
			// otherwise we fall back to the working directory
			cfg.TreeRoot = cfg.WorkingDirectory
		}
	}

	// resolve tree root to an absolute path
	if cfg.TreeRoot, err = filepath.Abs(cfg.TreeRoot); err != nil {
		return nil, fmt.Errorf("failed to get absolute path for tree root: %w", err)
	}

	// only one alternative document source can be used at a time
	sources := 0

	for _, enabled := range []bool{cfg.Stdin, cfg.Nvim, cfg.Clipboard} {
		if enabled {
			sources++
		}
	}

	if sources > 1 {
		return nil, ErrMultipleSources
	} else if sources == 1 && cfg.Watch {
		return nil, ErrWatchWithSource
	}

	// fall back to built-in formatters for csharp and xaml
	if len(cfg.FormatterConfigs) == 0 {
		cfg.FormatterConfigs = DefaultFormatters()
	}

	for name, formatterCfg := range cfg.FormatterConfigs {
		if err = formatterCfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config for formatter %v: %w", name, err)
		}
	}

	// filter formatters based on provided names
	if len(cfg.Formatters) > 0 {
		filtered := make(map[string]*Formatter)

		// check if the provided names exist in the config
		for _, name := range cfg.Formatters {
			formatterCfg, ok := cfg.FormatterConfigs[name]
			if !ok {
				return nil, fmt.Errorf("formatter %v not found in config", name)
			}

			filtered[name] = formatterCfg
		}

		// updated formatters
		cfg.FormatterConfigs = filtered
	}

	// ci mode
	if cfg.CI {
		cfg.NoCache = true
		cfg.Check = true

		// ensure at least info level logging
		if cfg.Verbose < 1 {
			cfg.Verbose = 1
		}
	}

	// the cache only tracks files on disk which have been rewritten
	if cfg.Check || cfg.Stdin || cfg.Nvim || cfg.Clipboard {
		cfg.NoCache = true
	}

	if cfg.EnvFile != "" && !filepath.IsAbs(cfg.EnvFile) {
		cfg.EnvFile = filepath.Join(cfg.WorkingDirectory, cfg.EnvFile)
	}

	l := log.WithPrefix("config")
	l.Debugf("tree root = %s", cfg.TreeRoot)
	l.Debugf("formatters = %d", len(cfg.FormatterConfigs))

	return cfg, nil
}

// Find returns the first of fileNames found in dir.
func Find(dir string, fileNames ...string) (path string, err error) {
	for _, f := range fileNames {
		path := filepath.Join(dir, f)
		if fileExists(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("could not find %s in %s", fileNames, dir)
}

// FindUp searches searchDir and then each of its parents for any of fileNames.
func FindUp(searchDir string, fileNames ...string) (path string, dir string, err error) {
	for _, dir := range eachDir(searchDir) {
		if path, err := Find(dir, fileNames...); err == nil {
			return path, dir, nil
		}
	}

	return "", "", fmt.Errorf("could not find %s in %s or its parents", fileNames, searchDir)
}

func eachDir(path string) (paths []string) {
	path, err := filepath.Abs(path)
	if err != nil {
		return
	}

	paths = []string{path}

	if path == "/" {
		return
	}

	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == os.PathSeparator {
			path = path[:i]
			if path == "" {
				path = "/"
			}

			paths = append(paths, path)
		}
	}

	return
}

func fileExists(path string) bool {
	// Some broken filesystems like SSHFS return file information on stat() but
	// then cannot open the file. So we use os.Open.
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// Next, check that the file is a regular file.
	fi, err := f.Stat()
	if err != nil {
		return false
	}

	return fi.Mode().IsRegular()
}
