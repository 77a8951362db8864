package options

import (
	"fmt"
	"slices"
)

const (
	CSharpierFormat = "format"
	CSharpierCheck  = "check"
)

// CSharpier holds the options passed to the csharpier CLI.
type CSharpier struct {
	// Command is the csharpier sub command, either `format` (the default) or `check`.
	Command *string `mapstructure:"command" toml:"command,omitempty"`

	// WriteStdout writes the formatted result to stdout instead of rewriting files.
	WriteStdout *bool `mapstructure:"write-stdout" toml:"write-stdout,omitempty"`
	// CompilationErrorsAsWarnings reports input that does not compile as a warning rather than a failure.
	CompilationErrorsAsWarnings *bool `mapstructure:"compilation-errors-as-warnings" toml:"compilation-errors-as-warnings,omitempty"`
	// SkipValidation skips the round trip validation of the formatted syntax tree.
	SkipValidation   *bool `mapstructure:"skip-validation" toml:"skip-validation,omitempty"`
	NoCache          *bool `mapstructure:"no-cache" toml:"no-cache,omitempty"`
	NoMSBuildCheck   *bool `mapstructure:"no-msbuild-check" toml:"no-msbuild-check,omitempty"`
	IncludeGenerated *bool `mapstructure:"include-generated" toml:"include-generated,omitempty"`

	// StdinPath is only used to resolve config and ignore files, it is never read.
	StdinPath  *string `mapstructure:"stdin-path" toml:"stdin-path,omitempty"`
	ConfigPath *string `mapstructure:"config-path" toml:"config-path,omitempty"`
	IgnorePath *string `mapstructure:"ignore-path" toml:"ignore-path,omitempty"`
	LogLevel   *string `mapstructure:"log-level" toml:"log-level,omitempty"`
	LogFormat  *string `mapstructure:"log-format" toml:"log-format,omitempty"`
}

// Args returns the argument list for csharpier.
// The sub command is only emitted when at least one other argument is present or it was set explicitly, so an empty
// model produces an empty list.
func (c *CSharpier) Args() []string {
	if c == nil {
		return nil
	}

	var args argList

	// behaviour
	args.flag("--write-stdout", c.WriteStdout)
	args.flag("--compilation-errors-as-warnings", c.CompilationErrorsAsWarnings)
	args.flag("--skip-validation", c.SkipValidation)
	args.flag("--no-cache", c.NoCache)
	args.flag("--no-msbuild-check", c.NoMSBuildCheck)
	args.flag("--include-generated", c.IncludeGenerated)

	// paths
	args.str("--stdin-path", c.StdinPath)
	args.str("--config-path", c.ConfigPath)
	args.str("--ignore-path", c.IgnorePath)

	// logging
	args.str("--log-level", c.LogLevel)
	args.str("--log-format", c.LogFormat)

	if c.Command == nil && len(args) == 0 {
		return nil
	}

	command := CSharpierFormat
	if c.Command != nil {
		command = *c.Command
	}

	return append([]string{command}, args...)
}

func (c *CSharpier) String() string {
	return Join(c.Args())
}

// Validate checks for option combinations csharpier will reject.
func (c *CSharpier) Validate() error {
	if c == nil || c.Command == nil {
		return nil
	}

	if !slices.Contains([]string{CSharpierFormat, CSharpierCheck}, *c.Command) {
		return fmt.Errorf("invalid csharpier command %q, must be one of <%s|%s>", *c.Command, CSharpierFormat, CSharpierCheck)
	}

	if *c.Command == CSharpierCheck && c.WriteStdout != nil && *c.WriteStdout {
		return fmt.Errorf("csharpier --write-stdout cannot be used with the %s command", CSharpierCheck)
	}

	return nil
}

// Clone returns a copy that can be adjusted per invocation without touching shared configuration.
// Fields are pointers to immutable values, callers replace them rather than writing through them.
func (c *CSharpier) Clone() *CSharpier {
	if c == nil {
		return &CSharpier{}
	}

	clone := *c

	return &clone
}
