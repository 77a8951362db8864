package config

import (
	"errors"

	"github.com/numtide/rabbit/options"
)

type Formatter struct {
	// Command is the command to invoke when applying this Formatter.
	Command string `mapstructure:"command" toml:"command"`
	// Options are an optional list of args appended after any typed options.
	Options []string `mapstructure:"options,omitempty" toml:"options,omitempty"`
	// Includes is a list of glob patterns used to determine whether this Formatter should be applied against a path.
	Includes []string `mapstructure:"includes,omitempty" toml:"includes,omitempty"`
	// Excludes is an optional list of glob patterns used to exclude certain files from this Formatter.
	Excludes []string `mapstructure:"excludes,omitempty" toml:"excludes,omitempty"`
	// Priority decides which Formatter wins when several want the same path, highest first.
	Priority int `mapstructure:"priority,omitempty" toml:"priority,omitempty"`

	// CSharpier makes this a csharpier formatter, with content delivered via stdin.
	CSharpier *options.CSharpier `mapstructure:"csharpier,omitempty" toml:"csharpier,omitempty"`
	// XamlStyler makes this an xstyler formatter, with content delivered via a temporary file.
	XamlStyler *options.XamlStyler `mapstructure:"xstyler,omitempty" toml:"xstyler,omitempty"`
}

// DefaultFormatters are used when no formatters have been configured.
func DefaultFormatters() map[string]*Formatter {
	return map[string]*Formatter{
		"csharp": {
			Command:   "csharpier",
			Includes:  []string{"*.cs"},
			CSharpier: &options.CSharpier{},
		},
		"xaml": {
			Command:    "xstyler",
			Includes:   []string{"*.xaml", "*.axaml"},
			XamlStyler: &options.XamlStyler{},
		},
	}
}

// Validate checks the formatter's options.
func (f *Formatter) Validate() error {
	if f.Command == "" {
		return errors.New("command must be specified")
	}

	if f.CSharpier != nil && f.XamlStyler != nil {
		return ErrMultipleOptionKinds
	}

	if err := f.CSharpier.Validate(); err != nil {
		return err //nolint:wrapcheck
	}

	return f.XamlStyler.Validate() //nolint:wrapcheck
}
