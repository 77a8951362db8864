package options

import (
	"errors"
	"fmt"
	"slices"
)

// XamlStylerLogLevels are the values accepted by `xstyler --loglevel`, in increasing order of verbosity.
var XamlStylerLogLevels = []string{"None", "Minimal", "Default", "Verbose", "Debug"}

var ErrPassiveWithStdout = errors.New("xstyler --passive cannot be combined with --write-to-stdout")

// XamlStyler holds the options passed to the xstyler CLI.
type XamlStyler struct {
	// File is the xaml file to process, xstyler accepts a comma separated list.
	File      *string `mapstructure:"file" toml:"file,omitempty"`
	Directory *string `mapstructure:"directory" toml:"directory,omitempty"`
	// Config is a JSON file containing XAML Styler settings.
	Config    *string `mapstructure:"config" toml:"config,omitempty"`
	Ignore    *bool   `mapstructure:"ignore" toml:"ignore,omitempty"`
	Recursive *bool   `mapstructure:"recursive" toml:"recursive,omitempty"`
	// Passive checks formatting without modifying anything, exiting non-zero when a file is not formatted.
	Passive *bool `mapstructure:"passive" toml:"passive,omitempty"`
	// WriteToStdout writes the result to stdout instead of the file. Requires a single file.
	WriteToStdout *bool   `mapstructure:"write-to-stdout" toml:"write-to-stdout,omitempty"`
	LogLevel      *string `mapstructure:"loglevel" toml:"loglevel,omitempty"`

	IndentSize *int  `mapstructure:"indent-size" toml:"indent-size,omitempty"`
	IndentTabs *bool `mapstructure:"indent-tabs" toml:"indent-tabs,omitempty"`

	AttributesTolerance          *int    `mapstructure:"attributes-tolerance" toml:"attributes-tolerance,omitempty"`
	AttributesSameLine           *bool   `mapstructure:"attributes-same-line" toml:"attributes-same-line,omitempty"`
	AttributesMaxChars           *int    `mapstructure:"attributes-max-chars" toml:"attributes-max-chars,omitempty"`
	AttributesMax                *int    `mapstructure:"attributes-max" toml:"attributes-max,omitempty"`
	NoNewlineElements            *string `mapstructure:"no-newline-elements" toml:"no-newline-elements,omitempty"`
	AttributesOrderGroupsNewline *bool   `mapstructure:"attributes-order-groups-newline" toml:"attributes-order-groups-newline,omitempty"`
	AttributesIndentation        *int    `mapstructure:"attributes-indentation" toml:"attributes-indentation,omitempty"`
	AttributesIndentationStyle   *string `mapstructure:"attributes-indentation-style" toml:"attributes-indentation-style,omitempty"`
	RemoveDesignReferences       *bool   `mapstructure:"remove-design-references" toml:"remove-design-references,omitempty"`
	AttributesReorder            *bool   `mapstructure:"attributes-reorder" toml:"attributes-reorder,omitempty"`
	AttributesFirstLine          *string `mapstructure:"attributes-first-line" toml:"attributes-first-line,omitempty"`
	AttributesOrderName          *bool   `mapstructure:"attributes-order-name" toml:"attributes-order-name,omitempty"`

	EndingBracketNewline    *bool   `mapstructure:"ending-bracket-newline" toml:"ending-bracket-newline,omitempty"`
	RemoveEmptyEndingTag    *bool   `mapstructure:"remove-empty-ending-tag" toml:"remove-empty-ending-tag,omitempty"`
	SpaceBeforeClosingSlash *bool   `mapstructure:"space-before-closing-slash" toml:"space-before-closing-slash,omitempty"`
	RootLineBreak           *string `mapstructure:"root-line-break" toml:"root-line-break,omitempty"`

	ReorderVSM            *bool `mapstructure:"reorder-vsm" toml:"reorder-vsm,omitempty"`
	ReorderGridChildren   *bool `mapstructure:"reorder-grid-children" toml:"reorder-grid-children,omitempty"`
	ReorderCanvasChildren *bool `mapstructure:"reorder-canvas-children" toml:"reorder-canvas-children,omitempty"`
	ReorderSetters        *bool `mapstructure:"reorder-setters" toml:"reorder-setters,omitempty"`

	FormatMarkupExtension     *bool   `mapstructure:"format-markup-extension" toml:"format-markup-extension,omitempty"`
	NoNewlineMarkupExtensions *string `mapstructure:"no-newline-markup-extensions" toml:"no-newline-markup-extensions,omitempty"`
	ThicknessStyle            *string `mapstructure:"thickness-style" toml:"thickness-style,omitempty"`
	ThicknessAttributes       *string `mapstructure:"thickness-attributes" toml:"thickness-attributes,omitempty"`

	CommentSpaces *int `mapstructure:"comment-spaces" toml:"comment-spaces,omitempty"`
}

// Args returns the argument list for xstyler, grouped by concern: core I/O first, then the style overrides.
func (x *XamlStyler) Args() []string {
	if x == nil {
		return nil
	}

	var args argList

	// core
	args.str("-f", x.File)
	args.str("-d", x.Directory)
	args.str("-c", x.Config)
	args.flag("-i", x.Ignore)
	args.flag("-r", x.Recursive)
	args.flag("-p", x.Passive)
	args.flag("--write-to-stdout", x.WriteToStdout)
	args.str("-l", x.LogLevel)

	// indentation
	args.int("--indent-size", x.IndentSize)
	args.flag("--indent-tabs", x.IndentTabs)

	// attributes
	args.int("--attributes-tolerance", x.AttributesTolerance)
	args.flag("--attributes-same-line", x.AttributesSameLine)
	args.int("--attributes-max-chars", x.AttributesMaxChars)
	args.int("--attributes-max", x.AttributesMax)
	args.str("--no-newline-elements", x.NoNewlineElements)
	args.flag("--attributes-order-groups-newline", x.AttributesOrderGroupsNewline)
	args.int("--attributes-indentation", x.AttributesIndentation)
	args.str("--attributes-indentation-style", x.AttributesIndentationStyle)
	args.flag("--remove-design-references", x.RemoveDesignReferences)
	args.flag("--attributes-reorder", x.AttributesReorder)
	args.str("--attributes-first-line", x.AttributesFirstLine)
	args.flag("--attributes-order-name", x.AttributesOrderName)

	// elements
	args.flag("--ending-bracket-newline", x.EndingBracketNewline)
	args.flag("--remove-empty-ending-tag", x.RemoveEmptyEndingTag)
	args.flag("--space-before-closing-slash", x.SpaceBeforeClosingSlash)
	args.str("--root-line-break", x.RootLineBreak)

	// element reordering
	args.flag("--reorder-vsm", x.ReorderVSM)
	args.flag("--reorder-grid-children", x.ReorderGridChildren)
	args.flag("--reorder-canvas-children", x.ReorderCanvasChildren)
	args.flag("--reorder-setters", x.ReorderSetters)

	// markup extensions and thickness
	args.flag("--format-markup-extension", x.FormatMarkupExtension)
	args.str("--no-newline-markup-extensions", x.NoNewlineMarkupExtensions)
	args.str("--thickness-style", x.ThicknessStyle)
	args.str("--thickness-attributes", x.ThicknessAttributes)

	// comments
	args.int("--comment-spaces", x.CommentSpaces)

	if len(args) == 0 {
		return nil
	}

	return args
}

func (x *XamlStyler) String() string {
	return Join(x.Args())
}

// Validate checks for option combinations xstyler will reject.
func (x *XamlStyler) Validate() error {
	if x == nil {
		return nil
	}

	if x.Passive != nil && *x.Passive && x.WriteToStdout != nil && *x.WriteToStdout {
		return ErrPassiveWithStdout
	}

	if x.LogLevel != nil && !slices.Contains(XamlStylerLogLevels, *x.LogLevel) {
		return fmt.Errorf("invalid xstyler log level %q, must be one of %v", *x.LogLevel, XamlStylerLogLevels)
	}

	return nil
}

// Clone returns a copy that can be adjusted per invocation without touching shared configuration.
// Fields are pointers to immutable values, callers replace them rather than writing through them.
func (x *XamlStyler) Clone() *XamlStyler {
	if x == nil {
		return &XamlStyler{}
	}

	clone := *x

	return &clone
}
