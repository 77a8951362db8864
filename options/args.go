// Package options models the command line surface of the supported formatter tools.
//
// Each model serialises to a discrete list of argument tokens in a fixed order, suitable for passing directly to
// os/exec without any shell involvement.
package options

import (
	"strconv"
	"strings"
)

// Ptr returns a pointer to v, handy when populating option models by hand.
func Ptr[T any](v T) *T {
	return &v
}

// argList accumulates argument tokens, skipping unset values.
type argList []string

func (a *argList) flag(name string, v *bool) {
	if v != nil && *v {
		*a = append(*a, name)
	}
}

func (a *argList) str(name string, v *string) {
	if v != nil {
		*a = append(*a, name, *v)
	}
}

func (a *argList) int(name string, v *int) {
	if v != nil {
		*a = append(*a, name, strconv.Itoa(*v))
	}
}

// Join renders args as a single line for logging.
// Tokens containing whitespace or quotes are double-quoted. The result is never interpreted by a shell.
func Join(args []string) string {
	var sb strings.Builder

	for idx, arg := range args {
		if idx > 0 {
			sb.WriteByte(' ')
		}

		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			sb.WriteString(strconv.Quote(arg))
		} else {
			sb.WriteString(arg)
		}
	}

	return sb.String()
}
