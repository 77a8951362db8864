// Package build contains values set at link time.
package build

var (
	Name    = "rabbit"
	Version = "v0.0.0+dev"
)
