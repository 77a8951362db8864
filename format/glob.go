package format

import (
	"fmt"

	"github.com/gobwas/glob"
)

// compileGlobs compiles patterns which are matched against paths relative to the tree root.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern '%v': %w", pattern, err)
		}

		globs = append(globs, g)
	}

	return globs, nil
}

func pathMatches(path string, globs []glob.Glob) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}

	return false
}
