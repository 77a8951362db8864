package invoke

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

// DefaultBlocklist contains variables a host process may inject to force a specific .NET runtime.
// Removing them lets formatter tools resolve their own runtime.
var DefaultBlocklist = []string{"DOTNET_ROOT", "DOTNET_ROOT(x86)"}

// ChildEnviron derives a child process environment from parent.
// Entries named in blocklist are removed and overrides are then applied, replacing any existing value.
// The output is sorted so that it is stable across calls.
func ChildEnviron(parent []string, blocklist []string, overrides map[string]string) []string {
	vars := make(map[string]string, len(parent)+len(overrides))

	for _, kv := range parent {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}

		if isBlocked(name, blocklist) {
			continue
		}

		vars[name] = value
	}

	for name, value := range overrides {
		vars[name] = value
	}

	env := make([]string, 0, len(vars))
	for name, value := range vars {
		env = append(env, name+"="+value)
	}

	slices.Sort(env)

	return env
}

func isBlocked(name string, blocklist []string) bool {
	return slices.ContainsFunc(blocklist, func(blocked string) bool {
		// environment names are case-insensitive on windows, we treat them that way everywhere for the block-list
		return strings.EqualFold(name, blocked)
	})
}

// LookPath resolves executable against the PATH found in env, relative to dir.
func LookPath(dir string, env []string, executable string) (string, error) {
	path, err := interp.LookPathDir(dir, expand.ListEnviron(env...), executable)
	if err != nil {
		return "", fmt.Errorf("failed to find %s: %w", executable, err)
	}

	return path, nil
}

// ReadEnvFile loads overrides from a dotenv formatted file.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat env file: %w", err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	return env, nil
}
