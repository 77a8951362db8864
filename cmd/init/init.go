package init

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const FileName = "rabbit.toml"

// We embed the sample toml file for use with the init flag.
//
//go:embed init.toml
var initBytes []byte

func Run() error {
	if _, err := os.Stat(FileName); err == nil {
		return fmt.Errorf("%s already exists", FileName)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", FileName, err)
	}

	if err := os.WriteFile(FileName, initBytes, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}

	fmt.Printf("Generated %s. Now it's your turn to edit it.\n", FileName)

	return nil
}
