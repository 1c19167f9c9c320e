package init

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/AkaraChen/fama/config"
)

// Run writes a starter fama.toml, reflecting the built-in defaults, into the
// current directory. It refuses to overwrite an existing file.
func Run() error {
	if _, err := os.Stat("fama.toml"); err == nil {
		return fmt.Errorf("fama.toml already exists")
	}

	cfg := config.Config{
		IndentStyle:    "space",
		IndentWidth:    2,
		LineWidth:      80,
		LineEnding:     "lf",
		Quotes:         "double",
		Semicolons:     "always",
		TrailingComma:  "all",
		BracketSpacing: true,
		BraceStyle:     "same-line",
	}

	buf := bytes.NewBufferString("# fama -- one formatter for every language in the tree\n")

	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}

	if err := os.WriteFile("fama.toml", buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write fama.toml: %w", err)
	}

	fmt.Printf("Generated fama.toml. Now it's your turn to edit it.\n")

	return nil
}
