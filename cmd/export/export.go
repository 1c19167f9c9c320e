// Package export renders the unified config as an EditorConfig file, so
// editors pick up the same style fama enforces.
package export

import (
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/AkaraChen/fama/config"
)

func Run(v *viper.Viper, w io.Writer) error {
	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	_, err = io.WriteString(w, Render(cfg))
	if err != nil {
		return fmt.Errorf("failed to write editorconfig: %w", err)
	}

	return nil
}

// Render produces the EditorConfig text for a config.
func Render(cfg *config.Config) string {
	endOfLine := "lf"
	if cfg.LineEnding == "crlf" {
		endOfLine = "crlf"
	}

	out := fmt.Sprintf(`root = true

[*]
charset = utf-8
end_of_line = %s
insert_final_newline = true
trim_trailing_whitespace = true
indent_style = %s
indent_size = %d
max_line_length = %d

[*.go]
indent_style = tab

[*.md]
trim_trailing_whitespace = false

[Makefile]
indent_style = tab
`,
		endOfLine, cfg.IndentStyle, cfg.IndentWidth, cfg.LineWidth,
	)

	return out
}
