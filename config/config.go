package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrInvalidIndentWidth = fmt.Errorf("indent width must be between 1 and 16")
	ErrInvalidLineWidth   = fmt.Errorf("line width must be between 16 and 1000")
	ErrInvalidJobs        = fmt.Errorf("jobs must be between 1 and 1024")
)

// Config is the unified formatting configuration plus run options.
// It is created once at startup and treated as read-only for the duration of
// a run, making it safe to share across concurrent formatting tasks.
type Config struct {
	// style options, reconciled per backend by the capability registry
	IndentStyle    string `mapstructure:"indent-style" toml:"indent-style,omitempty"`
	IndentWidth    uint   `mapstructure:"indent-width" toml:"indent-width,omitempty,omitzero"`
	LineWidth      uint   `mapstructure:"line-width" toml:"line-width,omitempty,omitzero"`
	LineEnding     string `mapstructure:"line-ending" toml:"line-ending,omitempty"`
	Quotes         string `mapstructure:"quotes" toml:"quotes,omitempty"`
	Semicolons     string `mapstructure:"semicolons" toml:"semicolons,omitempty"`
	TrailingComma  string `mapstructure:"trailing-comma" toml:"trailing-comma,omitempty"`
	BracketSpacing bool   `mapstructure:"bracket-spacing" toml:"bracket-spacing,omitempty"`
	BraceStyle     string `mapstructure:"brace-style" toml:"brace-style,omitempty"`

	// run options
	ClearCache       bool   `mapstructure:"clear-cache" toml:"-"` // not allowed in config
	FailOnChange     bool   `mapstructure:"fail-on-change" toml:"fail-on-change,omitempty"`
	Jobs             uint   `mapstructure:"jobs" toml:"jobs,omitempty,omitzero"`
	LibraryPath      string `mapstructure:"library-path" toml:"library-path,omitempty"`
	NoCache          bool   `mapstructure:"no-cache" toml:"-"` // not allowed in config
	Quiet            bool   `mapstructure:"quiet" toml:"-"`
	TreeRoot         string `mapstructure:"tree-root" toml:"tree-root,omitempty"`
	Verbose          uint8  `mapstructure:"verbose" toml:"-"`
	WasmPath         string `mapstructure:"wasm-path" toml:"wasm-path,omitempty"`
	WorkingDirectory string `mapstructure:"working-dir" toml:"-"`
}

// SetFlags appends our flags to the provided flag set.
// Each flag name matches the field name defined in the mapstructure tag, and
// the flag's default value applies whenever the config file omits the key.
func SetFlags(fs *pflag.FlagSet) {
	fs.String(
		"indent-style", "space",
		"Indentation style, <space|tab>. (env $FAMA_INDENT_STYLE)",
	)
	fs.Uint(
		"indent-width", 2,
		"Number of spaces per indentation level. (env $FAMA_INDENT_WIDTH)",
	)
	fs.Uint(
		"line-width", 80,
		"Preferred maximum line width. (env $FAMA_LINE_WIDTH)",
	)
	fs.String(
		"line-ending", "lf",
		"Line ending, <lf|crlf>. (env $FAMA_LINE_ENDING)",
	)
	fs.String(
		"quotes", "double",
		"Quote style for string literals, <double|single>. (env $FAMA_QUOTES)",
	)
	fs.String(
		"semicolons", "always",
		"Semicolon policy, <always|as-needed>. (env $FAMA_SEMICOLONS)",
	)
	fs.String(
		"trailing-comma", "all",
		"Trailing comma policy, <all|es5|none>. (env $FAMA_TRAILING_COMMA)",
	)
	fs.Bool(
		"bracket-spacing", true,
		"Insert spaces inside object braces. (env $FAMA_BRACKET_SPACING)",
	)
	fs.String(
		"brace-style", "same-line",
		"Brace placement, <same-line|next-line>. (env $FAMA_BRACE_STYLE)",
	)
	fs.BoolP(
		"clear-cache", "c", false,
		"Reset the evaluation cache. Use in case the cache is not precise enough. (env $FAMA_CLEAR_CACHE)",
	)
	fs.Bool(
		"fail-on-change", false,
		"Exit with error if any changes were made. Useful for CI. (env $FAMA_FAIL_ON_CHANGE)",
	)
	fs.UintP(
		"jobs", "j", 0,
		"Maximum number of files formatted concurrently. Defaults to the number of CPUs. (env $FAMA_JOBS)",
	)
	fs.String(
		"library-path", "",
		"Path to the shell formatter shared library. Defaults to searching the standard locations. "+
			"(env $FAMA_LIBRARY_PATH)",
	)
	fs.Bool(
		"no-cache", false,
		"Ignore the evaluation cache entirely. Useful for CI. (env $FAMA_NO_CACHE)",
	)
	fs.BoolP(
		"quiet", "q", false,
		"Only log errors. (env $FAMA_QUIET)",
	)
	fs.String(
		"tree-root", "",
		"The root directory from which fama will start walking the filesystem (defaults to the directory "+
			"containing the config file, or the working directory). (env $FAMA_TREE_ROOT)",
	)
	fs.CountP(
		"verbose", "v",
		"Set the verbosity of logs e.g. -vv. (env $FAMA_VERBOSE)",
	)
	fs.String(
		"wasm-path", "",
		"Path to the clang-format wasm module. Defaults to searching the standard locations. "+
			"(env $FAMA_WASM_PATH)",
	)
	fs.StringP(
		"working-dir", "C", ".",
		"Run as if fama was started in the specified working directory instead of the current working "+
			"directory. (env $FAMA_WORKING_DIR)",
	)
}

// NewViper creates a Viper instance pre-configured with the following options:
// * TOML config type
// * automatic env enabled
// * `FAMA_` env prefix for environment variables
// * replacement of `-` and `.` with `_` when mapping flags to env e.g. `indent-width` => `FAMA_INDENT_WIDTH`.
func NewViper() (*viper.Viper, error) {
	v := viper.New()

	// enforce toml
	v.SetConfigType("toml")

	// allow env overrides for config and flags
	v.SetEnvPrefix("fama")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	return v, nil
}

// FromViper takes a viper instance and produces a Config instance.
func FromViper(v *viper.Viper) (*Config, error) {
	configReset := map[string]any{
		"clear-cache": false,
		"no-cache":    false,
		"quiet":       false,
		"working-dir": ".",
	}

	// reset certain values which are not allowed to be specified in the config file
	if err := v.MergeConfigMap(configReset); err != nil {
		return nil, fmt.Errorf("failed to overwrite config values: %w", err)
	}

	var err error

	cfg := &Config{}

	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// resolve the working directory to an absolute path
	cfg.WorkingDirectory, err = filepath.Abs(cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for working directory: %w", err)
	}

	// determine the tree root, falling back to the directory containing the
	// config file and finally the working directory
	if cfg.TreeRoot == "" {
		if used := v.ConfigFileUsed(); used != "" {
			cfg.TreeRoot = filepath.Dir(used)
		} else {
			cfg.TreeRoot = cfg.WorkingDirectory
		}
	}

	if cfg.TreeRoot, err = filepath.Abs(cfg.TreeRoot); err != nil {
		return nil, fmt.Errorf("failed to get absolute path for tree root: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !(1 <= c.IndentWidth && c.IndentWidth <= 16) {
		return ErrInvalidIndentWidth
	}

	if !(16 <= c.LineWidth && c.LineWidth <= 1000) {
		return ErrInvalidLineWidth
	}

	// zero means "use the cpu count", resolved by the executor
	if c.Jobs > 1024 {
		return ErrInvalidJobs
	}

	switch c.IndentStyle {
	case "space", "tab":
	default:
		return fmt.Errorf("invalid indent-style %q", c.IndentStyle)
	}

	switch c.Quotes {
	case "double", "single":
	default:
		return fmt.Errorf("invalid quotes %q", c.Quotes)
	}

	switch c.Semicolons {
	case "always", "as-needed":
	default:
		return fmt.Errorf("invalid semicolons %q", c.Semicolons)
	}

	return nil
}

// Find searches dir for one of the provided fileNames, returning the full
// path of the first match.
func Find(dir string, fileNames ...string) (string, error) {
	for _, f := range fileNames {
		path := filepath.Join(dir, f)
		if fileExists(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("could not find %s in %s", fileNames, dir)
}

// FindUp searches upwards from searchDir for one of the provided fileNames.
func FindUp(searchDir string, fileNames ...string) (path string, dir string, err error) {
	for _, dir := range eachDir(searchDir) {
		for _, f := range fileNames {
			path := filepath.Join(dir, f)
			if fileExists(path) {
				return path, dir, nil
			}
		}
	}

	return "", "", fmt.Errorf("could not find %s in %s", fileNames, searchDir)
}

func eachDir(path string) (paths []string) {
	path, err := filepath.Abs(path)
	if err != nil {
		return
	}

	paths = []string{path}

	if path == "/" {
		return
	}

	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == os.PathSeparator {
			path = path[:i]
			if path == "" {
				path = "/"
			}

			paths = append(paths, path)
		}
	}

	return
}

func fileExists(path string) bool {
	// Some broken filesystems like SSHFS return file information on stat() but
	// then cannot open the file. So we use os.Open.
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// Next, check that the file is a regular file.
	fi, err := f.Stat()
	if err != nil {
		return false
	}

	return fi.Mode().IsRegular()
}
