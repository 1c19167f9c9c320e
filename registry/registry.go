// Package registry maps a detected file type to exactly one formatting
// backend and records which unified configuration options that backend
// honors. The table is data, not control flow: adding a backend is a new
// entry, not a new branch.
package registry

import (
	"github.com/AkaraChen/fama/filetype"
)

// BackendID identifies a formatting backend.
type BackendID string

const (
	BackendJS      BackendID = "js"      // in-process javascript-family formatter
	BackendJSON    BackendID = "json"    // in-process json re-indenter
	BackendGofmt   BackendID = "gofmt"   // in-process go formatter with a fixed house style
	BackendForeign BackendID = "foreign" // shell formatter behind the shared library bridge
	BackendSandbox BackendID = "sandbox" // clang-format wasm module inside the sandbox host
)

// Option names a single unified configuration option.
type Option string

const (
	OptIndentStyle    Option = "indent-style"
	OptIndentWidth    Option = "indent-width"
	OptLineWidth      Option = "line-width"
	OptLineEnding     Option = "line-ending"
	OptQuotes         Option = "quotes"
	OptSemicolons     Option = "semicolons"
	OptTrailingComma  Option = "trailing-comma"
	OptBracketSpacing Option = "bracket-spacing"
	OptBraceStyle     Option = "brace-style"
)

// Entry maps a file type to its backend plus the set of unified options the
// backend understands. Entries are static, loaded once and never mutated.
type Entry struct {
	Backend BackendID
	Options []Option
}

// Supports reports whether the entry lists opt as understood by its backend.
func (e Entry) Supports(opt Option) bool {
	for _, o := range e.Options {
		if o == opt {
			return true
		}
	}

	return false
}

var (
	jsOptions = []Option{
		OptIndentStyle, OptIndentWidth, OptLineEnding,
		OptQuotes, OptSemicolons, OptBracketSpacing,
	}
	jsonOptions = []Option{
		OptIndentStyle, OptIndentWidth, OptLineEnding,
	}
	foreignOptions = []Option{
		OptIndentStyle, OptIndentWidth,
	}
	sandboxOptions = []Option{
		OptIndentStyle, OptIndentWidth, OptLineWidth,
	}
)

// entries is the capability table. Each file type maps to at most one
// backend. gofmt deliberately lists no options: it has a fixed house style
// and ignores the unified configuration entirely.
var entries = map[filetype.Type]Entry{
	filetype.JavaScript: {Backend: BackendJS, Options: jsOptions},
	filetype.TypeScript: {Backend: BackendJS, Options: jsOptions},
	filetype.Jsx:        {Backend: BackendJS, Options: jsOptions},
	filetype.Tsx:        {Backend: BackendJS, Options: jsOptions},

	filetype.JSON: {Backend: BackendJSON, Options: jsonOptions},

	filetype.Go: {Backend: BackendGofmt, Options: nil},

	filetype.Shell: {Backend: BackendForeign, Options: foreignOptions},

	filetype.C:      {Backend: BackendSandbox, Options: sandboxOptions},
	filetype.Cpp:    {Backend: BackendSandbox, Options: sandboxOptions},
	filetype.Java:   {Backend: BackendSandbox, Options: sandboxOptions},
	filetype.Proto:  {Backend: BackendSandbox, Options: sandboxOptions},
	filetype.CSharp: {Backend: BackendSandbox, Options: sandboxOptions},
}

// Lookup returns the capability entry for the given file type.
// The second return value is false for unsupported types, which callers must
// treat as pass-through: the file is left untouched.
func Lookup(ft filetype.Type) (Entry, bool) {
	entry, ok := entries[ft]

	return entry, ok
}

// Types returns every file type with a registry entry.
func Types() []filetype.Type {
	types := make([]filetype.Type, 0, len(entries))
	for ft := range entries {
		types = append(types, ft)
	}

	return types
}
