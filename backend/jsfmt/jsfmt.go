// Package jsfmt is the in-process backend for the JavaScript family
// (js, ts, jsx, tsx). It is a whitespace and punctuation normalizer, not a
// full parser: statements are re-terminated per the semicolon policy, string
// literals are re-quoted per the quote style, blocks are re-indented and
// object braces gain or lose inner spacing.
package jsfmt

import (
	"context"
	"strings"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/registry"
)

type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "js"
}

// Format normalizes source. Input that fails to tokenize is returned
// byte-identical: a formatter that cannot understand a file must never
// corrupt or discard it.
func (b *Backend) Format(_ context.Context, req backend.Request) (string, error) {
	tokens, ok := tokenize(req.Source)
	if !ok {
		return req.Source, nil
	}

	style := styleFrom(req.Config)

	return print(tokens, style), nil
}

type style struct {
	indent     string
	quote      byte
	semicolons bool // terminate every statement
	spacing    bool // spaces inside object braces
	ending     string
}

func styleFrom(native registry.Native) style {
	s := style{
		indent:     "  ",
		quote:      '"',
		semicolons: true,
		spacing:    true,
		ending:     "\n",
	}

	width := native.Uint(registry.OptIndentWidth, 2)
	if native.String(registry.OptIndentStyle, "space") == "tab" {
		s.indent = "\t"
	} else {
		s.indent = strings.Repeat(" ", int(width))
	}

	if native.String(registry.OptQuotes, "double") == "single" {
		s.quote = '\''
	}

	s.semicolons = native.String(registry.OptSemicolons, "always") == "always"
	s.spacing = native.Bool(registry.OptBracketSpacing, true)

	if native.String(registry.OptLineEnding, "lf") == "crlf" {
		s.ending = "\r\n"
	}

	return s
}
