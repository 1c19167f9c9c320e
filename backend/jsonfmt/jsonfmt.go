// Package jsonfmt is the in-process backend for JSON documents. It honors
// the indentation and line-ending options and leaves everything else to the
// encoding/json engine.
package jsonfmt

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/registry"
)

type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "json"
}

func (b *Backend) Format(_ context.Context, req backend.Request) (string, error) {
	if !json.Valid([]byte(req.Source)) {
		// unparsable input comes back untouched
		return req.Source, nil
	}

	indent := "  "

	width := req.Config.Uint(registry.OptIndentWidth, 2)
	if req.Config.String(registry.OptIndentStyle, "space") == "tab" {
		indent = "\t"
	} else {
		indent = strings.Repeat(" ", int(width))
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(req.Source)), "", indent); err != nil {
		return req.Source, nil
	}

	out := buf.String()

	if req.Config.String(registry.OptLineEnding, "lf") == "crlf" {
		out = strings.ReplaceAll(out, "\n", "\r\n")

		return out + "\r\n", nil
	}

	return out + "\n", nil
}
