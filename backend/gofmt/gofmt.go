// Package gofmt is the in-process backend for Go sources. It wraps the
// canonical go/format engine, which carries a fixed house style: the unified
// configuration is ignored entirely, so its registry entry lists no options.
package gofmt

import (
	"context"
	"go/format"

	"github.com/AkaraChen/fama/backend"
)

type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "gofmt"
}

func (b *Backend) Format(_ context.Context, req backend.Request) (string, error) {
	out, err := format.Source([]byte(req.Source))
	if err != nil {
		// unparsable input comes back untouched
		return req.Source, nil
	}

	return string(out), nil
}
