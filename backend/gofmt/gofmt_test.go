package gofmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AkaraChen/fama/backend"
)

func formatSrc(t *testing.T, source string) string {
	t.Helper()

	out, err := New().Format(context.Background(), backend.Request{
		Source: source,
		Path:   "main.go",
	})
	require.NoError(t, err)

	return out
}

func TestFormat(t *testing.T) {
	as := require.New(t)

	src := "package main\n\nimport \"fmt\"\n\nfunc main() {\nfmt.Println(   \"hello\"   )\n}\n"
	want := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n"

	as.Equal(want, formatSrc(t, src))
}

func TestFormat_FallbackOnInvalidInput(t *testing.T) {
	as := require.New(t)

	src := "package main\n\nfunc main() {\n"
	as.Equal(src, formatSrc(t, src))

	src = "this is not go"
	as.Equal(src, formatSrc(t, src))
}

func TestFormat_Idempotent(t *testing.T) {
	as := require.New(t)

	src := "package main\n\nvar x   =   1\n"

	once := formatSrc(t, src)
	twice := formatSrc(t, once)
	as.Equal(once, twice)
}
