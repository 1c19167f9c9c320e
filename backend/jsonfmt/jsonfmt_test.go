package jsonfmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/registry"
)

func format(t *testing.T, source string, native registry.Native) string {
	t.Helper()

	out, err := New().Format(context.Background(), backend.Request{
		Source: source,
		Path:   "test.json",
		Config: native,
	})
	require.NoError(t, err)

	return out
}

func TestFormat(t *testing.T) {
	as := require.New(t)

	native := registry.Native{
		registry.OptIndentStyle: "space",
		registry.OptIndentWidth: "2",
		registry.OptLineEnding:  "lf",
	}

	out := format(t, `{"name":"example","nested":{"a":1}}`, native)
	as.Equal("{\n  \"name\": \"example\",\n  \"nested\": {\n    \"a\": 1\n  }\n}\n", out)
}

func TestFormat_TabIndent(t *testing.T) {
	as := require.New(t)

	native := registry.Native{
		registry.OptIndentStyle: "tab",
		registry.OptIndentWidth: "2",
	}

	out := format(t, `{"a":1}`, native)
	as.Equal("{\n\t\"a\": 1\n}\n", out)
}

func TestFormat_Crlf(t *testing.T) {
	as := require.New(t)

	native := registry.Native{
		registry.OptIndentStyle: "space",
		registry.OptIndentWidth: "2",
		registry.OptLineEnding:  "crlf",
	}

	out := format(t, `{"a":1}`, native)
	as.Equal("{\r\n  \"a\": 1\r\n}\r\n", out)
}

func TestFormat_FallbackOnInvalidInput(t *testing.T) {
	as := require.New(t)

	src := `{"name":`
	as.Equal(src, format(t, src, registry.Native{}))

	src = "not json at all"
	as.Equal(src, format(t, src, registry.Native{}))
}

func TestFormat_Idempotent(t *testing.T) {
	as := require.New(t)

	native := registry.Native{
		registry.OptIndentStyle: "space",
		registry.OptIndentWidth: "4",
	}

	once := format(t, `{"b":[1,2],"a":true}`, native)
	twice := format(t, once, native)
	as.Equal(once, twice)
}
