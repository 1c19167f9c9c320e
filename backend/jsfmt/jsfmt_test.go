package jsfmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/registry"
)

func defaults() registry.Native {
	return registry.Native{
		registry.OptIndentStyle:    "space",
		registry.OptIndentWidth:    "2",
		registry.OptLineEnding:     "lf",
		registry.OptQuotes:         "double",
		registry.OptSemicolons:     "always",
		registry.OptBracketSpacing: "true",
	}
}

func format(t *testing.T, source string, native registry.Native) string {
	t.Helper()

	out, err := New().Format(context.Background(), backend.Request{
		Source: source,
		Path:   "test.js",
		Config: native,
	})
	require.NoError(t, err)

	return out
}

func TestFormat_Statements(t *testing.T) {
	as := require.New(t)

	out := format(t, "a=1;b=2", defaults())
	as.Equal("a = 1;\nb = 2;\n", out)
}

func TestFormat_Quotes(t *testing.T) {
	as := require.New(t)

	out := format(t, "const greeting = 'hello'\nconsole.log(greeting)\n", defaults())
	as.Equal("const greeting = \"hello\";\nconsole.log(greeting);\n", out)

	native := defaults()
	native[registry.OptQuotes] = "single"

	out = format(t, `const s = "it's"`, native)
	as.Equal("const s = 'it\\'s';\n", out)
}

func TestFormat_Blocks(t *testing.T) {
	as := require.New(t)

	src := "function add(a, b) {\nreturn a + b\n}\n"
	want := "function add(a, b) {\n  return a + b;\n}\n"
	as.Equal(want, format(t, src, defaults()))

	src = "if (x) {\ny()\n} else {\nz()\n}\n"
	want = "if (x) {\n  y();\n} else {\n  z();\n}\n"
	as.Equal(want, format(t, src, defaults()))
}

func TestFormat_TabIndent(t *testing.T) {
	as := require.New(t)

	native := defaults()
	native[registry.OptIndentStyle] = "tab"

	src := "function f() {\nreturn 1\n}\n"
	want := "function f() {\n\treturn 1;\n}\n"
	as.Equal(want, format(t, src, native))
}

func TestFormat_ObjectSpacing(t *testing.T) {
	as := require.New(t)

	src := "const o = {a: 1}\n"

	as.Equal("const o = { a: 1 };\n", format(t, src, defaults()))

	native := defaults()
	native[registry.OptBracketSpacing] = "false"
	as.Equal("const o = {a: 1};\n", format(t, src, native))
}

func TestFormat_SemicolonsAsNeeded(t *testing.T) {
	as := require.New(t)

	native := defaults()
	native[registry.OptSemicolons] = "as-needed"

	out := format(t, "a = 1\nb = 2\n", native)
	as.Equal("a = 1\nb = 2\n", out)
}

func TestFormat_Idempotent(t *testing.T) {
	as := require.New(t)

	src := "const greeting = 'hello'\nif (x) {\ny({a: 1})\n}\n"

	once := format(t, src, defaults())
	twice := format(t, once, defaults())
	as.Equal(once, twice)
}

func TestFormat_FallbackOnUnparsableInput(t *testing.T) {
	as := require.New(t)

	// unterminated string
	src := "const s = \"oops\n"
	as.Equal(src, format(t, src, defaults()))

	// unbalanced brackets
	src = "function f() {\n"
	as.Equal(src, format(t, src, defaults()))

	// mismatched closer
	src = "const a = (1]\n"
	as.Equal(src, format(t, src, defaults()))

	// unterminated block comment
	src = "/* never closed\nconst a = 1\n"
	as.Equal(src, format(t, src, defaults()))
}

func TestFormat_EmptyInput(t *testing.T) {
	as := require.New(t)

	as.Equal("", format(t, "", defaults()))
}

func TestFormat_CrlfEnding(t *testing.T) {
	as := require.New(t)

	native := defaults()
	native[registry.OptLineEnding] = "crlf"

	out := format(t, "a = 1\nb = 2\n", native)
	as.Equal("a = 1;\r\nb = 2;\r\n", out)
}

func TestFormat_BlankLinesPreserved(t *testing.T) {
	as := require.New(t)

	out := format(t, "a = 1\n\n\nb = 2\n", defaults())
	as.Equal("a = 1;\n\nb = 2;\n", out)
}

func TestRequote(t *testing.T) {
	as := require.New(t)

	as.Equal(`"hello"`, requote(`'hello'`, '"'))
	as.Equal(`'hello'`, requote(`"hello"`, '\''))
	as.Equal(`"it's"`, requote(`'it\'s'`, '"'))
	as.Equal(`"say \"hi\""`, requote(`'say "hi"'`, '"'))
	as.Equal("`template`", requote("`template`", '"'), "templates pass through")
	as.Equal(`"same"`, requote(`"same"`, '"'), "already using the target quote")
}
