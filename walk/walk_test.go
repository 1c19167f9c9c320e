package walk

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AkaraChen/fama/test"
)

func collect(t *testing.T, root, pattern string) []string {
	t.Helper()

	walker, err := New(root, pattern)
	require.NoError(t, err)

	files := make(chan string, 128)
	done := make(chan error, 1)

	go func() {
		done <- walker.Walk(context.Background(), files)
	}()

	var paths []string

	for path := range files {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)

		paths = append(paths, filepath.ToSlash(rel))
	}

	require.NoError(t, <-done)
	sort.Strings(paths)

	return paths
}

func TestWalk(t *testing.T) {
	as := require.New(t)

	root := test.TempExamples(t)
	paths := collect(t, root, DefaultPattern)

	as.Contains(paths, "javascript/hello.js")
	as.Contains(paths, "json/package.json")
	as.Contains(paths, "go/main.go")
	as.Contains(paths, "shell/script.sh")
	as.Contains(paths, "cpp/main.cpp")
	as.Contains(paths, "nested/app.js")

	// .gitignore rules are honored at every level
	as.NotContains(paths, "vendor/ignored.js")
	as.NotContains(paths, "nested/app.min.js")
}

func TestWalk_Pattern(t *testing.T) {
	as := require.New(t)

	root := test.TempExamples(t)
	paths := collect(t, root, "**/*.js")

	as.Equal([]string{"javascript/hello.js", "nested/app.js"}, paths)
}

func TestWalk_LiteralFile(t *testing.T) {
	as := require.New(t)

	root := test.TempExamples(t)
	paths := collect(t, root, "javascript/hello.js")

	as.Equal([]string{"javascript/hello.js"}, paths)
}

func TestWalk_LiteralDir(t *testing.T) {
	as := require.New(t)

	root := test.TempExamples(t)
	paths := collect(t, root, "nested")

	as.Contains(paths, "nested/app.js")
	as.NotContains(paths, "nested/app.min.js")
	as.NotContains(paths, "javascript/hello.js")
}

func TestWalk_MissingLiteral(t *testing.T) {
	as := require.New(t)

	root := test.TempExamples(t)

	walker, err := New(root, "no/such/file.js")
	as.NoError(err)

	files := make(chan string, 1)
	as.Error(walker.Walk(context.Background(), files))
}

func TestWalk_BadPattern(t *testing.T) {
	as := require.New(t)

	_, err := New(t.TempDir(), "[")
	as.Error(err)
}

func TestWalk_Cancellation(t *testing.T) {
	as := require.New(t)

	root := test.TempExamples(t)

	walker, err := New(root, DefaultPattern)
	as.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := make(chan string) // unbuffered, so emit must block
	err = walker.Walk(ctx, files)
	as.ErrorIs(err, context.Canceled)
}
