// Package walk discovers candidate files under the tree root, honoring a
// single glob pattern and any .gitignore files encountered on the way down.
package walk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPattern matches every file under the tree root.
const DefaultPattern = "**/*"

// Walker emits candidate paths for formatting.
type Walker struct {
	root    string
	literal string    // set when the pattern has no glob metacharacters
	pattern glob.Glob // compiled pattern otherwise; nil means match-all
}

// New creates a Walker for the given tree root and glob pattern.
// A pattern without metacharacters names a single file or directory; the
// default pattern matches everything.
func New(root, pattern string) (*Walker, error) {
	if pattern == "" || pattern == DefaultPattern {
		return &Walker{root: root}, nil
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		return &Walker{root: root, literal: pattern}, nil
	}

	compiled, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}

	return &Walker{root: root, pattern: compiled}, nil
}

// Walk sends matching file paths to files, closing it when the traversal
// finishes. Symlinks and directories are never emitted.
func (w *Walker) Walk(ctx context.Context, files chan<- string) error {
	defer close(files)

	if w.literal != "" {
		return w.walkLiteral(ctx, files)
	}

	stack := &ignoreStack{}

	return w.walkDir(ctx, w.root, stack, files)
}

func (w *Walker) walkLiteral(ctx context.Context, files chan<- string) error {
	path := w.literal
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path %s not found: %w", w.literal, err)
	}

	if info.Mode().IsRegular() {
		return emit(ctx, files, path)
	}

	if info.IsDir() {
		return w.walkDir(ctx, path, &ignoreStack{}, files)
	}

	return nil
}

func (w *Walker) walkDir(ctx context.Context, dir string, stack *ignoreStack, files chan<- string) error {
	stack.push(dir)
	defer stack.pop()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if entry.Name() == ".git" || stack.isIgnored(path) {
				continue
			}

			if err := w.walkDir(ctx, path, stack, files); err != nil {
				return err
			}

			continue
		}

		// plain files only; symlinks are never followed
		if !entry.Type().IsRegular() {
			continue
		}

		if stack.isIgnored(path) || !w.matches(path) {
			continue
		}

		if err := emit(ctx, files, path); err != nil {
			return err
		}
	}

	return nil
}

// matches applies the glob pattern to the path relative to the tree root.
func (w *Walker) matches(path string) bool {
	if w.pattern == nil {
		return true
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}

	rel = filepath.ToSlash(rel)

	// a bare-name pattern like *.js should also match nested files
	return w.pattern.Match(rel) || w.pattern.Match(filepath.Base(rel))
}

func emit(ctx context.Context, files chan<- string, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case files <- path:
		return nil
	}
}
