package walk

import (
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreStack tracks .gitignore rules as the walker descends into
// directories. Each layer corresponds to a directory that contains a
// .gitignore file.
type ignoreStack struct {
	layers []ignoreLayer
}

type ignoreLayer struct {
	dir    string
	parser *ignore.GitIgnore
}

// push loads .gitignore from a directory and pushes its rules onto the stack.
func (s *ignoreStack) push(dir string) {
	parser, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		// no .gitignore or unreadable; push a nil layer to keep stack depth
		s.layers = append(s.layers, ignoreLayer{dir: dir})

		return
	}

	s.layers = append(s.layers, ignoreLayer{dir: dir, parser: parser})
}

// pop removes the most recent layer when leaving a directory.
func (s *ignoreStack) pop() {
	if len(s.layers) > 0 {
		s.layers = s.layers[:len(s.layers)-1]
	}
}

// isIgnored checks whether any active layer ignores the path.
func (s *ignoreStack) isIgnored(fullPath string) bool {
	for _, layer := range s.layers {
		if layer.parser == nil {
			continue
		}

		rel, err := filepath.Rel(layer.dir, fullPath)
		if err != nil {
			continue
		}

		if layer.parser.MatchesPath(rel) {
			return true
		}
	}

	return false
}
