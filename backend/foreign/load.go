//go:build darwin || linux

package foreign

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ebitengine/purego"
)

func libraryName() string {
	if runtime.GOOS == "darwin" {
		return "libfamash.dylib"
	}

	return "libfamash.so"
}

// candidates returns the locations searched for the shared library, in order.
func (b *Bridge) candidates() []string {
	if b.path != "" {
		return []string{b.path}
	}

	name := libraryName()
	paths := []string{name}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), name))
	}

	paths = append(paths,
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
	)

	return paths
}

// load locates the shared library and resolves its entry points. It runs at
// most once per process; failure makes the backend unavailable for the run.
func (b *Bridge) load() error {
	var (
		lib  uintptr
		last error
	)

	for _, candidate := range b.candidates() {
		handle, err := purego.Dlopen(candidate, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			last = err

			continue
		}

		b.log.Debugf("loaded %s", candidate)

		lib = handle

		break
	}

	if lib == 0 {
		return fmt.Errorf("could not locate %s: %w", libraryName(), last)
	}

	purego.RegisterLibFunc(&b.fns.formatShell, lib, "FormatShell")
	purego.RegisterLibFunc(&b.fns.formatShellBatch, lib, "FormatShellBatch")
	purego.RegisterLibFunc(&b.fns.freeString, lib, "FreeString")
	purego.RegisterLibFunc(&b.fns.freeStringArray, lib, "FreeStringArray")

	return nil
}
