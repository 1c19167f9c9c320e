// Package sandbox runs the clang-format wasm module inside an embedded
// wazero virtual machine. One compiled module is shared by a small pool of
// instances sized to the worker count: instantiation cost dominates
// small-file formatting cost, so instances are reused across calls and only
// discarded after a trap leaves their internal state unknown.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/registry"
)

// Host owns the compiled wasm module and the instance pool.
type Host struct {
	path string
	log  *log.Logger

	once sync.Once
	err  error // sticky load failure, reported once

	// instantiate creates a fresh module instance; split out so the state
	// machine is testable without a wasm binary.
	instantiate func(ctx context.Context) (module, error)

	idle  chan *instance
	slots chan struct{}
}

// New creates a Host. path optionally pins the wasm module location; workers
// bounds how many instances may exist at once.
func New(path string, workers int) *Host {
	if workers < 1 {
		workers = 1
	}

	h := &Host{
		path:  path,
		log:   log.WithPrefix("sandbox"),
		idle:  make(chan *instance, workers),
		slots: make(chan struct{}, workers),
	}

	for i := 0; i < workers; i++ {
		h.slots <- struct{}{}
	}

	return h
}

func (h *Host) Name() string {
	return "clang"
}

// candidates returns the locations searched for the wasm module, in order.
func (h *Host) candidates() []string {
	if h.path != "" {
		return []string{h.path}
	}

	const name = "clang-format.wasm"

	paths := []string{name}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), name))
	}

	paths = append(paths, filepath.Join("/usr/local/share/fama", name))

	return paths
}

// ensureLoaded compiles the wasm module exactly once per process.
func (h *Host) ensureLoaded(ctx context.Context) error {
	h.once.Do(func() {
		if h.instantiate != nil {
			// already provided, nothing to compile
			return
		}

		h.err = h.compile(ctx)
		if h.err != nil {
			// reported once per run, not per file
			h.log.Warnf("clang-format disabled: %v", h.err)
		}
	})

	if h.err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, h.err)
	}

	return nil
}

// Format formats one file inside the sandbox. A trap during any step is
// caught and reported as a failure for this file only; the instance is
// discarded so the next call starts from a clean one.
func (h *Host) Format(ctx context.Context, req backend.Request) (string, error) {
	if err := h.ensureLoaded(ctx); err != nil {
		return "", err
	}

	inst, err := h.acquire(ctx)
	if err != nil {
		return "", err
	}

	out, err := inst.format(ctx, req.Source, req.Path, styleConfig(req.Config))
	if err != nil && inst.tainted {
		h.discard(ctx, inst)

		return "", err
	}

	h.release(inst)

	return out, err
}

// acquire hands out an idle instance, creating one while pool capacity
// remains. It blocks when every instance is in use.
func (h *Host) acquire(ctx context.Context) (*instance, error) {
	// prefer a warm instance
	select {
	case inst := <-h.idle:
		return inst, nil
	default:
	}

	select {
	case inst := <-h.idle:
		return inst, nil
	case <-h.slots:
		mod, err := h.instantiate(ctx)
		if err != nil {
			h.slots <- struct{}{}

			return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
		}

		return &instance{mod: mod}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Host) release(inst *instance) {
	h.idle <- inst
}

// discard closes a tainted instance and frees its pool slot so a clean
// replacement can be created.
func (h *Host) discard(ctx context.Context, inst *instance) {
	if err := inst.mod.close(ctx); err != nil {
		h.log.Debugf("failed to close instance: %v", err)
	}

	h.slots <- struct{}{}
}

// Close tears down every idle instance. In-flight calls must have completed.
func (h *Host) Close(ctx context.Context) error {
	for {
		select {
		case inst := <-h.idle:
			if err := inst.mod.close(ctx); err != nil {
				return fmt.Errorf("failed to close instance: %w", err)
			}
		default:
			return nil
		}
	}
}

// styleConfig renders the unified options the registry passed through into
// the inline clang-format style string the module expects.
func styleConfig(native registry.Native) string {
	useTab := "Never"
	if native.String(registry.OptIndentStyle, "space") == "tab" {
		useTab = "Always"
	}

	width := native.Uint(registry.OptIndentWidth, 2)
	column := native.Uint(registry.OptLineWidth, 80)

	return fmt.Sprintf(
		"{BasedOnStyle: LLVM, UseTab: %s, IndentWidth: %d, TabWidth: %d, ColumnLimit: %d}",
		useTab, width, width, column,
	)
}
