package sandbox

import (
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// compile reads and compiles the wasm module and prepares the runtime with
// the WASI and emscripten imports it expects. Runs once per process.
func (h *Host) compile(ctx context.Context) error {
	var (
		wasm []byte
		last error
	)

	for _, candidate := range h.candidates() {
		data, err := os.ReadFile(candidate)
		if err != nil {
			last = err

			continue
		}

		h.log.Debugf("loaded %s", candidate)

		wasm = data

		break
	}

	if wasm == nil {
		return fmt.Errorf("could not locate clang-format.wasm: %w", last)
	}

	rt := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	if err := instantiateEnvStubs(ctx, rt); err != nil {
		return fmt.Errorf("failed to instantiate env stubs: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("failed to compile module: %w", err)
	}

	h.instantiate = func(ctx context.Context) (module, error) {
		// anonymous so multiple instances can coexist
		mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate module: %w", err)
		}

		return &wazeroModule{mod: mod}, nil
	}

	return nil
}

// instantiateEnvStubs provides the emscripten-specific imports the module
// links against. None of them are meaningfully serviceable by the host, so
// they no-op or report failure.
func instantiateEnvStubs(ctx context.Context, rt wazero.Runtime) error {
	fail1 := func(int32) int32 { return -1 }

	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(func(int32) {}).Export("emscripten_notify_memory_growth").
		NewFunctionBuilder().WithFunc(func(int32, int32) int32 { return -1 }).Export("__syscall_getcwd").
		NewFunctionBuilder().WithFunc(fail1).Export("__syscall_chdir").
		NewFunctionBuilder().WithFunc(func(int32, int32, int32, int32) int32 { return -1 }).Export("__syscall_faccessat").
		NewFunctionBuilder().WithFunc(func(int32, int32, int32) int32 { return -1 }).Export("__syscall_statfs64").
		NewFunctionBuilder().WithFunc(func(int32, int32, int32) int32 { return -1 }).Export("__syscall_unlinkat").
		NewFunctionBuilder().WithFunc(func(int32, int32, int32, int32) int32 { return -1 }).Export("__syscall_readlinkat").
		NewFunctionBuilder().WithFunc(func(int32, int32, int32) int32 { return -1 }).Export("__syscall_getdents64").
		Instantiate(ctx)

	return err
}

// wazeroModule adapts a wazero api.Module to the module interface.
type wazeroModule struct {
	mod api.Module
}

func (m *wazeroModule) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := m.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("module does not export %s", name)
	}

	return fn.Call(ctx, params...)
}

func (m *wazeroModule) read(ptr, length uint32) ([]byte, bool) {
	return m.mod.Memory().Read(ptr, length)
}

func (m *wazeroModule) write(ptr uint32, data []byte) bool {
	return m.mod.Memory().Write(ptr, data)
}

func (m *wazeroModule) close(ctx context.Context) error {
	return m.mod.Close(ctx)
}
