package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/registry"
)

// fakeModule is an in-memory module honoring the same export contract as the
// real clang-format wasm binary, including guest-owned inputs and a
// module-owned result buffer.
type fakeModule struct {
	mem  []byte
	next uint32

	calls map[string]int

	// trapOn makes the named export fail, like a wasm trap would
	trapOn string
	// status is returned by wasm_format; status 1 pairs with errorMsg in the
	// result buffer, status 2 means the input was already formatted
	status   uint64
	errorMsg string
	// nullResultPtr simulates a module claiming success but returning null
	nullResultPtr bool
	// oobResult makes the module report a result span outside its memory
	oobResult bool

	styles []string

	resultPtr, resultLen uint32
	resultFreed          int

	mallocs, frees int
	closed         bool
}

func newFakeModule() *fakeModule {
	return &fakeModule{
		mem:   make([]byte, 1<<20),
		next:  8,
		calls: map[string]int{},
	}
}

func (f *fakeModule) call(_ context.Context, name string, params ...uint64) ([]uint64, error) {
	f.calls[name]++

	if name == f.trapOn {
		return nil, errors.New("wasm trap: unreachable")
	}

	switch name {
	case expInit:
		return nil, nil

	case expMalloc:
		size := uint32(params[0])
		ptr := f.next
		f.next += size
		f.mallocs++

		return []uint64{uint64(ptr)}, nil

	case expFree:
		f.frees++

		return nil, nil

	case expSetStyle:
		data, _ := f.read(uint32(params[0]), uint32(params[1]))
		f.styles = append(f.styles, string(data))

		return []uint64{0}, nil

	case expFormat:
		switch f.status {
		case 1:
			f.setResult([]byte(f.errorMsg))

			return []uint64{1}, nil

		case 0:
			if f.oobResult {
				f.resultPtr = uint32(len(f.mem))
				f.resultLen = 16

				return []uint64{0}, nil
			}

			src, _ := f.read(uint32(params[0]), uint32(params[1]))
			f.setResult([]byte(strings.ToUpper(string(src))))

			return []uint64{0}, nil

		default:
			return []uint64{f.status}, nil
		}

	case expResultPtr:
		if f.nullResultPtr {
			return []uint64{0}, nil
		}

		return []uint64{uint64(f.resultPtr)}, nil

	case expResultLen:
		return []uint64{uint64(f.resultLen)}, nil

	case expFreeRes:
		f.resultFreed++

		return nil, nil
	}

	return nil, fmt.Errorf("unexpected export %s", name)
}

// setResult places data in a fresh module-owned result buffer.
func (f *fakeModule) setResult(data []byte) {
	f.resultPtr = f.next
	f.next += uint32(len(data))
	copy(f.mem[f.resultPtr:], data)
	f.resultLen = uint32(len(data))
}

func (f *fakeModule) read(ptr, length uint32) ([]byte, bool) {
	if uint64(ptr)+uint64(length) > uint64(len(f.mem)) {
		return nil, false
	}

	return f.mem[ptr : ptr+length], true
}

func (f *fakeModule) write(ptr uint32, data []byte) bool {
	if uint64(ptr)+uint64(len(data)) > uint64(len(f.mem)) {
		return false
	}

	copy(f.mem[ptr:], data)

	return true
}

func (f *fakeModule) close(context.Context) error {
	f.closed = true

	return nil
}

func native() registry.Native {
	return registry.Native{
		registry.OptIndentStyle: "space",
		registry.OptIndentWidth: "2",
		registry.OptLineWidth:   "100",
	}
}

// newTestHost wires a Host to fake modules, counting instantiations.
func newTestHost(workers int, modules *[]*fakeModule) *Host {
	h := New("", workers)
	h.instantiate = func(context.Context) (module, error) {
		mod := newFakeModule()
		*modules = append(*modules, mod)

		return mod, nil
	}

	return h
}

func TestFormat(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	h := newTestHost(2, &modules)

	out, err := h.Format(context.Background(), backend.Request{
		Source: "int x;",
		Path:   "a.c",
		Config: native(),
	})
	as.NoError(err)
	as.Equal("INT X;", out)
	as.Len(modules, 1)

	mod := modules[0]
	as.Equal(1, mod.calls[expInit])
	as.Len(mod.styles, 1)
	as.Contains(mod.styles[0], "BasedOnStyle: LLVM")
	as.Contains(mod.styles[0], "ColumnLimit: 100")

	// guest inputs released on every path, result buffer released once
	as.Equal(mod.mallocs, mod.frees)
	as.Equal(1, mod.resultFreed)
}

func TestFormat_InstanceReuse(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	h := newTestHost(2, &modules)

	for i := 0; i < 5; i++ {
		_, err := h.Format(context.Background(), backend.Request{
			Source: "int x;",
			Path:   "a.c",
			Config: native(),
		})
		as.NoError(err)
	}

	// sequential calls reuse the warm instance
	as.Len(modules, 1)

	mod := modules[0]
	as.Equal(1, mod.calls[expInit], "wasm_init runs once per instance")
	as.Len(mod.styles, 1, "an unchanged style is not re-set")
	as.Equal(5, mod.calls[expFormat])
}

func TestFormat_StyleChange(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	h := newTestHost(1, &modules)

	_, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.NoError(err)

	tabs := native()
	tabs[registry.OptIndentStyle] = "tab"

	_, err = h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: tabs,
	})
	as.NoError(err)

	mod := modules[0]
	as.Len(mod.styles, 2)
	as.Contains(mod.styles[0], "UseTab: Never")
	as.Contains(mod.styles[1], "UseTab: Always")
}

func TestFormat_UnchangedReturnsOriginal(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	h := newTestHost(1, &modules)
	h.instantiate = func(context.Context) (module, error) {
		mod := newFakeModule()
		mod.status = 2
		modules = append(modules, mod)

		return mod, nil
	}

	src := "int x;\n"

	out, err := h.Format(context.Background(), backend.Request{
		Source: src, Path: "a.c", Config: native(),
	})
	as.NoError(err)
	as.Equal(src, out, "already-formatted input must come back byte-identical")

	// there is no result buffer to release on the unchanged path
	mod := modules[0]
	as.Equal(0, mod.resultFreed)
	as.Equal(mod.mallocs, mod.frees)
}

func TestFormat_ModuleError(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	h := newTestHost(1, &modules)
	h.instantiate = func(context.Context) (module, error) {
		mod := newFakeModule()
		mod.status = 1
		mod.errorMsg = "unbalanced braces at line 3"
		modules = append(modules, mod)

		return mod, nil
	}

	out, err := h.Format(context.Background(), backend.Request{
		Source: "int x {{{", Path: "a.c", Config: native(),
	})
	as.Error(err)
	as.Empty(out)
	as.ErrorContains(err, "unbalanced braces at line 3")
	as.Equal(backend.KindUnknown, backend.KindOf(err))

	// the error message buffer is module-owned like any result
	mod := modules[0]
	as.Equal(1, mod.resultFreed)
	as.Equal(mod.mallocs, mod.frees)

	// a clean error is not a trap; the instance stays in the pool
	as.False(mod.closed)
}

func TestFormat_UnknownStatus(t *testing.T) {
	as := require.New(t)

	h := New("", 1)
	h.instantiate = func(context.Context) (module, error) {
		mod := newFakeModule()
		mod.status = 7

		return mod, nil
	}

	_, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.Error(err)
	as.Equal(backend.KindContractViolation, backend.KindOf(err))
}

func TestFormat_ResultOutOfBounds(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	h := newTestHost(1, &modules)
	h.instantiate = func(context.Context) (module, error) {
		mod := newFakeModule()
		mod.oobResult = true
		modules = append(modules, mod)

		return mod, nil
	}

	_, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.Error(err)
	as.Equal(backend.KindContractViolation, backend.KindOf(err))

	// the unreadable buffer is still released
	as.Equal(1, modules[0].resultFreed)
}

func TestFormat_TrapDiscardsInstance(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	trapNext := true

	h := New("", 1)
	h.instantiate = func(context.Context) (module, error) {
		mod := newFakeModule()
		if trapNext {
			mod.trapOn = expFormat
			trapNext = false
		}

		modules = append(modules, mod)

		return mod, nil
	}

	_, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.Error(err)
	as.Equal(backend.KindTrap, backend.KindOf(err))

	// the tainted instance was closed and its slot freed
	as.Len(modules, 1)
	as.True(modules[0].closed)

	// the next call gets a clean replacement and succeeds
	out, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.NoError(err)
	as.Equal("INT X;", out)
	as.Len(modules, 2)
}

func TestFormat_NullResultPointer(t *testing.T) {
	as := require.New(t)

	h := New("", 1)
	h.instantiate = func(context.Context) (module, error) {
		mod := newFakeModule()
		mod.nullResultPtr = true

		return mod, nil
	}

	_, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.Error(err)
	as.Equal(backend.KindContractViolation, backend.KindOf(err))
}

func TestFormat_Unavailable(t *testing.T) {
	as := require.New(t)

	h := New("/nonexistent/clang-format.wasm", 1)

	_, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.Error(err)
	as.True(errors.Is(err, backend.ErrUnavailable))
}

func TestClose(t *testing.T) {
	as := require.New(t)

	var modules []*fakeModule

	h := newTestHost(2, &modules)

	_, err := h.Format(context.Background(), backend.Request{
		Source: "int x;", Path: "a.c", Config: native(),
	})
	as.NoError(err)

	as.NoError(h.Close(context.Background()))
	as.True(modules[0].closed)
}

func TestStyleConfig(t *testing.T) {
	as := require.New(t)

	as.Equal(
		"{BasedOnStyle: LLVM, UseTab: Never, IndentWidth: 2, TabWidth: 2, ColumnLimit: 100}",
		styleConfig(native()),
	)
}
