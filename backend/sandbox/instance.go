package sandbox

import (
	"context"
	"fmt"

	"github.com/AkaraChen/fama/backend"
)

// exported entry points of the clang-format wasm module
const (
	expInit      = "wasm_init"
	expSetStyle  = "wasm_set_style"
	expFormat    = "wasm_format"
	expResultPtr = "wasm_get_result_ptr"
	expResultLen = "wasm_get_result_len"
	expFreeRes   = "wasm_free_result"
	expMalloc    = "malloc"
	expFree      = "free"
)

// status codes returned by wasm_format. For statusOK the result buffer holds
// the formatted text, for statusError it holds an error message; either way
// the buffer is module-owned and released with wasm_free_result.
const (
	statusOK        uint32 = 0
	statusError     uint32 = 1
	statusUnchanged uint32 = 2
)

// module abstracts one instantiated copy of the wasm module: exported
// function calls plus linear memory access. Implemented over wazero in
// production and by in-memory fakes in tests.
type module interface {
	call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	read(ptr, length uint32) ([]byte, bool)
	write(ptr uint32, data []byte) bool
	close(ctx context.Context) error
}

type state uint8

const (
	stateUninitialized state = iota
	stateInitialized
	stateStyleSet
	stateReady
)

// instance is one loaded copy of the module with its own linear memory.
// Its memory is rewritten on every call, so an instance is only ever used by
// one worker at a time.
type instance struct {
	mod   module
	state state
	style string

	// tainted marks an instance whose internal state is unknown after a
	// trap; the host discards it instead of returning it to the pool.
	tainted bool
}

// format runs one formatting call, advancing the instance state machine:
// uninitialized → initialized → style set → ready, with a style change
// forcing a pass back through style set.
func (i *instance) format(ctx context.Context, source, filename, style string) (string, error) {
	if i.state == stateUninitialized {
		if _, err := i.mod.call(ctx, expInit); err != nil {
			return "", i.trap("%s: %v", expInit, err)
		}

		i.state = stateInitialized
	}

	if i.state == stateInitialized || i.style != style {
		if err := i.setStyle(ctx, style); err != nil {
			return "", err
		}

		i.state = stateStyleSet
		i.style = style
	}

	out, err := i.doFormat(ctx, source, filename)
	if err != nil {
		return "", err
	}

	i.state = stateReady

	return out, nil
}

func (i *instance) setStyle(ctx context.Context, style string) error {
	ptr, err := i.writeGuest(ctx, []byte(style))
	if err != nil {
		return err
	}

	_, callErr := i.mod.call(ctx, expSetStyle, uint64(ptr), uint64(len(style)))

	// the style buffer belongs to the guest allocator either way
	i.freeGuest(ctx, ptr)

	if callErr != nil {
		return i.trap("%s: %v", expSetStyle, callErr)
	}

	return nil
}

func (i *instance) doFormat(ctx context.Context, source, filename string) (string, error) {
	srcPtr, err := i.writeGuest(ctx, []byte(source))
	if err != nil {
		return "", err
	}

	namePtr, err := i.writeGuest(ctx, []byte(filename))
	if err != nil {
		i.freeGuest(ctx, srcPtr)

		return "", err
	}

	results, callErr := i.mod.call(ctx, expFormat,
		uint64(srcPtr), uint64(len(source)),
		uint64(namePtr), uint64(len(filename)),
	)

	// inputs were guest-allocated, release them on every path
	i.freeGuest(ctx, srcPtr)
	i.freeGuest(ctx, namePtr)

	if callErr != nil {
		return "", i.trap("%s: %v", expFormat, callErr)
	}

	if len(results) == 0 {
		return "", backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("%s returned no status for %s", expFormat, filename),
		)
	}

	switch status := uint32(results[0]); status {
	case statusOK:
		return i.readResult(ctx, filename)

	case statusError:
		// the module left an error message where the result would be
		msg, err := i.readResult(ctx, filename)
		if err != nil {
			return "", err
		}

		return "", backend.NewError(backend.KindUnknown, fmt.Errorf("%s: %s", filename, msg))

	case statusUnchanged:
		return source, nil

	default:
		return "", backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("%s returned unknown status %d for %s", expFormat, status, filename),
		)
	}
}

// readResult extracts the bytes the module left in its result buffer and then
// releases the buffer with wasm_free_result. Depending on the wasm_format
// status those bytes are either the formatted text or an error message.
func (i *instance) readResult(ctx context.Context, filename string) (string, error) {
	ptrRes, err := i.mod.call(ctx, expResultPtr)
	if err != nil {
		return "", i.trap("%s: %v", expResultPtr, err)
	}

	lenRes, err := i.mod.call(ctx, expResultLen)
	if err != nil {
		return "", i.trap("%s: %v", expResultLen, err)
	}

	if len(ptrRes) == 0 || len(lenRes) == 0 || uint32(ptrRes[0]) == 0 {
		return "", backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("module returned a null result pointer for %s", filename),
		)
	}

	data, ok := i.mod.read(uint32(ptrRes[0]), uint32(lenRes[0]))
	if !ok {
		// the buffer is still module-owned; release it before bailing
		if _, err := i.mod.call(ctx, expFreeRes); err != nil {
			return "", i.trap("%s: %v", expFreeRes, err)
		}

		return "", backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("result span %d+%d is outside module memory for %s", ptrRes[0], lenRes[0], filename),
		)
	}

	// copy before freeing; no pointer into module memory survives this call
	out := string(data)

	if _, err := i.mod.call(ctx, expFreeRes); err != nil {
		return "", i.trap("%s: %v", expFreeRes, err)
	}

	return out, nil
}

// writeGuest allocates guest memory and copies data into it. The caller owns
// the allocation and must release it with freeGuest.
func (i *instance) writeGuest(ctx context.Context, data []byte) (uint32, error) {
	size := len(data)
	if size == 0 {
		size = 1
	}

	results, err := i.mod.call(ctx, expMalloc, uint64(size))
	if err != nil {
		return 0, i.trap("%s: %v", expMalloc, err)
	}

	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("guest malloc(%d) returned null", size),
		)
	}

	ptr := uint32(results[0])

	if len(data) > 0 && !i.mod.write(ptr, data) {
		return 0, backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("write of %d bytes at %d is outside module memory", len(data), ptr),
		)
	}

	return ptr, nil
}

func (i *instance) freeGuest(ctx context.Context, ptr uint32) {
	// a failing free is itself a trap; the instance will be discarded
	if _, err := i.mod.call(ctx, expFree, uint64(ptr)); err != nil {
		i.tainted = true
	}
}

// trap records a sandbox-level fault. The instance's internal state is
// unknown afterwards, so it is marked for disposal.
func (i *instance) trap(format string, args ...any) error {
	i.tainted = true

	return backend.NewError(backend.KindTrap, fmt.Errorf(format, args...))
}
