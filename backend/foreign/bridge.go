// Package foreign bridges formatting calls into the natively compiled shell
// formatter shared library. The library is loaded once per process on first
// use; every returned buffer is copied into host memory and released with the
// library's paired free call before the bridge returns. Host memory is never
// handed to the foreign allocator and foreign memory never to the host's.
package foreign

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/registry"
)

// procs is the resolved entry point table. It is written once under the load
// guard and read-only afterwards.
type procs struct {
	// FormatShell(source, sourceLen, indent) -> char* (foreign-owned, null-terminated)
	formatShell func(src *byte, srcLen uintptr, indent uint32) uintptr
	// FormatShellBatch(sources, lengths, count, indent) -> char** (foreign-owned)
	formatShellBatch func(srcs *uintptr, lens *uintptr, count uintptr, indent uint32) uintptr
	// FreeString releases a single buffer returned by FormatShell.
	freeString func(ptr uintptr)
	// FreeStringArray releases every element and the array itself.
	freeStringArray func(arr uintptr, count uintptr)
}

// Bridge owns the process-wide shared library handle.
// The library's exports are not documented reentrant, so all calls serialize
// behind a single mutex; the batched entry point is the throughput path.
type Bridge struct {
	path string
	log  *log.Logger

	once sync.Once
	err  error // sticky load failure, reported once
	mu   sync.Mutex
	fns  procs
}

// New creates a Bridge. path optionally pins the shared library location;
// when empty the standard locations are searched on first use.
func New(path string) *Bridge {
	return &Bridge{
		path: path,
		log:  log.WithPrefix("foreign"),
	}
}

func (b *Bridge) Name() string {
	return "shell"
}

// ensureLoaded resolves the library and its entry points exactly once.
// Concurrent first callers are serialized by the once guard; after it
// completes the table is read-only.
func (b *Bridge) ensureLoaded() error {
	b.once.Do(func() {
		b.err = b.load()
		if b.err != nil {
			// reported once per run, not per file
			b.log.Warnf("shell formatter disabled: %v", b.err)
		}
	})

	if b.err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, b.err)
	}

	return nil
}

// Format formats a single shell source through the foreign library.
// Input the foreign side cannot parse comes back as a copy of the original,
// by the library's contract; a null pointer after a claimed success is a
// contract violation and fails this file only.
func (b *Bridge) Format(_ context.Context, req backend.Request) (string, error) {
	if err := b.ensureLoaded(); err != nil {
		return "", err
	}

	indent := indentArg(req.Config)

	b.mu.Lock()
	defer b.mu.Unlock()

	src := cbytes(req.Source)

	ptr := b.fns.formatShell(&src[0], uintptr(len(req.Source)), indent)
	runtime.KeepAlive(src)

	if ptr == 0 {
		return "", backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("FormatShell returned a null buffer for %s", req.Path),
		)
	}

	// copy out of foreign memory, then release it; no pointer into the
	// foreign allocation survives past this point
	out := goString(ptr)
	b.fns.freeString(ptr)

	return out, nil
}

// BatchItem is the per-element result of a batched call.
type BatchItem struct {
	Text string
	Err  error
}

// FormatBatch amortizes one foreign invocation over many texts. One
// element's failure never fails the batch: that element carries its own
// error while the rest format normally.
func (b *Bridge) FormatBatch(_ context.Context, texts []string, native registry.Native) ([]BatchItem, error) {
	if err := b.ensureLoaded(); err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(texts))
	if len(texts) == 0 {
		return items, nil
	}

	indent := indentArg(native)

	b.mu.Lock()
	defer b.mu.Unlock()

	bufs := make([][]byte, len(texts))
	ptrs := make([]uintptr, len(texts))
	lens := make([]uintptr, len(texts))

	for i, text := range texts {
		bufs[i] = cbytes(text)
		ptrs[i] = uintptr(unsafe.Pointer(&bufs[i][0]))
		lens[i] = uintptr(len(text))
	}

	arr := b.fns.formatShellBatch(&ptrs[0], &lens[0], uintptr(len(texts)), indent)
	runtime.KeepAlive(bufs)

	if arr == 0 {
		return nil, backend.NewError(
			backend.KindContractViolation,
			fmt.Errorf("FormatShellBatch returned a null array for %d texts", len(texts)),
		)
	}

	for i := range texts {
		elem := *(*uintptr)(unsafe.Pointer(arr + uintptr(i)*unsafe.Sizeof(uintptr(0))))
		if elem == 0 {
			items[i] = BatchItem{Err: backend.NewError(
				backend.KindContractViolation,
				fmt.Errorf("FormatShellBatch returned a null element at index %d", i),
			)}

			continue
		}

		items[i] = BatchItem{Text: goString(elem)}
	}

	// one free per element plus one for the array, all on the foreign side
	b.fns.freeStringArray(arr, uintptr(len(texts)))

	return items, nil
}

func indentArg(native registry.Native) uint32 {
	if native.String(registry.OptIndentStyle, "space") == "tab" {
		// zero selects tab indentation on the foreign side
		return 0
	}

	return uint32(native.Uint(registry.OptIndentWidth, 2))
}

// cbytes copies s into a null-terminated buffer. The explicit length still
// travels with the pointer, so embedded structure survives the crossing.
func cbytes(s string) []byte {
	buf := make([]byte, len(s)+1)
	copy(buf, s)

	return buf
}

// goString copies a foreign null-terminated buffer into host memory.
func goString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}

	var n uintptr
	for *(*byte)(unsafe.Pointer(ptr + n)) != 0 {
		n++
	}

	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}
