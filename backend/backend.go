// Package backend defines the contract every formatting backend is called
// under, whether it runs in-process, behind the foreign shared library bridge
// or inside the wasm sandbox.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/AkaraChen/fama/registry"
)

// ErrUnavailable indicates the backend could not be loaded at all. It is
// backend-wide: the caller reports it once and treats every affected file as
// unchanged for the rest of the run.
var ErrUnavailable = errors.New("backend unavailable")

// Kind classifies a per-file formatting failure.
type Kind uint8

const (
	// KindUnknown covers errors a backend did not classify.
	KindUnknown Kind = iota
	// KindTrap is a fault inside the sandboxed call.
	KindTrap
	// KindContractViolation means a backend returned a malformed result,
	// e.g. a null pointer after a claimed success.
	KindContractViolation
	// KindIO is a host-side read or write failure.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindTrap:
		return "sandbox trap"
	case KindContractViolation:
		return "contract violation"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a per-file backend failure carrying its kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a failure kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to KindUnknown.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}

	return KindUnknown
}

// Request is a single formatting call: source text, the path it came from
// (some engines vary behavior by file name) and the backend-native config.
type Request struct {
	Source string
	Path   string
	Config registry.Native
}

// Backend formats source text. Implementations must uphold the conservative
// fallback: input the engine cannot parse comes back byte-identical, never
// empty and never partial. Errors are reserved for faults, not for
// unparsable input.
type Backend interface {
	Name() string
	Format(ctx context.Context, req Request) (string, error)
}

// Closer is implemented by backends holding process-wide resources.
type Closer interface {
	Close(ctx context.Context) error
}
