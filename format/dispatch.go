package format

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/config"
	"github.com/AkaraChen/fama/filetype"
	"github.com/AkaraChen/fama/registry"
)

// Dispatcher routes a file to exactly one backend: registry lookup, config
// translation, one backend call, then a byte comparison against the original
// to decide formatted versus unchanged. It is pure routing: backend errors
// become failed outcomes here and never propagate as process-level faults.
type Dispatcher struct {
	cfg      *config.Config
	backends map[registry.BackendID]backend.Backend
	log      *log.Logger
}

func NewDispatcher(cfg *config.Config, backends map[registry.BackendID]backend.Backend) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		backends: backends,
		log:      log.WithPrefix("dispatch"),
	}
}

// Dispatch formats source through the backend registered for ft.
// Types without a registry entry, and types whose backend is unavailable for
// the run, pass through untouched as unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, path string, ft filetype.Type, source string) Outcome {
	entry, ok := registry.Lookup(ft)
	if !ok {
		return unchanged(path)
	}

	b, ok := d.backends[entry.Backend]
	if !ok {
		d.log.Debugf("no backend registered for %s", entry.Backend)

		return unchanged(path)
	}

	native := registry.Translate(d.cfg, entry)

	out, err := b.Format(ctx, backend.Request{
		Source: source,
		Path:   path,
		Config: native,
	})

	switch {
	case errors.Is(err, backend.ErrUnavailable):
		// warned once by the backend itself; the file stays untouched
		return unchanged(path)
	case err != nil:
		return failed(path, backend.KindOf(err), err.Error())
	}

	if out == source {
		return unchanged(path)
	}

	return formatted(path, out)
}

// Supported reports whether dispatching ft could ever modify a file.
func (d *Dispatcher) Supported(ft filetype.Type) bool {
	entry, ok := registry.Lookup(ft)
	if !ok {
		return false
	}

	_, ok = d.backends[entry.Backend]

	return ok
}
