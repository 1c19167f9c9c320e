package stats

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

type Type int

const (
	Traversed Type = iota
	Matched
	Formatted
	Unchanged
	Failed
)

// Stats aggregates run-level counters. Outcomes are commutative, so counters
// are merged regardless of completion order.
type Stats struct {
	start    time.Time
	counters map[Type]*atomic.Int64
}

func New() Stats {
	return Stats{
		start: time.Now(),
		counters: map[Type]*atomic.Int64{
			Traversed: {},
			Matched:   {},
			Formatted: {},
			Unchanged: {},
			Failed:    {},
		},
	}
}

func (s *Stats) Add(t Type, delta int64) int64 {
	return s.counters[t].Add(delta)
}

func (s *Stats) Value(t Type) int64 {
	return s.counters[t].Load()
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.start)
}

func (s *Stats) Print(w io.Writer) {
	_, _ = fmt.Fprintf(
		w,
		"traversed %d files\nmatched %d files to backends\nformatted %d files, %d unchanged, %d failed in %v\n",
		s.Value(Traversed),
		s.Value(Matched),
		s.Value(Formatted),
		s.Value(Unchanged),
		s.Value(Failed),
		s.Elapsed().Round(time.Millisecond),
	)
}
