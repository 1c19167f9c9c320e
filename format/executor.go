package format

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/filetype"
	"github.com/AkaraChen/fama/stats"
)

// Failure names a file that failed to format, with its error kind.
type Failure struct {
	Path    string
	Kind    backend.Kind
	Message string
}

// Executor drives dispatch over many files concurrently with a bounded
// worker pool. One file's failure is recorded and the run continues; nothing
// aborts the batch. Cancellation is honored between files only: an in-flight
// foreign or sandboxed call always runs to completion.
type Executor struct {
	dispatcher *Dispatcher
	statz      *stats.Stats
	jobs       int
	log        *log.Logger

	// OnFormatted, when set, is invoked after a file's new content has been
	// written back.
	OnFormatted func(path string)

	// OnProcessed, when set, is invoked for every file that completed without
	// failure, whether or not it changed.
	OnProcessed func(path string)

	mu       sync.Mutex
	failures []Failure
}

func NewExecutor(dispatcher *Dispatcher, statz *stats.Stats, jobs int) *Executor {
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}

	return &Executor{
		dispatcher: dispatcher,
		statz:      statz,
		jobs:       jobs,
		log:        log.WithPrefix("format"),
	}
}

func (e *Executor) Jobs() int {
	return e.jobs
}

// Run applies dispatch to every path received on files, writing changed
// content back in place. It returns the first pipeline-level error
// (cancellation); per-file failures are aggregated, not returned.
func (e *Executor) Run(ctx context.Context, files <-chan string) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.jobs)

	for {
		select {
		case <-ctx.Done():
			// drain nothing further; in-flight tasks finish on their own
			_ = eg.Wait()

			return ctx.Err()
		case path, ok := <-files:
			if !ok {
				return eg.Wait()
			}

			eg.Go(func() error {
				e.process(ctx, path)

				// per-file failures never cancel the group
				return nil
			})
		}
	}
}

func (e *Executor) process(ctx context.Context, path string) {
	e.statz.Add(stats.Traversed, 1)

	ft := filetype.Detect(path)

	if !e.dispatcher.Supported(ft) {
		e.statz.Add(stats.Unchanged, 1)

		if e.OnProcessed != nil {
			e.OnProcessed(path)
		}

		return
	}

	e.statz.Add(stats.Matched, 1)

	data, err := os.ReadFile(path)
	if err != nil {
		e.fail(path, backend.KindIO, fmt.Sprintf("failed to read: %v", err))

		return
	}

	outcome := e.dispatcher.Dispatch(ctx, path, ft, string(data))

	switch outcome.Status {
	case StatusFailed:
		e.fail(path, outcome.Kind, outcome.Message)

	case StatusFormatted:
		if err := writeBack(path, outcome.Text); err != nil {
			e.fail(path, backend.KindIO, fmt.Sprintf("failed to write: %v", err))

			return
		}

		e.statz.Add(stats.Formatted, 1)

		if e.OnFormatted != nil {
			e.OnFormatted(path)
		}

	default:
		e.statz.Add(stats.Unchanged, 1)
	}

	if outcome.Status != StatusFailed && e.OnProcessed != nil {
		e.OnProcessed(path)
	}
}

func (e *Executor) fail(path string, kind backend.Kind, message string) {
	e.statz.Add(stats.Failed, 1)
	e.log.Errorf("%s: %s: %s", path, kind, message)

	e.mu.Lock()
	e.failures = append(e.failures, Failure{Path: path, Kind: kind, Message: message})
	e.mu.Unlock()
}

// Failures lists every file that failed to format this run.
func (e *Executor) Failures() []Failure {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Failure, len(e.failures))
	copy(out, e.failures)

	return out
}

// writeBack replaces path's content, preserving its permissions.
func writeBack(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return os.WriteFile(path, []byte(content), info.Mode().Perm())
}
