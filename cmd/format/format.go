package format

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/AkaraChen/fama/backend"
	"github.com/AkaraChen/fama/backend/foreign"
	"github.com/AkaraChen/fama/backend/gofmt"
	"github.com/AkaraChen/fama/backend/jsfmt"
	"github.com/AkaraChen/fama/backend/jsonfmt"
	"github.com/AkaraChen/fama/backend/sandbox"
	"github.com/AkaraChen/fama/cache"
	"github.com/AkaraChen/fama/config"
	"github.com/AkaraChen/fama/format"
	"github.com/AkaraChen/fama/registry"
	"github.com/AkaraChen/fama/stats"
	"github.com/AkaraChen/fama/walk"
)

const BatchSize = 1024

var (
	ErrFailOnChange = errors.New("unexpected changes detected, --fail-on-change is enabled")
	ErrFailures     = errors.New("some files failed to format")
)

func Run(v *viper.Viper, statz *stats.Stats, cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pattern := walk.DefaultPattern
	if len(args) == 1 {
		pattern = args[0]
	}

	jobs := int(cfg.Jobs)
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}

	// initialise the backends
	host := sandbox.New(cfg.WasmPath, jobs)

	defer func() {
		if err := host.Close(context.Background()); err != nil {
			log.Errorf("failed to close the sandbox host: %v", err)
		}
	}()

	backends := map[registry.BackendID]backend.Backend{
		registry.BackendJS:      jsfmt.New(),
		registry.BackendJSON:    jsonfmt.New(),
		registry.BackendGofmt:   gofmt.New(),
		registry.BackendForeign: foreign.New(cfg.LibraryPath),
		registry.BackendSandbox: host,
	}

	dispatcher := format.NewDispatcher(cfg, backends)
	executor := format.NewExecutor(dispatcher, statz, jobs)

	// open the cache unless disabled
	var cach *cache.Cache

	if !cfg.NoCache {
		artifacts := make(map[string]string)
		if cfg.LibraryPath != "" {
			artifacts["library"] = cfg.LibraryPath
		}

		if cfg.WasmPath != "" {
			artifacts["wasm"] = cfg.WasmPath
		}

		cach, err = cache.Open(cfg.TreeRoot, cfg.ClearCache, artifacts, styleFingerprint(cfg))
		if err != nil {
			// if we can't open the cache, we log a warning and fallback to no cache
			log.Warnf("failed to open cache: %v", err)
		} else {
			defer func() {
				if err := cach.Close(); err != nil {
					log.Errorf("failed to close cache: %v", err)
				}
			}()
		}
	}

	// create an app context and listen for shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
		<-exit
		cancel()
	}()

	// record processed paths in batches for more efficient cache txs
	var (
		mu    sync.Mutex
		batch []string
	)

	if cach != nil {
		executor.OnProcessed = func(path string) {
			mu.Lock()
			defer mu.Unlock()

			batch = append(batch, path)
			if len(batch) < BatchSize {
				return
			}

			if err := cach.Update(batch); err != nil {
				log.Warnf("failed to update cache: %v", err)
			}

			batch = batch[:0]
		}
	}

	walker, err := walk.New(cfg.TreeRoot, pattern)
	if err != nil {
		return fmt.Errorf("failed to create walker: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)

	filesCh := make(chan string, BatchSize)

	eg.Go(func() error {
		return walker.Walk(ctx, filesCh)
	})

	// when caching, filter out files whose size and modtime have not moved
	pending := filesCh

	if cach != nil {
		changedCh := make(chan string, BatchSize)

		eg.Go(func() error {
			defer close(changedCh)

			for path := range filesCh {
				changed, err := cach.Changed(path)
				if err != nil {
					return fmt.Errorf("failed to check cache for %s: %w", path, err)
				}

				if !changed {
					statz.Add(stats.Traversed, 1)
					statz.Add(stats.Unchanged, 1)

					continue
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case changedCh <- path:
				}
			}

			return nil
		})

		pending = changedCh
	}

	eg.Go(func() error {
		return executor.Run(ctx, pending)
	})

	if err := eg.Wait(); err != nil {
		return err //nolint:wrapcheck
	}

	// final flush of the cache batch
	if cach != nil {
		mu.Lock()
		if err := cach.Update(batch); err != nil {
			log.Warnf("failed to update cache: %v", err)
		}
		mu.Unlock()
	}

	if !cfg.Quiet {
		statz.Print(cmd.OutOrStdout())
	}

	if cfg.FailOnChange && statz.Value(stats.Formatted) != 0 {
		return ErrFailOnChange
	}

	if failed := statz.Value(stats.Failed); failed > 0 {
		return fmt.Errorf("%w: %d files", ErrFailures, failed)
	}

	return nil
}

// styleFingerprint renders every style option into a canonical string, so the
// cache can invalidate its entries when any of them changes.
func styleFingerprint(cfg *config.Config) string {
	return fmt.Sprintf(
		"indent=%s/%d line=%s/%d quotes=%s semi=%s comma=%s spacing=%t brace=%s",
		cfg.IndentStyle, cfg.IndentWidth,
		cfg.LineEnding, cfg.LineWidth,
		cfg.Quotes, cfg.Semicolons, cfg.TrailingComma,
		cfg.BracketSpacing, cfg.BraceStyle,
	)
}
