package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Blackdeer1524/StorageCore/src/app"
	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

const counterSize = 8

var errRefreshOnHit = errors.New(
	"bench can't run with refresh on hit: a re-read page would overwrite counters of workers still holding it",
)

type benchOptions struct {
	workers int
	ops     int
	blocks  uint64
}

func newBenchCmd(opts *rootOptions) *cobra.Command {
	bench := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Hammer the buffer pool with concurrent pins over a scratch file",
		Long: "Hammer the buffer pool with concurrent pins over a scratch file.\n\n" +
			"Workers share pinned pages, so the command refuses to run when\n" +
			"STORAGECORE_REFRESH_ON_HIT is enabled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bench.workers <= 0 || bench.ops <= 0 || bench.blocks == 0 {
				return errors.New("workers, ops and blocks must be positive")
			}

			return withStorage(cmd, opts, func(e *app.Entrypoint) error {
				return runBench(cmd, e, bench)
			})
		},
	}

	cmd.Flags().IntVar(&bench.workers, "workers", 8, "number of concurrent workers")
	cmd.Flags().IntVar(&bench.ops, "ops", 1000, "pin/unpin cycles per worker")
	cmd.Flags().Uint64Var(&bench.blocks, "blocks", 16, "blocks in the scratch file")
	return cmd
}

// runBench gives every worker its own counter slot in each block, so
// workers never touch the same bytes of a shared page.
func runBench(cmd *cobra.Command, e *app.Entrypoint, opts *benchOptions) error {
	if e.Config.RefreshOnHit {
		return errRefreshOnHit
	}

	if opts.workers*counterSize > e.Config.BlockSize {
		return fmt.Errorf(
			"block size %d can't hold counters for %d workers",
			e.Config.BlockSize,
			opts.workers,
		)
	}

	runID := uuid.New()
	fileName := fmt.Sprintf("bench-%s.tbl", runID)
	log := e.Logger()

	for range opts.blocks {
		if _, err := e.Disk.Allocate(fileName); err != nil {
			return err
		}
	}

	workerPool, err := ants.NewPool(opts.workers)
	if err != nil {
		return err
	}
	defer workerPool.Release()

	var (
		errMu    sync.Mutex
		benchErr error
		wg       sync.WaitGroup
	)
	record := func(err error) {
		errMu.Lock()
		benchErr = errors.Join(benchErr, err)
		errMu.Unlock()
	}

	start := time.Now()
	for w := range opts.workers {
		wg.Add(1)
		err := workerPool.Submit(func() {
			defer wg.Done()

			for range opts.ops {
				blk := common.NewBlock(fileName, rand.Uint64N(opts.blocks))
				if err := bumpCounter(cmd, e, blk, w); err != nil {
					record(err)
					return
				}
			}
		})
		if err != nil {
			wg.Done()
			record(err)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	if benchErr != nil {
		return benchErr
	}

	total, err := sumCounters(cmd, e, fileName, opts)
	if err != nil {
		return err
	}

	expected := uint64(opts.workers) * uint64(opts.ops)
	if total != expected {
		return fmt.Errorf("lost updates: counted %d of %d pins", total, expected)
	}

	rec, err := e.WAL.AddAndCommit(fmt.Appendf(nil, "bench %s: %d pins", runID, total))
	if err != nil {
		return err
	}

	log.Infow(
		"bench finished",
		"run", runID.String(),
		"file", fileName,
		"pins", total,
		"elapsed", elapsed,
		"lsn", uint64(rec.LSN),
	)
	fmt.Fprintf(
		cmd.OutOrStdout(),
		"%d pins in %s (%.0f pins/s), scratch file %s\n",
		total,
		elapsed,
		float64(total)/elapsed.Seconds(),
		fileName,
	)
	return nil
}

func bumpCounter(cmd *cobra.Command, e *app.Entrypoint, blk common.Block, worker int) error {
	pg, err := e.Pool.PinContext(cmd.Context(), blk)
	if err != nil {
		return err
	}

	offset := worker * counterSize
	v, err := page.Get[uint64](pg, offset)
	if err == nil {
		err = page.Set(pg, offset, v+1)
	}

	return errors.Join(err, e.Pool.Unpin(blk))
}

func sumCounters(
	cmd *cobra.Command,
	e *app.Entrypoint,
	fileName string,
	opts *benchOptions,
) (uint64, error) {
	var total atomic.Uint64

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.workers)
	for idx := range opts.blocks {
		g.Go(func() (err error) {
			blk := common.NewBlock(fileName, idx)
			pg, err := e.Pool.PinContext(ctx, blk)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, e.Pool.Unpin(blk))
			}()

			for w := range opts.workers {
				v, err := page.Get[uint64](pg, w*counterSize)
				if err != nil {
					return err
				}
				total.Add(v)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}
