package bufferpool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

func TestSynchronized_ConcurrentPinUnpin(t *testing.T) {
	const (
		poolSize     = 4
		workersCount = 16
		opsPerWorker = 50
	)

	dm := newTestDisk(t, workersCount)
	manager := New(poolSize, dm, common.NopLogger())
	debugPool := NewDebugBufferPool(manager, nil)
	pool := NewSynchronized(manager)

	workerPool, err := ants.NewPool(workersCount)
	require.NoError(t, err)
	defer workerPool.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	errs := make(chan error, workersCount*opsPerWorker)
	wg := sync.WaitGroup{}
	for w := range uint64(workersCount) {
		wg.Add(1)
		// every worker owns one block, so page bytes are never shared
		require.NoError(t, workerPool.Submit(func() {
			defer wg.Done()

			for op := range opsPerWorker {
				pg, err := pool.PinContext(ctx, blk(w))
				if err != nil {
					errs <- err
					return
				}

				prev, err := page.GetString(pg, 0)
				if op > 0 && err == nil && prev != fmt.Sprintf("w%d-op%d", w, op-1) {
					errs <- fmt.Errorf("worker %d lost write: got %q", w, prev)
				}

				if err := page.SetString(pg, 0, fmt.Sprintf("w%d-op%d", w, op)); err != nil {
					errs <- err
				}
				if err := pool.Unpin(blk(w)); err != nil {
					errs <- err
					return
				}
			}
		}))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.NoError(t, debugPool.EnsureAllPagesUnpinned())
	assert.Equal(t, poolSize, pool.Available())

	require.NoError(t, pool.FlushAll())
	for w := range uint64(workersCount) {
		pg := page.New(testBlockSize)
		require.NoError(t, dm.ReadPage(pg, blk(w)))
		got, err := page.GetString(pg, 0)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("w%d-op%d", w, opsPerWorker-1), got)
	}
}

func TestSynchronized_PinContextWaitsForUnpin(t *testing.T) {
	dm := newTestDisk(t, 2)
	pool := NewSynchronized(New(1, dm, common.NopLogger()))

	_, err := pool.Pin(blk(0))
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		assert.NoError(t, pool.Unpin(blk(0)))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg, err := pool.PinContext(ctx, blk(1))
	require.NoError(t, err)
	assert.Equal(t, persisted(t, dm, blk(1)), pg.GetData())

	count, ok := pool.PinCount(blk(1))
	require.True(t, ok)
	assert.Equal(t, uint64(1), count)
}

func TestSynchronized_PinContextTimeout(t *testing.T) {
	dm := newTestDisk(t, 2)
	pool := NewSynchronized(New(1, dm, common.NopLogger()))

	_, err := pool.Pin(blk(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = pool.PinContext(ctx, blk(1))
	assert.ErrorIs(t, err, ErrNoSpaceLeft)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, resident := pool.PinCount(blk(1))
	assert.False(t, resident)
}
