package bufferpool

import (
	"errors"
	"fmt"

	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

// DebugBufferPool is used by tests to check that every pin taken was
// released. Blocks marked as leaking are expected to stay pinned.
type DebugBufferPool struct {
	m            *Manager
	leakingPages map[common.Block]struct{}
}

var (
	_ BufferPool = &DebugBufferPool{}
)

func NewDebugBufferPool(m *Manager, leakingPages map[common.Block]struct{}) *DebugBufferPool {
	if leakingPages == nil {
		leakingPages = map[common.Block]struct{}{}
	}
	return &DebugBufferPool{m: m, leakingPages: leakingPages}
}

func (d *DebugBufferPool) MarkPageAsLeaking(blk common.Block) {
	d.leakingPages[blk] = struct{}{}
}

func (d *DebugBufferPool) Pin(blk common.Block) (*page.Page, error) {
	return d.m.Pin(blk)
}

func (d *DebugBufferPool) Unpin(blk common.Block) error {
	return d.m.Unpin(blk)
}

func (d *DebugBufferPool) FlushAll() error {
	return d.m.FlushAll()
}

func (d *DebugBufferPool) EnsureAllPagesUnpinned() error {
	pinned := map[common.Block]uint64{}
	unpinnedLeaked := map[common.Block]struct{}{}
	duplicated := map[common.Block]int{}

	seen := map[common.Block]int{}
	for i := range d.m.frames {
		f := &d.m.frames[i]
		if !f.bound {
			continue
		}

		seen[f.block]++
		if seen[f.block] > 1 {
			duplicated[f.block] = seen[f.block]
		}

		if _, ok := d.leakingPages[f.block]; ok {
			if f.pinCount == 0 {
				unpinnedLeaked[f.block] = struct{}{}
			}
		} else if f.pinCount != 0 {
			pinned[f.block] += f.pinCount
		}
	}

	var err error
	if len(pinned) > 0 {
		err = fmt.Errorf("not all pages were properly unpinned: %+v", pinned)
	}

	if len(unpinnedLeaked) > 0 {
		err = errors.Join(err, fmt.Errorf(
			"not all leaked pages stayed pinned: %+v",
			unpinnedLeaked,
		))
	}

	if len(duplicated) > 0 {
		err = errors.Join(err, fmt.Errorf(
			"found blocks bound to more than one frame: %+v",
			duplicated,
		))
	}

	return err
}
