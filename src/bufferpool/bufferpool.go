package bufferpool

import (
	"errors"
	"fmt"

	"github.com/Blackdeer1524/StorageCore/src"
	"github.com/Blackdeer1524/StorageCore/src/pkg/assert"
	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

var (
	ErrNoSpaceLeft    = errors.New("no space left in the buffer pool")
	ErrInvalidRelease = errors.New("invalid release")
)

type BufferPool interface {
	Pin(common.Block) (*page.Page, error)
	Unpin(common.Block) error
	FlushAll() error
}

type frame struct {
	page     *page.Page
	block    common.Block
	bound    bool
	pinCount uint64
}

type frameView []frame

func (v frameView) Len() int                    { return len(v) }
func (v frameView) PinCount(frameID int) uint64 { return v[frameID].pinCount }

// Manager is a fixed set of frames caching blocks of the disk manager.
// It does no locking: all calls into one Manager must be serialized by
// the caller (see Synchronized).
type Manager struct {
	frames []frame

	replacer    Replacer
	diskManager common.DiskManager
	log         src.Logger

	// re-read resident blocks from disk on every Pin hit
	refreshOnHit bool
}

var (
	_ BufferPool = &Manager{}
)

func New(
	poolSize uint64,
	diskManager common.DiskManager,
	log src.Logger,
) *Manager {
	assert.Assert(poolSize > 0, "pool size must be greater than zero")

	frames := make([]frame, poolSize)
	for i := range frames {
		frames[i].page = page.New(diskManager.BlockSize())
	}

	return &Manager{
		frames:      frames,
		replacer:    NewFirstUnpinnedReplacer(),
		diskManager: diskManager,
		log:         log,
	}
}

func (m *Manager) SetReplacer(r Replacer) {
	m.replacer = r
}

// SetRefreshOnHit makes Pin re-read a resident block from disk, discarding
// any in-memory modification made since it was loaded.
func (m *Manager) SetRefreshOnHit(refresh bool) {
	m.refreshOnHit = refresh
}

func (m *Manager) PoolSize() int {
	return len(m.frames)
}

func (m *Manager) findFrame(blk common.Block) (int, bool) {
	for i := range m.frames {
		if m.frames[i].bound && m.frames[i].block == blk {
			return i, true
		}
	}
	return -1, false
}

// Pin returns the page holding blk and increments its pin count.
// The page stays bound to blk until every pin is released.
func (m *Manager) Pin(blk common.Block) (*page.Page, error) {
	if frameID, ok := m.findFrame(blk); ok {
		return m.pinResident(frameID)
	}

	victimID, err := m.replacer.ChooseVictim(frameView(m.frames))
	if err != nil {
		if errors.Is(err, ErrNoVictimAvailable) {
			m.log.Debugw("no unpinned frame", "block", blk.String())
			return nil, ErrNoSpaceLeft
		}
		return nil, err
	}

	victim := &m.frames[victimID]
	assert.Assert(
		victim.pinCount == 0,
		"victim frame %d is pinned: %d",
		victimID,
		victim.pinCount,
	)

	if victim.bound {
		if err := m.diskManager.WritePage(victim.page, victim.block); err != nil {
			m.log.Warnw(
				"write-back failed",
				"frame", victimID,
				"block", victim.block.String(),
				"error", err,
			)
			return nil, fmt.Errorf("failed to write back block %s: %w", victim.block, err)
		}
		m.log.Debugw(
			"evicted block",
			"frame", victimID,
			"evicted", victim.block.String(),
			"requested", blk.String(),
		)
	}

	// the previous content is durable at this point
	victim.page.Reset()
	if err := m.diskManager.ReadPage(victim.page, blk); err != nil {
		victim.bound = false
		victim.block = common.Block{}
		return nil, fmt.Errorf("failed to read block %s: %w", blk, err)
	}

	victim.block = blk
	victim.bound = true
	victim.pinCount = 1
	return victim.page, nil
}

func (m *Manager) pinResident(frameID int) (*page.Page, error) {
	f := &m.frames[frameID]
	if m.refreshOnHit {
		if err := m.diskManager.ReadPage(f.page, f.block); err != nil {
			return nil, fmt.Errorf("failed to refresh block %s: %w", f.block, err)
		}
	}

	f.pinCount++
	return f.page, nil
}

// Unpin releases one pin of every frame bound to blk. Nothing is
// decremented if blk isn't resident or any matching frame is unpinned.
func (m *Manager) Unpin(blk common.Block) error {
	matched := 0
	for i := range m.frames {
		f := &m.frames[i]
		if !f.bound || f.block != blk {
			continue
		}

		if f.pinCount == 0 {
			m.log.Warnw("unpin of unpinned block", "frame", i, "block", blk.String())
			return fmt.Errorf("%w: block %s is not pinned", ErrInvalidRelease, blk)
		}
		matched++
	}

	if matched == 0 {
		m.log.Warnw("unpin of non-resident block", "block", blk.String())
		return fmt.Errorf("%w: block %s is not resident", ErrInvalidRelease, blk)
	}

	for i := range m.frames {
		f := &m.frames[i]
		if f.bound && f.block == blk {
			f.pinCount--
		}
	}
	return nil
}

// FlushAll writes every bound frame back to disk, pinned or not.
func (m *Manager) FlushAll() error {
	var err error
	flushed := 0
	for i := range m.frames {
		f := &m.frames[i]
		if !f.bound {
			continue
		}

		if writeErr := m.diskManager.WritePage(f.page, f.block); writeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to flush block %s: %w", f.block, writeErr))
			continue
		}
		flushed++
	}

	m.log.Debugw("flushed buffer pool", "frames", flushed)
	return err
}

func (m *Manager) PinCount(blk common.Block) (uint64, bool) {
	frameID, ok := m.findFrame(blk)
	if !ok {
		return 0, false
	}
	return m.frames[frameID].pinCount, true
}

// Available returns the number of frames that could be victims right now.
func (m *Manager) Available() int {
	n := 0
	for i := range m.frames {
		if m.frames[i].pinCount == 0 {
			n++
		}
	}
	return n
}
