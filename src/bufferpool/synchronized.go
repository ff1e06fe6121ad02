package bufferpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

const maxPinRetryDelay = 100 * time.Millisecond

// Synchronized serializes every call into a Manager. Page bytes are not
// protected: callers sharing a pinned page coordinate on their own.
type Synchronized struct {
	mu sync.Mutex
	m  *Manager
}

var (
	_ BufferPool = &Synchronized{}
)

func NewSynchronized(m *Manager) *Synchronized {
	return &Synchronized{m: m}
}

func (s *Synchronized) Pin(blk common.Block) (*page.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.m.Pin(blk)
}

// PinContext retries Pin while the pool is exhausted, backing off up to
// maxPinRetryDelay between attempts, until ctx is done.
func (s *Synchronized) PinContext(ctx context.Context, blk common.Block) (*page.Page, error) {
	delay := time.Millisecond
	for {
		pg, err := s.Pin(blk)
		if !errors.Is(err, ErrNoSpaceLeft) {
			return pg, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrNoSpaceLeft, ctx.Err())
		case <-timer.C:
		}

		delay = min(delay*2, maxPinRetryDelay)
	}
}

func (s *Synchronized) Unpin(blk common.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.m.Unpin(blk)
}

func (s *Synchronized) FlushAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.m.FlushAll()
}

func (s *Synchronized) PinCount(blk common.Block) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.m.PinCount(blk)
}

func (s *Synchronized) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.m.Available()
}
