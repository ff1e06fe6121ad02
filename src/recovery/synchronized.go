package recovery

import (
	"iter"
	"sync"

	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
)

// Synchronized orders concurrent callers of a LogManager, so LSNs follow
// the order in which Add calls acquire the lock.
type Synchronized struct {
	mu sync.Mutex
	l  *LogManager
}

func NewSynchronized(l *LogManager) *Synchronized {
	return &Synchronized{l: l}
}

func (s *Synchronized) Add(payload []byte) (LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.Add(payload)
}

func (s *Synchronized) Commit(lsn common.LSN) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.Commit(lsn)
}

func (s *Synchronized) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.Flush()
}

// AddAndCommit stages payload and makes it durable under one lock hold.
func (s *Synchronized) AddAndCommit(payload []byte) (LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.l.Add(payload)
	if err != nil {
		return LogRecord{}, err
	}
	return rec, s.l.Commit(rec.LSN)
}

func (s *Synchronized) LastStaged() common.LSN {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.LastStaged()
}

func (s *Synchronized) LastCommitted() common.LSN {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.LastCommitted()
}

func (s *Synchronized) NextBlockID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.NextBlockID()
}

func (s *Synchronized) AvailSpace() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.AvailSpace()
}

func (s *Synchronized) Iterator() *RecordIter {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.Iterator()
}

func (s *Synchronized) Records() iter.Seq2[LogRecord, error] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.l.Records()
}
