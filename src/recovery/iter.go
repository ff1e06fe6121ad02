package recovery

import (
	"fmt"
	"iter"

	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

// RecordIter walks durable log records in LSN order, reading one block
// at a time. It stops at the first gap in LSNs or at the commit
// watermark captured when it was created.
type RecordIter struct {
	diskManager common.DiskManager
	logFile     string

	nextBlockID uint64
	endBlockID  uint64
	limit       common.LSN

	pg     *page.Page
	pos    int
	loaded bool

	expected common.LSN
	current  LogRecord
	err      error
	done     bool
}

func newRecordIter(
	diskManager common.DiskManager,
	logFile string,
	endBlockID uint64,
	limit common.LSN,
) *RecordIter {
	return &RecordIter{
		diskManager: diskManager,
		logFile:     logFile,
		endBlockID:  endBlockID,
		limit:       limit,
		pg:          page.New(diskManager.BlockSize()),
		expected:    common.NilLSN + 1,
	}
}

func (it *RecordIter) Next() bool {
	if it.done {
		return false
	}

	for {
		if !it.loaded {
			if it.nextBlockID >= it.endBlockID {
				it.done = true
				return false
			}

			blk := common.NewBlock(it.logFile, it.nextBlockID)
			it.pg.Reset()
			if err := it.diskManager.ReadPage(it.pg, blk); err != nil {
				it.err = fmt.Errorf("failed to read log block %s: %w", blk, err)
				it.done = true
				return false
			}

			it.nextBlockID++
			it.pos = 0
			it.loaded = true
		}

		rec, ok := decodeRecord(it.pg, it.pos)
		if !ok {
			it.loaded = false
			continue
		}

		if rec.LSN != it.expected || rec.LSN > it.limit {
			it.done = true
			return false
		}

		it.pos += rec.Size()
		it.expected++
		it.current = rec
		return true
	}
}

func (it *RecordIter) Record() LogRecord {
	return it.current
}

func (it *RecordIter) Err() error {
	return it.err
}

// Iterator returns a pass over the records committed so far. Records
// committed after this call are not visited.
func (l *LogManager) Iterator() *RecordIter {
	return newRecordIter(l.diskManager, l.logFile, l.nextBlockID, l.lastCommitted)
}

// Records is Iterator as a range function. Every range over the result
// starts a new pass with the same bounds.
func (l *LogManager) Records() iter.Seq2[LogRecord, error] {
	dm, logFile := l.diskManager, l.logFile
	end, limit := l.nextBlockID, l.lastCommitted

	return func(yield func(LogRecord, error) bool) {
		it := newRecordIter(dm, logFile, end, limit)
		for it.Next() {
			if !yield(it.Record(), nil) {
				return
			}
		}

		if err := it.Err(); err != nil {
			yield(LogRecord{}, err)
		}
	}
}
