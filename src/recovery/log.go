package recovery

import (
	"errors"
	"fmt"
	"math"

	"github.com/Blackdeer1524/StorageCore/src"
	"github.com/Blackdeer1524/StorageCore/src/pkg/assert"
	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

var ErrRecordTooLarge = errors.New("log record doesn't fit into an empty log page")

// recordOverhead is the length header plus the trailing LSN.
const recordOverhead = page.LenPrefixSize + common.LSNSize

// LogRecord is laid out as [u32 len][payload][u64 lsn], little-endian.
// Records are packed back to back; the rest of a block is zeroed.
type LogRecord struct {
	Payload []byte
	LSN     common.LSN
}

func (r LogRecord) Size() int {
	return recordSize(len(r.Payload))
}

func recordSize(payloadLen int) int {
	return payloadLen + recordOverhead
}

// decodeRecord reads the record starting at offset. ok is false when
// there is no record there: the page ran out or only zero padding is left.
func decodeRecord(pg *page.Page, offset int) (LogRecord, bool) {
	payload, err := page.GetBytes(pg, offset)
	if err != nil {
		return LogRecord{}, false
	}

	lsn, err := page.Get[common.LSN](pg, offset+page.EncodedLen(len(payload)))
	if err != nil || lsn == common.NilLSN {
		return LogRecord{}, false
	}
	return LogRecord{Payload: payload, LSN: lsn}, true
}

// LogManager appends records to a staging page and writes it out as the
// next block of the log file. It does no locking (see Synchronized).
type LogManager struct {
	diskManager common.DiskManager
	logFile     string
	log         src.Logger

	staging *page.Page

	lastStaged    common.LSN
	lastCommitted common.LSN
	nextBlockID   uint64
}

// New opens logFile. Records already present in the file are treated
// as committed, and new blocks are written after the existing ones.
func New(
	diskManager common.DiskManager,
	logFile string,
	log src.Logger,
) (*LogManager, error) {
	if diskManager.BlockSize() <= recordOverhead {
		return nil, fmt.Errorf(
			"block size %d can't hold a log record: %w",
			diskManager.BlockSize(),
			ErrRecordTooLarge,
		)
	}

	blocks, err := diskManager.BlockCount(logFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", logFile, err)
	}

	l := &LogManager{
		diskManager: diskManager,
		logFile:     logFile,
		log:         log,
		staging:     page.New(diskManager.BlockSize()),
		nextBlockID: blocks,
	}

	if blocks == 0 {
		return l, nil
	}

	it := newRecordIter(diskManager, logFile, blocks, math.MaxUint64)
	for it.Next() {
		l.lastStaged = it.Record().LSN
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log %s: %w", logFile, err)
	}
	l.lastCommitted = l.lastStaged

	log.Infow(
		"reopened log",
		"file", logFile,
		"blocks", blocks,
		"lastLSN", uint64(l.lastStaged),
	)
	return l, nil
}

// Add stages payload and assigns it the next LSN. The staging page is
// flushed first if the record doesn't fit, so a record never spans two
// blocks. Nothing is consumed when Add fails.
func (l *LogManager) Add(payload []byte) (LogRecord, error) {
	size := recordSize(len(payload))
	if size > l.staging.Capacity() {
		return LogRecord{}, fmt.Errorf(
			"record of %d bytes, page capacity is %d: %w",
			size,
			l.staging.Capacity(),
			ErrRecordTooLarge,
		)
	}

	if l.staging.AvailSpace() < size {
		if err := l.Flush(); err != nil {
			return LogRecord{}, err
		}
	}

	rec := LogRecord{
		Payload: append([]byte(nil), payload...),
		LSN:     l.lastStaged + 1,
	}

	// encoded is sized to the record, so neither write can run out of bounds
	encoded := page.New(size)
	assert.NoError(page.SetBytes(encoded, 0, rec.Payload))
	assert.NoError(page.Set(encoded, page.EncodedLen(len(rec.Payload)), rec.LSN))

	n := l.staging.Append(encoded.GetData())
	assert.Assert(n == size, "log record %d was cut: %d of %d bytes staged", rec.LSN, n, size)

	l.lastStaged = rec.LSN
	return rec, nil
}

// Commit makes every staged record durable if lsn isn't durable yet.
// Committing an already durable LSN is a no-op.
func (l *LogManager) Commit(lsn common.LSN) error {
	if lsn <= l.lastCommitted {
		return nil
	}

	if err := l.Flush(); err != nil {
		return fmt.Errorf("failed to commit %d: %w", lsn, err)
	}

	l.log.Debugw(
		"committed log",
		"requested", uint64(lsn),
		"lastCommitted", uint64(l.lastStaged),
	)
	l.lastCommitted = l.lastStaged
	return nil
}

// Flush writes the staging page as the next log block and clears it.
func (l *LogManager) Flush() error {
	blk := common.NewBlock(l.logFile, l.nextBlockID)
	if err := l.diskManager.WritePage(l.staging, blk); err != nil {
		l.log.Warnw("failed to flush log page", "block", blk.String(), "error", err)
		return fmt.Errorf("failed to flush log block %s: %w", blk, err)
	}

	l.log.Debugw(
		"flushed log page",
		"block", blk.String(),
		"used", l.staging.Used(),
		"lastStaged", uint64(l.lastStaged),
	)

	l.nextBlockID++
	l.staging.Reset()
	return nil
}

func (l *LogManager) LastStaged() common.LSN {
	return l.lastStaged
}

func (l *LogManager) LastCommitted() common.LSN {
	return l.lastCommitted
}

func (l *LogManager) NextBlockID() uint64 {
	return l.nextBlockID
}

// AvailSpace is the number of free bytes left in the staging page.
func (l *LogManager) AvailSpace() int {
	return l.staging.AvailSpace()
}

func (l *LogManager) LogFile() string {
	return l.logFile
}
