package common

import "fmt"

type LSN uint64

const (
	NilLSN LSN = 0

	// LSNSize is the on-disk width of an LSN, independent of the host.
	LSNSize = 8
)

// Block addresses the byte range [Index*blockSize, (Index+1)*blockSize)
// of a named file. It is a plain value and can be used as a map key.
type Block struct {
	FileName string
	Index    uint64
}

func NewBlock(fileName string, index uint64) Block {
	return Block{
		FileName: fileName,
		Index:    index,
	}
}

func (b Block) Offset(blockSize int) int64 {
	//nolint:gosec
	return int64(b.Index) * int64(blockSize)
}

func (b Block) String() string {
	return fmt.Sprintf("%s#%d", b.FileName, b.Index)
}
