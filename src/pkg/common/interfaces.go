package common

import "github.com/Blackdeer1524/StorageCore/src/storage/page"

type DiskManager interface {
	// ReadPage fills pg with the persisted bytes of blk.
	ReadPage(pg *page.Page, blk Block) error
	// WritePage persists pg into blk, creating or extending the file.
	WritePage(pg *page.Page, blk Block) error
	BlockSize() int
	// BlockCount returns the number of whole blocks stored in the file.
	BlockCount(fileName string) (uint64, error)
}
