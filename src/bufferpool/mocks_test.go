package bufferpool

import (
	"github.com/stretchr/testify/mock"

	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

type MockDiskManager struct {
	mock.Mock
	blockSize int
}

var _ common.DiskManager = &MockDiskManager{}

func NewMockDiskManager(blockSize int) *MockDiskManager {
	return &MockDiskManager{blockSize: blockSize}
}

func (m *MockDiskManager) ReadPage(pg *page.Page, blk common.Block) error {
	args := m.Called(pg, blk)
	return args.Error(0)
}

func (m *MockDiskManager) WritePage(pg *page.Page, blk common.Block) error {
	args := m.Called(pg, blk)
	return args.Error(0)
}

func (m *MockDiskManager) BlockSize() int {
	return m.blockSize
}

func (m *MockDiskManager) BlockCount(fileName string) (uint64, error) {
	args := m.Called(fileName)
	return args.Get(0).(uint64), args.Error(1)
}
