package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/Blackdeer1524/StorageCore/src"
	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

var (
	ErrNoSuchBlock     = errors.New("no such block")
	ErrInvalidFileName = errors.New("invalid file name")
)

const DefaultBlockSize = 4096

// Manager reads and writes whole blocks of files that live under a single
// directory of an afero filesystem. Every call opens the file, performs
// exactly one positioned read or write and closes it again.
type Manager struct {
	fs        afero.Fs
	dir       string
	blockSize int
	log       src.Logger

	allocMu sync.Mutex
}

var (
	_ common.DiskManager = &Manager{}
)

func New(fs afero.Fs, dir string, blockSize int, log src.Logger) (*Manager, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("invalid block size: %d", blockSize)
	}

	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat data directory %s: %w", dir, err)
	}
	if !exists {
		if err := fs.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	return &Manager{
		fs:        fs,
		dir:       dir,
		blockSize: blockSize,
		log:       log,
	}, nil
}

func (m *Manager) BlockSize() int {
	return m.blockSize
}

// path maps fileName to a file directly inside the data directory.
// Only a plain name without separators or dot entries is accepted.
func (m *Manager) path(fileName string) (string, error) {
	cleaned := filepath.Clean(fileName)
	if fileName == "" ||
		filepath.IsAbs(fileName) ||
		strings.ContainsAny(fileName, `/\`) ||
		cleaned != fileName ||
		cleaned == "." ||
		cleaned == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, fileName)
	}
	return filepath.Join(m.dir, cleaned), nil
}

func (m *Manager) checkPage(pg *page.Page) error {
	if pg.Capacity() != m.blockSize {
		return fmt.Errorf(
			"page capacity %d doesn't match block size %d",
			pg.Capacity(),
			m.blockSize,
		)
	}
	return nil
}

// ReadPage never modifies pg unless the whole block was read.
func (m *Manager) ReadPage(pg *page.Page, blk common.Block) error {
	if err := m.checkPage(pg); err != nil {
		return err
	}

	path, err := m.path(blk.FileName)
	if err != nil {
		return err
	}

	file, err := m.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrNoSuchBlock, blk, err)
		}
		return fmt.Errorf("failed to open file %s: %w", blk.FileName, err)
	}
	defer file.Close()

	data := make([]byte, m.blockSize)
	n, err := file.ReadAt(data, blk.Offset(m.blockSize))
	if n < len(data) {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %s", ErrNoSuchBlock, blk)
		}
		return fmt.Errorf("failed to read block %s: %w", blk, err)
	}

	pg.SetData(data)
	return nil
}

func (m *Manager) WritePage(pg *page.Page, blk common.Block) (err error) {
	if err := m.checkPage(pg); err != nil {
		return err
	}

	path, err := m.path(blk.FileName)
	if err != nil {
		return err
	}

	file, err := m.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", blk.FileName, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if _, err := file.WriteAt(pg.GetData(), blk.Offset(m.blockSize)); err != nil {
		return fmt.Errorf("failed to write block %s: %w", blk, err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file %s: %w", blk.FileName, err)
	}
	return nil
}

func (m *Manager) BlockCount(fileName string) (uint64, error) {
	path, err := m.path(fileName)
	if err != nil {
		return 0, err
	}

	info, err := m.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat file %s: %w", fileName, err)
	}

	//nolint:gosec
	return uint64(info.Size()) / uint64(m.blockSize), nil
}

// Allocate appends one zero-filled block to the file and returns its address.
func (m *Manager) Allocate(fileName string) (common.Block, error) {
	m.allocMu.Lock()
	defer m.allocMu.Unlock()

	count, err := m.BlockCount(fileName)
	if err != nil {
		return common.Block{}, err
	}

	blk := common.NewBlock(fileName, count)
	if err := m.WritePage(page.New(m.blockSize), blk); err != nil {
		return common.Block{}, err
	}

	m.log.Debugw("allocated block", "block", blk.String())
	return blk, nil
}
