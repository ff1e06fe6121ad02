package disk

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

const testBlockSize = 400

func newTestManager(t *testing.T) (*Manager, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	m, err := New(fs, "example", testBlockSize, common.NopLogger())
	require.NoError(t, err)
	return m, fs
}

func filledPage(size int, b byte) *page.Page {
	pg := page.New(size)
	pg.SetData(bytes.Repeat([]byte{b}, size))
	return pg
}

func TestWriteThenRead(t *testing.T) {
	m, _ := newTestManager(t)
	blk := common.NewBlock("filetest.tbl", 2)

	require.NoError(t, m.WritePage(filledPage(testBlockSize, 1), blk))

	pg := page.New(testBlockSize)
	require.NoError(t, m.ReadPage(pg, blk))
	assert.Equal(t, bytes.Repeat([]byte{1}, testBlockSize), pg.GetData())

	// blocks before the written one are zero-filled by the file extension
	count, err := m.BlockCount("filetest.tbl")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, m.ReadPage(pg, common.NewBlock("filetest.tbl", 0)))
	assert.Equal(t, make([]byte, testBlockSize), pg.GetData())
}

func TestOverwriteKeepsNeighbours(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.WritePage(filledPage(testBlockSize, 1), common.NewBlock("f", 0)))
	require.NoError(t, m.WritePage(filledPage(testBlockSize, 2), common.NewBlock("f", 1)))
	require.NoError(t, m.WritePage(filledPage(testBlockSize, 3), common.NewBlock("f", 0)))

	pg := page.New(testBlockSize)
	require.NoError(t, m.ReadPage(pg, common.NewBlock("f", 1)))
	assert.Equal(t, bytes.Repeat([]byte{2}, testBlockSize), pg.GetData())

	require.NoError(t, m.ReadPage(pg, common.NewBlock("f", 0)))
	assert.Equal(t, bytes.Repeat([]byte{3}, testBlockSize), pg.GetData())
}

func TestReadMissing(t *testing.T) {
	m, _ := newTestManager(t)

	pg := filledPage(testBlockSize, 7)
	err := m.ReadPage(pg, common.NewBlock("absent.tbl", 0))
	assert.ErrorIs(t, err, ErrNoSuchBlock)

	require.NoError(t, m.WritePage(page.New(testBlockSize), common.NewBlock("short.tbl", 0)))
	err = m.ReadPage(pg, common.NewBlock("short.tbl", 1))
	assert.ErrorIs(t, err, ErrNoSuchBlock)
	err = m.ReadPage(pg, common.NewBlock("short.tbl", 5))
	assert.ErrorIs(t, err, ErrNoSuchBlock)

	assert.Equal(t, bytes.Repeat([]byte{7}, testBlockSize), pg.GetData(), "failed read leaves the page intact")
}

func TestPageSizeMismatch(t *testing.T) {
	m, _ := newTestManager(t)

	assert.Error(t, m.WritePage(page.New(10), common.NewBlock("f", 0)))
	assert.Error(t, m.ReadPage(page.New(10), common.NewBlock("f", 0)))
}

func TestWriteFailurePropagates(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("example", 0o750))

	m, err := New(afero.NewReadOnlyFs(base), "example", testBlockSize, common.NopLogger())
	require.NoError(t, err)

	err = m.WritePage(page.New(testBlockSize), common.NewBlock("f", 0))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSuchBlock)
}

func TestAllocate(t *testing.T) {
	m, _ := newTestManager(t)

	count, err := m.BlockCount("grow.tbl")
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := range uint64(3) {
		blk, err := m.Allocate("grow.tbl")
		require.NoError(t, err)
		assert.Equal(t, common.NewBlock("grow.tbl", i), blk)
	}

	count, err = m.BlockCount("grow.tbl")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestInvalidBlockSize(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), "x", 0, common.NopLogger())
	assert.Error(t, err)
}

func TestFileNameConfinedToDataDir(t *testing.T) {
	m, fs := newTestManager(t)
	pg := page.New(testBlockSize)

	for _, name := range []string{
		"",
		".",
		"..",
		"../escaped.tbl",
		"nested/file.tbl",
		"/etc/passwd",
		`..\escaped.tbl`,
		"./file.tbl",
	} {
		t.Run(name, func(t *testing.T) {
			blk := common.NewBlock(name, 0)

			assert.ErrorIs(t, m.WritePage(pg, blk), ErrInvalidFileName)
			assert.ErrorIs(t, m.ReadPage(pg, blk), ErrInvalidFileName)

			_, err := m.BlockCount(name)
			assert.ErrorIs(t, err, ErrInvalidFileName)

			_, err = m.Allocate(name)
			assert.ErrorIs(t, err, ErrInvalidFileName)
		})
	}

	exists, err := afero.Exists(fs, "escaped.tbl")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, m.WritePage(pg, common.NewBlock("plain.tbl", 0)))
	exists, err = afero.Exists(fs, "example/plain.tbl")
	require.NoError(t, err)
	assert.True(t, exists)
}
