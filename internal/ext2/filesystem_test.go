package ext2

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	ino, err := fs.CreateFile("/data", 0644)
	require.NoError(t, err)
	inode, err := fs.GetInode(ino)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("abcdefgh"), 200) // 1600 bytes, spans blocks
	n, err := fs.WriteInodeData(&inode, 0, payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), n)

	buf := make([]byte, len(payload))
	n, err = fs.ReadInodeData(&inode, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), n)
	assert.Equal(t, payload, buf)
}

func TestReadHoleReturnsZeroes(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	ino, err := fs.CreateFile("/sparse", 0644)
	require.NoError(t, err)
	inode, err := fs.GetInode(ino)
	require.NoError(t, err)

	_, err = fs.WriteInodeData(&inode, 0, []byte("x"))
	require.NoError(t, err)
	inode.Size = uint32(BlockSize * 3)
	require.NoError(t, fs.UpdateInode(&inode))

	buf := make([]byte, 16)
	n, err := fs.ReadInodeData(&inode, BlockSize*2, buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
	assert.Equal(t, make([]byte, 16), buf)
}

func TestWriteGrowsThroughIndirectBlock(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	ino, err := fs.CreateFile("/big", 0644)
	require.NoError(t, err)
	inode, err := fs.GetInode(ino)
	require.NoError(t, err)

	// 12 direct blocks hold 12*1024 bytes; push past that into the
	// single-indirect range.
	payload := bytes.Repeat([]byte{0xAB}, int(BlockSize)*14)
	n, err := fs.WriteInodeData(&inode, 0, payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), n)
	assert.NotZero(t, inode.Block[12], "indirect block should be allocated")

	buf := make([]byte, len(payload))
	_, err = fs.ReadInodeData(&inode, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf)
}

func TestTruncateReclaimsBlocks(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	ino, err := fs.CreateFile("/shrink", 0644)
	require.NoError(t, err)
	inode, err := fs.GetInode(ino)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x11}, int(BlockSize)*14)
	_, err = fs.WriteInodeData(&inode, 0, payload)
	require.NoError(t, err)
	freeBefore := fs.Superblock.FreeBlocksCount

	require.NoError(t, fs.TruncateInode(&inode, BlockSize))
	assert.Greater(t, fs.Superblock.FreeBlocksCount, freeBefore)
	assert.Zero(t, inode.Block[12], "indirect block should be freed once unneeded")
	assert.Equal(t, uint32(BlockSize), inode.Size)
}

func TestTruncateExtendingIsNoop(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	ino, err := fs.CreateFile("/f", 0644)
	require.NoError(t, err)
	inode, err := fs.GetInode(ino)
	require.NoError(t, err)

	require.NoError(t, fs.TruncateInode(&inode, BlockSize*10))
	assert.Equal(t, uint32(0), inode.Size)
}

func TestDeleteInodeFreesAllBlocks(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	ino, err := fs.CreateFile("/doomed", 0644)
	require.NoError(t, err)
	inode, err := fs.GetInode(ino)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x22}, int(BlockSize)*14)
	_, err = fs.WriteInodeData(&inode, 0, payload)
	require.NoError(t, err)

	freeBefore := fs.Superblock.FreeBlocksCount
	require.NoError(t, fs.DeleteInode(ino))
	assert.Greater(t, fs.Superblock.FreeBlocksCount, freeBefore)
	assert.False(t, fs.InodeBitmap.IsSet(uint64(ino)))
}
