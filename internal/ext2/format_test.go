package ext2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVolume() Volume {
	return NewMemoryVolume(BlockSize * uint64(BlocksCount))
}

func mustFormat(t *testing.T) *FileSystem {
	t.Helper()
	fs, err := Format(newTestVolume())
	require.NoError(t, err)
	return fs
}

func TestFormatCreatesRootDirectory(t *testing.T) {
	fs := mustFormat(t)

	root, err := fs.GetInode(RootIno)
	require.NoError(t, err)
	assert.True(t, root.IsDir())
	assert.Equal(t, uint16(2), root.LinksCount)
	assert.Equal(t, uint16(0755), root.Mode.Perm)
}

func TestFormatMarksMetadataBlocksUsed(t *testing.T) {
	fs := mustFormat(t)

	firstData := uint64(fs.Superblock.FirstDataBlock)
	for block := uint64(0); block < firstData; block++ {
		assert.True(t, fs.BlockBitmap.IsSet(block), "metadata block %d should be marked used", block)
	}
	assert.True(t, fs.InodeBitmap.IsSet(0), "inode 0 is reserved")
	assert.True(t, fs.InodeBitmap.IsSet(uint64(RootIno)), "root inode should be marked used")
}

func TestMountRejectsBadMagic(t *testing.T) {
	volume := newTestVolume()
	_, err := Mount(volume)
	assert.Error(t, err)
}

func TestMountRoundTripsSuperblock(t *testing.T) {
	volume := newTestVolume()
	formatted, err := Format(volume)
	require.NoError(t, err)
	require.NoError(t, formatted.FlushAll())

	mounted, err := Mount(volume)
	require.NoError(t, err)
	assert.Equal(t, formatted.Superblock.BlocksCount, mounted.Superblock.BlocksCount)
	assert.Equal(t, formatted.Superblock.InodesCount, mounted.Superblock.InodesCount)
	assert.Equal(t, formatted.Superblock.FreeBlocksCount, mounted.Superblock.FreeBlocksCount)
	assert.Equal(t, formatted.Superblock.FreeInodesCount, mounted.Superblock.FreeInodesCount)
}

func TestUnmountClearsOpenFilesAndIdentity(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.CreateFile("/hello", 0644)
	require.NoError(t, err)
	_, err = fs.Open("/hello", OpenReadWrite)
	require.NoError(t, err)

	require.NoError(t, fs.Unmount())
	assert.Equal(t, 0, fs.OpenFileCount())
	assert.False(t, fs.Identity.LoggedIn)
}
