package ext2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDeleteFile(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	ino, err := fs.CreateFile("/note.txt", 0644)
	require.NoError(t, err)
	assert.NotZero(t, ino)

	require.NoError(t, fs.DeleteFile("/note.txt"))
	_, err = fs.Resolve("/note.txt")
	assert.ErrorAs(t, err, new(ErrNotFound))
}

func TestDeleteFileRefusesDirectories(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.Mkdir("/d", 0755)
	require.NoError(t, err)

	err = fs.DeleteFile("/d")
	assert.ErrorAs(t, err, new(ErrIsADirectory))
}

func TestRmdirRequiresEmpty(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.Mkdir("/d", 0755)
	require.NoError(t, err)
	_, err = fs.CreateFile("/d/f", 0644)
	require.NoError(t, err)

	err = fs.Rmdir("/d")
	assert.ErrorAs(t, err, new(ErrNotEmpty))

	require.NoError(t, fs.DeleteFile("/d/f"))
	require.NoError(t, fs.Rmdir("/d"))
}

func TestMkdirLinksParentAndChild(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	rootBefore, err := fs.GetInode(RootIno)
	require.NoError(t, err)

	_, err = fs.Mkdir("/sub", 0755)
	require.NoError(t, err)

	rootAfter, err := fs.GetInode(RootIno)
	require.NoError(t, err)
	assert.Equal(t, rootBefore.LinksCount+1, rootAfter.LinksCount)
}

func TestChmodRequiresOwnership(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.CreateFile("/owned", 0644)
	require.NoError(t, err)

	fs.Login("other", 99, 99)
	err = fs.Chmod("/owned", 0777)
	assert.ErrorAs(t, err, new(ErrPermissionDenied))
}

func TestChmodChangesPermBitsOnly(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	ino, err := fs.CreateFile("/f", 0644)
	require.NoError(t, err)

	require.NoError(t, fs.Chmod("/f", 0600))
	inode, err := fs.GetInode(ino)
	require.NoError(t, err)
	assert.Equal(t, uint16(0600), inode.Mode.Perm)
	assert.True(t, inode.IsRegular())
}

func TestChownHasNoExtraAuthorization(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	ino, err := fs.CreateFile("/f", 0644)
	require.NoError(t, err)

	fs.Login("other", 99, 99)
	require.NoError(t, fs.Chown("/f", 5, 6), "chown enforces no extra authorization per the identity contract")

	inode, err := fs.GetInode(ino)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), inode.UID)
	assert.Equal(t, uint16(6), inode.GID)
}

func TestPermissionDeniedOnWriteProtectedFile(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.CreateFile("/locked", 0400)
	require.NoError(t, err)

	fs.Login("other", 99, 99)
	_, err = fs.Open("/locked", OpenWriteOnly)
	assert.ErrorAs(t, err, new(ErrPermissionDenied))
}

func TestStatusReflectsOccupancy(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	before := fs.Status()
	_, err := fs.CreateFile("/f", 0644)
	require.NoError(t, err)

	after := fs.Status()
	assert.Less(t, after.InodesFree, before.InodesFree)
}
