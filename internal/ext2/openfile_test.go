package ext2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCloseReadWrite(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.CreateFile("/f", 0644)
	require.NoError(t, err)

	fd, err := fs.Open("/f", OpenReadWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, fs.OpenFileCount())

	n, err := fs.WriteFD(fd, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	// Offset has advanced past what was written; reopen to read from 0.
	require.NoError(t, fs.Close(fd))
	fd, err = fs.Open("/f", OpenReadOnly)
	require.NoError(t, err)

	buf := make([]byte, 5)
	n, err = fs.ReadFD(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
	assert.Equal(t, "hello", string(buf))

	require.NoError(t, fs.Close(fd))
	assert.Equal(t, 0, fs.OpenFileCount())
}

func TestOpenRejectsDirectories(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.Mkdir("/d", 0755)
	require.NoError(t, err)

	_, err = fs.Open("/d", OpenReadOnly)
	assert.ErrorAs(t, err, new(ErrNotARegularFile))
}

func TestWriteFailsOnReadOnlyHandle(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.CreateFile("/f", 0644)
	require.NoError(t, err)

	fd, err := fs.Open("/f", OpenReadOnly)
	require.NoError(t, err)

	_, err = fs.WriteFD(fd, []byte("nope"))
	assert.ErrorAs(t, err, new(ErrBadFD))
}

func TestCloseRejectsUnknownFD(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	err := fs.Close(999)
	assert.ErrorAs(t, err, new(ErrBadFD))
}

func TestOpenTableExhaustion(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	_, err := fs.CreateFile("/shared", 0644)
	require.NoError(t, err)

	var fds []int
	for i := 0; i < MaxOpenFiles; i++ {
		fd, err := fs.Open("/shared", OpenReadOnly)
		require.NoError(t, err)
		fds = append(fds, fd)
	}

	_, err = fs.Open("/shared", OpenReadOnly)
	assert.Error(t, err, "opening past MaxOpenFiles should fail")
}
