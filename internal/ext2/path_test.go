package ext2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAbsoluteAndRelative(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	subIno, err := fs.Mkdir("/a", 0755)
	require.NoError(t, err)
	nestedIno, err := fs.Mkdir("/a/b", 0755)
	require.NoError(t, err)

	resolved, err := fs.Resolve("/a/b")
	require.NoError(t, err)
	assert.Equal(t, nestedIno, resolved)

	require.NoError(t, fs.Chdir("/a"))
	resolved, err = fs.Resolve("b")
	require.NoError(t, err)
	assert.Equal(t, nestedIno, resolved)

	resolved, err = fs.Resolve(".")
	require.NoError(t, err)
	assert.Equal(t, subIno, resolved)
}

func TestResolveDotDotAtRootStaysAtRoot(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	resolved, err := fs.Resolve("/..")
	require.NoError(t, err)
	assert.Equal(t, RootIno, resolved)
}

func TestResolveSkipsEmptyComponents(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.Mkdir("/a", 0755)
	require.NoError(t, err)

	resolved, err := fs.Resolve("//a//")
	require.NoError(t, err)
	expected, err := fs.Resolve("/a")
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}

func TestResolveThroughNonDirectoryFails(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.CreateFile("/file", 0644)
	require.NoError(t, err)

	_, err = fs.Resolve("/file/nested")
	assert.ErrorAs(t, err, new(ErrNotADirectory))
}

func TestSplitParentMissingIntermediateIsZero(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	parent, last, err := fs.SplitParent("/missing/child")
	require.NoError(t, err)
	assert.Equal(t, Ino(0), parent)
	assert.Equal(t, "child", last)
}

func TestSplitParentResolvesExistingParent(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)

	parent, last, err := fs.SplitParent("/newfile")
	require.NoError(t, err)
	assert.Equal(t, RootIno, parent)
	assert.Equal(t, "newfile", last)
}
