package ext2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnauthenticatedCallsFail(t *testing.T) {
	fs := mustFormat(t)
	_, err := fs.CreateFile("/x", 0644)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCheckPermissionTripletSelection(t *testing.T) {
	fs := mustFormat(t)

	// owner rwx, group r-x, other ---
	inode := Inode{
		Ino:  42,
		UID:  10,
		GID:  20,
		Mode: Mode{Perm: 0750},
	}

	cases := []struct {
		name     string
		uid, gid uint16
		required AccessMode
		wantErr  bool
	}{
		{"owner full access", 10, 99, AccessRead | AccessWrite | AccessExecute, false},
		{"group read+exec", 99, 20, AccessRead | AccessExecute, false},
		{"group denied write", 99, 20, AccessWrite, true},
		{"other denied all", 99, 99, AccessRead, true},
		{"owner beats group when both match", 10, 20, AccessWrite, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fs.Login("tester", c.uid, c.gid)
			err := fs.CheckPermission(inode, c.required)
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPermissionAsymmetricTriplet(t *testing.T) {
	fs := mustFormat(t)

	// owner rw-, group r--, other --x
	inode := Inode{
		Ino:  43,
		UID:  10,
		GID:  20,
		Mode: Mode{Perm: 0641},
	}

	cases := []struct {
		name     string
		uid, gid uint16
		required AccessMode
		wantErr  bool
	}{
		{"owner read+write", 10, 99, AccessRead | AccessWrite, false},
		{"owner denied execute", 10, 99, AccessExecute, true},
		{"group read only", 99, 20, AccessRead, false},
		{"group denied write", 99, 20, AccessWrite, true},
		{"other execute only", 99, 99, AccessExecute, false},
		{"other denied read", 99, 99, AccessRead, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fs.Login("tester", c.uid, c.gid)
			err := fs.CheckPermission(inode, c.required)
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPermissionNoSuperuserBypass(t *testing.T) {
	fs := mustFormat(t)
	inode := Inode{Ino: 7, UID: 55, GID: 55, Mode: Mode{Perm: 0000}}

	fs.Login("root", 0, 0)
	err := fs.CheckPermission(inode, AccessRead)
	assert.Error(t, err, "uid 0 must not bypass the permission check")
}

func TestLoginLogoutResetsCwd(t *testing.T) {
	fs := mustFormat(t)
	fs.Login("root", 0, 0)
	_, err := fs.Mkdir("/sub", 0755)
	require.NoError(t, err)
	require.NoError(t, fs.Chdir("/sub"))
	fs.Logout()
	assert.False(t, fs.Identity.LoggedIn)

	fs.Login("root", 0, 0)
	assert.Equal(t, RootIno, fs.Identity.Cwd)
}
