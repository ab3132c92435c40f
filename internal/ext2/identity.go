package ext2

// AccessMode is a set of requested permission bits, per spec.md §4.9.
type AccessMode uint8

const (
	AccessExecute AccessMode = 1 << iota
	AccessWrite
	AccessRead
)

func (mode AccessMode) String() string {
	var b [3]byte
	b[0], b[1], b[2] = '-', '-', '-'
	if mode&AccessRead != 0 {
		b[0] = 'r'
	}
	if mode&AccessWrite != 0 {
		b[1] = 'w'
	}
	if mode&AccessExecute != 0 {
		b[2] = 'x'
	}
	return string(b[:])
}

// Identity is the currently-logged-in caller's state: who they are and
// where they are. There is no provision for concurrent sessions — one
// FileSystem handle, one identity (spec.md §5's single-threaded model).
type Identity struct {
	LoggedIn bool
	UID      uint16
	GID      uint16
	Username string
	Cwd      Ino
}

// Login installs identity on success; it never consults the volume
// itself. Callers authenticate against an external user store (see
// internal/users) and pass the resolved uid/gid/username here.
func (fs *FileSystem) Login(username string, uid, gid uint16) {
	fs.Identity = Identity{
		LoggedIn: true,
		UID:      uid,
		GID:      gid,
		Username: username,
		Cwd:      RootIno,
	}
}

// Logout clears the installed identity.
func (fs *FileSystem) Logout() {
	fs.Identity = Identity{}
}

// RequireAuthenticated fails with ErrNotAuthenticated if no identity is
// installed, per spec.md §4.9 ("not-logged-in callers uniformly fail").
func (fs *FileSystem) RequireAuthenticated() error {
	if !fs.Identity.LoggedIn {
		return ErrNotAuthenticated
	}
	return nil
}

// CheckPermission selects the owner/group/other triplet per spec.md
// §4.9's rule — owner match beats group match beats other, with no
// uid-0 bypass — and permits iff every requested bit is set in the
// selected triplet.
func (fs *FileSystem) CheckPermission(inode Inode, required AccessMode) error {
	if err := fs.RequireAuthenticated(); err != nil {
		return err
	}

	var triplet AccessMode
	switch {
	case fs.Identity.UID == inode.UID:
		triplet = AccessMode((inode.Mode.Perm >> 6) & 0x7)
	case fs.Identity.GID == inode.GID:
		triplet = AccessMode((inode.Mode.Perm >> 3) & 0x7)
	default:
		triplet = AccessMode(inode.Mode.Perm & 0x7)
	}

	if triplet&required != required {
		return ErrPermissionDenied{Ino: inode.Ino, Required: required}
	}
	return nil
}
