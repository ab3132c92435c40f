package ext2

import "fmt"

// newChildInode allocates an inode number and builds a fresh record with
// the given type, owned by the caller's current identity. It does not
// write the record; callers persist it with WriteInode.
func (fs *FileSystem) newChildInode(fileType FileType, perm uint16) (Ino, Inode, error) {
	ino, err := fs.AllocInode()
	if err != nil {
		return 0, Inode{}, err
	}
	if ino == 0 {
		return 0, Inode{}, ErrNoSpace
	}

	now := fs.now()
	inode := Inode{
		Ino: ino,
		Mode: Mode{
			FileType: fileType,
			Perm:     perm,
		},
		UID:        fs.Identity.UID,
		GID:        fs.Identity.GID,
		LinksCount: 1,
		ATime:      now,
		CTime:      now,
		MTime:      now,
	}
	return ino, inode, nil
}

// CreateFile creates a new, empty regular file at path. The parent
// directory must already exist and grant the caller write access.
func (fs *FileSystem) CreateFile(path string, perm uint16) (Ino, error) {
	if err := fs.RequireAuthenticated(); err != nil {
		return 0, err
	}

	parentIno, name, err := fs.SplitParent(path)
	if err != nil {
		return 0, fmt.Errorf("creating `%s`: %w", path, err)
	}
	if parentIno == 0 {
		return 0, fmt.Errorf("creating `%s`: %w", path, ErrNotFound{Path: path})
	}
	parent, err := fs.GetInode(parentIno)
	if err != nil {
		return 0, fmt.Errorf("creating `%s`: %w", path, err)
	}
	if !parent.IsDir() {
		return 0, fmt.Errorf("creating `%s`: %w", path, ErrNotADirectory{Ino: parentIno})
	}
	if err := fs.CheckPermission(parent, AccessWrite); err != nil {
		return 0, fmt.Errorf("creating `%s`: %w", path, err)
	}

	ino, inode, err := fs.newChildInode(FileTypeRegular, perm)
	if err != nil {
		return 0, fmt.Errorf("creating `%s`: %w", path, err)
	}
	if err := fs.WriteInode(&inode); err != nil {
		fs.FreeInode(ino)
		return 0, fmt.Errorf("creating `%s`: %w", path, err)
	}
	if err := fs.Insert(&parent, name, ino, FileTypeRegular); err != nil {
		fs.DeleteInode(ino)
		return 0, fmt.Errorf("creating `%s`: %w", path, err)
	}
	return ino, nil
}

// DeleteFile removes a regular file's directory entry and frees its
// inode and blocks. It refuses to delete directories; use Rmdir instead.
func (fs *FileSystem) DeleteFile(path string) error {
	if err := fs.RequireAuthenticated(); err != nil {
		return err
	}

	parentIno, name, err := fs.SplitParent(path)
	if err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	if parentIno == 0 {
		return fmt.Errorf("deleting `%s`: %w", path, ErrNotFound{Path: path})
	}
	parent, err := fs.GetInode(parentIno)
	if err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	if err := fs.CheckPermission(parent, AccessWrite); err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}

	childIno, err := fs.Lookup(&parent, name)
	if err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	if childIno == 0 {
		return fmt.Errorf("deleting `%s`: %w", path, ErrNotFound{Path: path})
	}
	child, err := fs.GetInode(childIno)
	if err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	if !child.IsRegular() {
		return fmt.Errorf("deleting `%s`: %w", path, ErrIsADirectory{Ino: childIno})
	}

	if err := fs.Remove(&parent, name); err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	if err := fs.DeleteInode(childIno); err != nil {
		return fmt.Errorf("deleting `%s`: %w", path, err)
	}
	return nil
}

// Mkdir creates a new, empty directory at path with a `.` entry pointing
// at itself and a `..` entry pointing at its parent, and links it into its
// parent.
func (fs *FileSystem) Mkdir(path string, perm uint16) (Ino, error) {
	if err := fs.RequireAuthenticated(); err != nil {
		return 0, err
	}

	parentIno, name, err := fs.SplitParent(path)
	if err != nil {
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}
	if parentIno == 0 {
		return 0, fmt.Errorf("making directory `%s`: %w", path, ErrNotFound{Path: path})
	}
	parent, err := fs.GetInode(parentIno)
	if err != nil {
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}
	if !parent.IsDir() {
		return 0, fmt.Errorf("making directory `%s`: %w", path, ErrNotADirectory{Ino: parentIno})
	}
	if err := fs.CheckPermission(parent, AccessWrite); err != nil {
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}

	ino, inode, err := fs.newChildInode(FileTypeDir, perm)
	if err != nil {
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}
	inode.LinksCount = 2
	if err := fs.initDirectoryBlock(&inode, ino, parentIno); err != nil {
		fs.FreeInode(ino)
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}
	if err := fs.WriteInode(&inode); err != nil {
		fs.FreeInode(ino)
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}
	if err := fs.Insert(&parent, name, ino, FileTypeDir); err != nil {
		fs.DeleteInode(ino)
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}

	parent.LinksCount++
	if err := fs.UpdateInode(&parent); err != nil {
		return 0, fmt.Errorf("making directory `%s`: %w", path, err)
	}
	return ino, nil
}

// Rmdir removes an empty directory (only `.` and `..`) and unlinks it
// from its parent.
func (fs *FileSystem) Rmdir(path string) error {
	if err := fs.RequireAuthenticated(); err != nil {
		return err
	}

	parentIno, name, err := fs.SplitParent(path)
	if err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if parentIno == 0 {
		return fmt.Errorf("removing directory `%s`: %w", path, ErrNotFound{Path: path})
	}
	parent, err := fs.GetInode(parentIno)
	if err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if err := fs.CheckPermission(parent, AccessWrite); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}

	childIno, err := fs.Lookup(&parent, name)
	if err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if childIno == 0 {
		return fmt.Errorf("removing directory `%s`: %w", path, ErrNotFound{Path: path})
	}
	child, err := fs.GetInode(childIno)
	if err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if !child.IsDir() {
		return fmt.Errorf("removing directory `%s`: %w", path, ErrNotADirectory{Ino: childIno})
	}

	empty, err := fs.IsEmpty(&child)
	if err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if !empty {
		return fmt.Errorf("removing directory `%s`: %w", path, ErrNotEmpty{Ino: childIno})
	}

	if err := fs.Remove(&parent, name); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if err := fs.DeleteInode(childIno); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}

	parent.LinksCount--
	if err := fs.UpdateInode(&parent); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	return nil
}

// Chdir resolves path and, if it names a directory, installs it as the
// caller's current working directory.
func (fs *FileSystem) Chdir(path string) error {
	if err := fs.RequireAuthenticated(); err != nil {
		return err
	}
	ino, err := fs.Resolve(path)
	if err != nil {
		return fmt.Errorf("changing directory to `%s`: %w", path, err)
	}
	inode, err := fs.GetInode(ino)
	if err != nil {
		return fmt.Errorf("changing directory to `%s`: %w", path, err)
	}
	if !inode.IsDir() {
		return fmt.Errorf("changing directory to `%s`: %w", path, ErrNotADirectory{Ino: ino})
	}
	fs.Identity.Cwd = ino
	return nil
}

// Chmod sets the low 12 mode bits (permission triplets + setuid/setgid/
// sticky) of the inode at path. The caller must own the inode.
func (fs *FileSystem) Chmod(path string, perm uint16) error {
	if err := fs.RequireAuthenticated(); err != nil {
		return err
	}
	ino, err := fs.Resolve(path)
	if err != nil {
		return fmt.Errorf("changing mode of `%s`: %w", path, err)
	}
	inode, err := fs.GetInode(ino)
	if err != nil {
		return fmt.Errorf("changing mode of `%s`: %w", path, err)
	}
	if fs.Identity.UID != inode.UID {
		return fmt.Errorf("changing mode of `%s`: %w", path, ErrPermissionDenied{Ino: ino, Required: AccessWrite})
	}

	mode, err := decodeMode(perm & 0x0fff | inode.Mode.FileType.encode())
	if err != nil {
		return fmt.Errorf("changing mode of `%s`: %w", path, err)
	}
	inode.Mode = mode
	inode.CTime = fs.now()
	return fs.UpdateInode(&inode)
}

// Chown reassigns an inode's owning uid/gid. Per spec.md §4.9, no
// additional authorisation is enforced beyond being logged in — this
// matches observed source behaviour.
func (fs *FileSystem) Chown(path string, uid, gid uint16) error {
	if err := fs.RequireAuthenticated(); err != nil {
		return err
	}
	ino, err := fs.Resolve(path)
	if err != nil {
		return fmt.Errorf("changing owner of `%s`: %w", path, err)
	}
	inode, err := fs.GetInode(ino)
	if err != nil {
		return fmt.Errorf("changing owner of `%s`: %w", path, err)
	}
	inode.UID = uid
	inode.GID = gid
	inode.CTime = fs.now()
	return fs.UpdateInode(&inode)
}

// Status summarises volume occupancy for the shell's `status` command.
type Status struct {
	BlocksTotal uint32
	BlocksFree  uint32
	InodesTotal uint32
	InodesFree  uint32
	OpenFiles   int
	Mounted     bool
}

// Status reports the current volume's occupancy counters.
func (fs *FileSystem) Status() Status {
	return Status{
		BlocksTotal: fs.Superblock.BlocksCount,
		BlocksFree:  fs.Superblock.FreeBlocksCount,
		InodesTotal: fs.Superblock.InodesCount,
		InodesFree:  fs.Superblock.FreeInodesCount,
		OpenFiles:   fs.OpenFileCount(),
		Mounted:     true,
	}
}
