package ext2

import "fmt"

// ErrIO wraps an underlying I/O fault from the host filesystem.
type ErrIO struct{ Cause error }

func (err ErrIO) Error() string { return fmt.Sprintf("i/o error: %v", err.Cause) }
func (err ErrIO) Unwrap() error { return err.Cause }

// ErrIOOutOfRange is returned when an access falls outside the volume.
type ErrIOOutOfRange struct {
	Offset, Length, Size uint64
}

func (err ErrIOOutOfRange) Error() string {
	return fmt.Sprintf(
		"access at `%#x` of length `%d` is out of range for volume of size `%d`",
		err.Offset,
		err.Length,
		err.Size,
	)
}

// ErrBadMagic is returned when a superblock's magic number doesn't match.
type ErrBadMagic struct{ Found uint16 }

func (err ErrBadMagic) Error() string {
	return fmt.Sprintf("bad magic: wanted `%#04x`; found `%#04x`", SuperblockMagic, err.Found)
}

// ErrNotMounted is returned by any operation attempted before mount.
var ErrNotMounted = fmt.Errorf("volume not mounted")

// ErrAlreadyMounted is the error kind for mounting over an already-mounted
// volume. Mount keeps no record of earlier mounts and does not return it.
var ErrAlreadyMounted = fmt.Errorf("volume already mounted")

// ErrNotAuthenticated is returned when an operation requires a logged-in
// identity and none is installed.
var ErrNotAuthenticated = fmt.Errorf("not authenticated")

// ErrPermissionDenied is returned when a mode check fails.
type ErrPermissionDenied struct {
	Ino      Ino
	Required AccessMode
}

func (err ErrPermissionDenied) Error() string {
	return fmt.Sprintf("permission denied: inode `%d` requires `%s`", err.Ino, err.Required)
}

// ErrNotFound is returned when a path doesn't resolve to an inode.
type ErrNotFound struct{ Path string }

func (err ErrNotFound) Error() string { return fmt.Sprintf("not found: `%s`", err.Path) }

// ErrExists is returned when a name collides with a live directory entry.
type ErrExists struct{ Name string }

func (err ErrExists) Error() string { return fmt.Sprintf("already exists: `%s`", err.Name) }

// ErrNotADirectory is returned when a path component that must be a
// directory isn't one.
type ErrNotADirectory struct{ Ino Ino }

func (err ErrNotADirectory) Error() string {
	return fmt.Sprintf("inode `%d` is not a directory", err.Ino)
}

// ErrIsADirectory is returned when an operation requiring a regular file is
// given a directory.
type ErrIsADirectory struct{ Ino Ino }

func (err ErrIsADirectory) Error() string {
	return fmt.Sprintf("inode `%d` is a directory", err.Ino)
}

// ErrNotARegularFile is returned when an operation requiring a regular
// file is given some other type.
type ErrNotARegularFile struct{ Ino Ino }

func (err ErrNotARegularFile) Error() string {
	return fmt.Sprintf("inode `%d` is not a regular file", err.Ino)
}

// ErrNotEmpty is returned by Rmdir when the target directory holds more
// than `.` and `..`.
type ErrNotEmpty struct{ Ino Ino }

func (err ErrNotEmpty) Error() string {
	return fmt.Sprintf("directory `%d` is not empty", err.Ino)
}

// ErrNoSpace is returned when the block or inode bitmap is exhausted.
var ErrNoSpace = fmt.Errorf("no space left on volume")

// ErrInvalidArgument is returned for malformed input that isn't a path or
// FD problem (bad flags, bad mode bits, negative sizes).
type ErrInvalidArgument struct{ Reason string }

func (err ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", err.Reason)
}

// ErrBadFD is returned when a file descriptor doesn't name an open slot, or
// names one opened with an incompatible access mode.
type ErrBadFD struct{ FD int }

func (err ErrBadFD) Error() string { return fmt.Sprintf("bad file descriptor: `%d`", err.FD) }

// ErrRangeError is returned when a logical block index exceeds what
// single-indirection can address.
type ErrRangeError struct{ LogicalIndex uint64 }

func (err ErrRangeError) Error() string {
	return fmt.Sprintf("logical block index `%d` is out of range", err.LogicalIndex)
}

// ErrInvalidFileType is returned when an inode's on-disk type nibble isn't
// one this simulator understands.
type ErrInvalidFileType struct{ Found uint16 }

func (err ErrInvalidFileType) Error() string {
	return fmt.Sprintf("invalid file type nibble: `%#x`", err.Found)
}
