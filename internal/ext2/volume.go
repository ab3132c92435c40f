package ext2

import (
	"fmt"
	"os"
)

// Volume is the block device abstraction every higher layer reads and
// writes through. Implementations are responsible for flushing every write
// before returning success.
type Volume interface {
	Read(offset uint64, buffer []byte) error
	Write(offset uint64, buffer []byte) error
}

// MemoryVolume backs a Volume with a plain byte slice. Useful for tests and
// for building a fresh image before it is ever written to disk.
type MemoryVolume struct {
	buf []byte
}

func NewMemoryVolume(capacity uint64) *MemoryVolume {
	return &MemoryVolume{buf: make([]byte, capacity)}
}

func (volume *MemoryVolume) Size() uint64 { return uint64(len(volume.buf)) }

func (volume *MemoryVolume) Read(offset uint64, buffer []byte) error {
	if offset+uint64(len(buffer)) > uint64(len(volume.buf)) {
		return fmt.Errorf("reading memory volume at `%#x`: %w", offset, ErrIOOutOfRange{
			Offset: offset,
			Length: uint64(len(buffer)),
			Size:   uint64(len(volume.buf)),
		})
	}
	copy(buffer, volume.buf[offset:])
	return nil
}

func (volume *MemoryVolume) Write(offset uint64, buffer []byte) error {
	if offset+uint64(len(buffer)) > uint64(len(volume.buf)) {
		return fmt.Errorf("writing memory volume at `%#x`: %w", offset, ErrIOOutOfRange{
			Offset: offset,
			Length: uint64(len(buffer)),
			Size:   uint64(len(volume.buf)),
		})
	}
	copy(volume.buf[offset:], buffer)
	return nil
}

// FileVolume backs a Volume with an on-disk image file.
type FileVolume struct {
	file *os.File
	size uint64
}

// OpenFileVolume opens an existing image file for reading and writing.
func OpenFileVolume(path string) (*FileVolume, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening volume `%s`: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stating volume `%s`: %w", path, err)
	}
	return &FileVolume{file: file, size: uint64(info.Size())}, nil
}

// CreateFileVolume creates a fresh image file of the given size, zeroed.
func CreateFileVolume(path string, size uint64) (*FileVolume, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating volume `%s`: %w", path, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("sizing volume `%s`: %w", path, err)
	}
	return &FileVolume{file: file, size: size}, nil
}

func (volume *FileVolume) Close() error {
	if err := volume.file.Close(); err != nil {
		return fmt.Errorf("closing volume: %w", err)
	}
	return nil
}

func (volume *FileVolume) Read(offset uint64, buffer []byte) error {
	if offset+uint64(len(buffer)) > volume.size {
		return fmt.Errorf("reading volume `%s` at `%#x`: %w", volume.file.Name(), offset, ErrIOOutOfRange{
			Offset: offset,
			Length: uint64(len(buffer)),
			Size:   volume.size,
		})
	}
	if _, err := volume.file.ReadAt(buffer, int64(offset)); err != nil {
		return fmt.Errorf(
			"reading volume `%s` at offset `%d`: %w",
			volume.file.Name(),
			offset,
			ErrIO{Cause: err},
		)
	}
	return nil
}

func (volume *FileVolume) Write(offset uint64, buffer []byte) error {
	if offset+uint64(len(buffer)) > volume.size {
		return fmt.Errorf("writing volume `%s` at `%#x`: %w", volume.file.Name(), offset, ErrIOOutOfRange{
			Offset: offset,
			Length: uint64(len(buffer)),
			Size:   volume.size,
		})
	}
	if _, err := volume.file.WriteAt(buffer, int64(offset)); err != nil {
		return fmt.Errorf(
			"writing volume `%s` at offset `%d`: %w",
			volume.file.Name(),
			offset,
			ErrIO{Cause: err},
		)
	}
	if err := volume.file.Sync(); err != nil {
		return fmt.Errorf(
			"flushing volume `%s`: %w",
			volume.file.Name(),
			ErrIO{Cause: err},
		)
	}
	return nil
}
