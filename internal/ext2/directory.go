package ext2

import "fmt"

// dirEntryHeaderSize is the fixed portion of a directory entry: 4 bytes
// inode number, 2 bytes record length, 1 byte name length, 1 byte type hint.
const dirEntryHeaderSize = 8

// DirEntry is the decoded form of one variable-length directory record.
type DirEntry struct {
	Ino     Ino
	RecLen  uint16
	Type    DirEntryType
	Name    string
}

func align4(n int) int { return (n + 3) &^ 3 }

func decodeDirEntry(b []byte) DirEntry {
	nameLen := int(b[6])
	return DirEntry{
		Ino:    Ino(decodeUint32(b[0], b[1], b[2], b[3])),
		RecLen: decodeUint16(b[4], b[5]),
		Type:   DirEntryType(b[7]),
		Name:   string(b[dirEntryHeaderSize : dirEntryHeaderSize+nameLen]),
	}
}

func encodeDirEntry(b []byte, entry DirEntry) {
	encodeUint32(uint32(entry.Ino), b[0:])
	encodeUint16(entry.RecLen, b[4:])
	b[6] = byte(len(entry.Name))
	b[7] = byte(entry.Type)
	copy(b[dirEntryHeaderSize:], entry.Name)
}

// initDirectoryBlock allocates a directory inode's first data block and
// writes its "." entry (pointing at self) and ".." entry (pointing at
// parent); every directory, not just root, gets this pair. For the root
// directory both entries point at the root itself.
func (fs *FileSystem) initDirectoryBlock(dir *Inode, self, parent Ino) error {
	block, err := fs.AllocBlock()
	if err != nil {
		return fmt.Errorf("initializing directory block: %w", err)
	}
	if block == 0 {
		return fmt.Errorf("initializing directory block: %w", ErrNoSpace)
	}

	buf := make([]byte, BlockSize)
	dotLen := align4(dirEntryHeaderSize + 1)
	dotDotLen := int(BlockSize) - dotLen

	encodeDirEntry(buf[:dotLen], DirEntry{
		Ino: self, RecLen: uint16(dotLen), Type: DirEntryTypeDir, Name: ".",
	})
	encodeDirEntry(buf[dotLen:], DirEntry{
		Ino: parent, RecLen: uint16(dotDotLen), Type: DirEntryTypeDir, Name: "..",
	})

	if err := fs.Volume.Write(block*BlockSize, buf); err != nil {
		return fmt.Errorf("initializing directory block: %w", err)
	}

	dir.Block[0] = uint32(block)
	dir.Size = uint32(BlockSize)
	dir.Blocks = 1
	return nil
}

// forEachDirBlock calls visit with the physical block number of every
// logical block currently allocated to the directory.
func (fs *FileSystem) forEachDirBlock(dir *Inode, visit func(physical uint64) (bool, error)) error {
	numBlocks := (uint64(dir.Size) + BlockSize - 1) / BlockSize
	for i := uint64(0); i < numBlocks; i++ {
		physical, ok, err := fs.GetInodeBlock(dir, i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		stop, err := visit(physical)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// Lookup scans dir's entries for an exact byte-for-byte name match,
// returning the child inode number or 0 if not found.
func (fs *FileSystem) Lookup(dir *Inode, name string) (Ino, error) {
	var found Ino
	err := fs.forEachDirBlock(dir, func(physical uint64) (bool, error) {
		buf := make([]byte, BlockSize)
		if err := fs.Volume.Read(physical*BlockSize, buf); err != nil {
			return true, fmt.Errorf("reading directory block: %w", err)
		}
		for pos := 0; pos < len(buf); {
			entry := decodeDirEntry(buf[pos:])
			if entry.RecLen == 0 {
				break
			}
			if entry.Ino != 0 && entry.Name == name {
				found = entry.Ino
				return true, nil
			}
			pos += int(entry.RecLen)
		}
		return false, nil
	})
	if err != nil {
		return 0, fmt.Errorf("looking up `%s`: %w", name, err)
	}
	return found, nil
}

// Insert adds a new directory entry for name -> child, reusing a tombstone
// or splitting a record's slack space if one fits, else appending a new
// block. Fails with ErrExists if name already names a live entry.
func (fs *FileSystem) Insert(dir *Inode, name string, child Ino, fileType FileType) error {
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("inserting `%s`: %w", name, ErrInvalidArgument{Reason: "name length out of range"})
	}
	existing, err := fs.Lookup(dir, name)
	if err != nil {
		return fmt.Errorf("inserting `%s`: %w", name, err)
	}
	if existing != 0 {
		return fmt.Errorf("inserting `%s`: %w", name, ErrExists{Name: name})
	}
	needed := uint16(align4(dirEntryHeaderSize + len(name)))
	typeHint := dirEntryTypeFor(fileType)

	inserted := false
	err = fs.forEachDirBlock(dir, func(physical uint64) (bool, error) {
		buf := make([]byte, BlockSize)
		if err := fs.Volume.Read(physical*BlockSize, buf); err != nil {
			return true, fmt.Errorf("reading directory block: %w", err)
		}

		for pos := 0; pos < len(buf); {
			entry := decodeDirEntry(buf[pos:])
			if entry.RecLen == 0 {
				break
			}

			if entry.Ino != 0 && entry.Name == name {
				return true, ErrExists{Name: name}
			}

			if entry.Ino == 0 && entry.RecLen >= needed {
				encodeDirEntry(buf[pos:pos+int(entry.RecLen)], DirEntry{
					Ino: child, RecLen: entry.RecLen, Type: typeHint, Name: name,
				})
				inserted = true
			} else if entry.Ino != 0 {
				minLen := uint16(align4(dirEntryHeaderSize + len(entry.Name)))
				if entry.RecLen-minLen >= needed {
					tailOffset := pos + int(minLen)
					tailLen := entry.RecLen - minLen
					encodeDirEntry(buf[pos:pos+int(minLen)], DirEntry{
						Ino: entry.Ino, RecLen: minLen, Type: entry.Type, Name: entry.Name,
					})
					encodeDirEntry(buf[tailOffset:tailOffset+int(tailLen)], DirEntry{
						Ino: child, RecLen: tailLen, Type: typeHint, Name: name,
					})
					inserted = true
				}
			}

			if inserted {
				if err := fs.Volume.Write(physical*BlockSize, buf); err != nil {
					return true, fmt.Errorf("writing directory block: %w", err)
				}
				return true, nil
			}

			pos += int(entry.RecLen)
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("inserting `%s`: %w", name, err)
	}
	if inserted {
		return nil
	}

	// No existing block had room; append a fresh data block with one
	// spanning tombstone record and retry.
	numBlocks := (uint64(dir.Size) + BlockSize - 1) / BlockSize
	block, err := fs.AllocBlock()
	if err != nil {
		return fmt.Errorf("inserting `%s`: %w", name, err)
	}
	if block == 0 {
		return fmt.Errorf("inserting `%s`: %w", name, ErrNoSpace)
	}
	buf := make([]byte, BlockSize)
	encodeDirEntry(buf, DirEntry{Ino: 0, RecLen: uint16(BlockSize)})
	if err := fs.Volume.Write(block*BlockSize, buf); err != nil {
		fs.FreeBlock(block)
		return fmt.Errorf("inserting `%s`: %w", name, err)
	}
	if err := fs.SetInodeBlock(dir, numBlocks, block); err != nil {
		fs.FreeBlock(block)
		return fmt.Errorf("inserting `%s`: %w", name, err)
	}
	dir.Size = uint32((numBlocks + 1) * BlockSize)
	dir.Blocks = uint32(numBlocks + 1)
	if err := fs.UpdateInode(dir); err != nil {
		return fmt.Errorf("inserting `%s`: %w", name, err)
	}

	return fs.Insert(dir, name, child, fileType)
}

// Remove tombstones the live record named name. It is not coalesced with
// neighbouring records.
func (fs *FileSystem) Remove(dir *Inode, name string) error {
	found := false
	err := fs.forEachDirBlock(dir, func(physical uint64) (bool, error) {
		buf := make([]byte, BlockSize)
		if err := fs.Volume.Read(physical*BlockSize, buf); err != nil {
			return true, fmt.Errorf("reading directory block: %w", err)
		}
		for pos := 0; pos < len(buf); {
			entry := decodeDirEntry(buf[pos:])
			if entry.RecLen == 0 {
				break
			}
			if entry.Ino != 0 && entry.Name == name {
				buf[pos] = 0
				buf[pos+1] = 0
				buf[pos+2] = 0
				buf[pos+3] = 0
				if err := fs.Volume.Write(physical*BlockSize, buf); err != nil {
					return true, fmt.Errorf("writing directory block: %w", err)
				}
				found = true
				return true, nil
			}
			pos += int(entry.RecLen)
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	if !found {
		return fmt.Errorf("removing `%s`: %w", name, ErrNotFound{Path: name})
	}
	return nil
}

// DirListEntry is one live record yielded by List.
type DirListEntry struct {
	Name  string
	Ino   Ino
	Type  DirEntryType
	Size  uint32
	Mode  Mode
	UID   uint16
	GID   uint16
	MTime uint32
}

// List emits every live record in dir in traversal order, enriched with
// the child inode's attributes.
func (fs *FileSystem) List(dir *Inode) ([]DirListEntry, error) {
	var out []DirListEntry
	err := fs.forEachDirBlock(dir, func(physical uint64) (bool, error) {
		buf := make([]byte, BlockSize)
		if err := fs.Volume.Read(physical*BlockSize, buf); err != nil {
			return true, fmt.Errorf("reading directory block: %w", err)
		}
		for pos := 0; pos < len(buf); {
			entry := decodeDirEntry(buf[pos:])
			if entry.RecLen == 0 {
				break
			}
			if entry.Ino != 0 {
				child, err := fs.GetInode(entry.Ino)
				if err != nil {
					return true, fmt.Errorf("listing directory: %w", err)
				}
				out = append(out, DirListEntry{
					Name:  entry.Name,
					Ino:   entry.Ino,
					Type:  entry.Type,
					Size:  child.Size,
					Mode:  child.Mode,
					UID:   child.UID,
					GID:   child.GID,
					MTime: child.MTime,
				})
			}
			pos += int(entry.RecLen)
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	return out, nil
}

// IsEmpty reports whether dir contains only "." and "..".
func (fs *FileSystem) IsEmpty(dir *Inode) (bool, error) {
	entries, err := fs.List(dir)
	if err != nil {
		return false, fmt.Errorf("checking directory empty: %w", err)
	}
	for _, entry := range entries {
		if entry.Name != "." && entry.Name != ".." {
			return false, nil
		}
	}
	return true, nil
}
