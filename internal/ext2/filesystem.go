package ext2

import "fmt"

// cacheLimit bounds the in-memory inode cache the way the teacher's
// RefitInodeCache does, before flushing the least-recently-touched entry.
const cacheLimit = 16

// FileSystem is the single, process-wide mounted-volume handle every
// operation is called against explicitly (spec.md §9's "concentrate it in
// one opaque handle" design note).
type FileSystem struct {
	Volume          Volume
	Superblock      Superblock
	SuperblockDirty bool
	BlockBitmap     Bitmap
	InodeBitmap     Bitmap

	InodeCache map[Ino]Inode
	DirtyInos  map[Ino]struct{}
	ReusedInos map[Ino]struct{}
	CacheQueue Ring

	OpenFiles []OpenFile
	nextFD    int

	Identity Identity
}

func (fs *FileSystem) pointersPerBlock() uint64 { return BlockSize / 4 }

// GetInode fetches an inode record, preferring the in-memory cache.
func (fs *FileSystem) GetInode(ino Ino) (Inode, error) {
	if inode, found := fs.InodeCache[ino]; found {
		fs.ReusedInos[ino] = struct{}{}
		return inode, nil
	}

	inode, err := fs.ReadInode(ino)
	if err != nil {
		return Inode{}, fmt.Errorf("fetching inode `%d`: %w", ino, err)
	}

	fs.InodeCache[ino] = inode
	fs.CacheQueue.PushBack(ino)
	if err := fs.refitInodeCache(); err != nil {
		return Inode{}, fmt.Errorf("fetching inode `%d`: %w", ino, err)
	}
	return inode, nil
}

// ReadInode reads inode n's record directly from the inode table,
// bypassing the cache. Reads of an unallocated inode succeed and return
// the zeroed record, per spec.md §4.4.
func (fs *FileSystem) ReadInode(ino Ino) (Inode, error) {
	offset := fs.locateInode(ino)
	var buf [InodeBufferSize]byte
	if err := fs.Volume.Read(offset, buf[:]); err != nil {
		return Inode{}, fmt.Errorf("reading inode `%d`: %w", ino, err)
	}
	inode, err := DecodeInode(ino, &buf)
	if err != nil {
		return Inode{}, fmt.Errorf("reading inode `%d`: %w", ino, err)
	}
	return inode, nil
}

// WriteInode writes the full inode record for inode.Ino.
func (fs *FileSystem) WriteInode(inode *Inode) error {
	offset := fs.locateInode(inode.Ino)
	var buf [InodeBufferSize]byte
	inode.Encode(&buf)
	if err := fs.Volume.Write(offset, buf[:]); err != nil {
		return fmt.Errorf("writing inode `%d`: %w", inode.Ino, err)
	}
	return nil
}

func (fs *FileSystem) locateInode(ino Ino) uint64 {
	return InodeTableStartBlock*BlockSize + uint64(ino-1)*uint64(fs.Superblock.InodeSize)
}

// inodeTableBlocks returns the number of blocks the inode table occupies:
// ceil(NI*SI/B).
func inodeTableBlocks() uint64 {
	total := uint64(InodesCount) * uint64(InodeSize)
	return (total + BlockSize - 1) / BlockSize
}

// UpdateInode stores inode in the cache and marks it dirty, adding it to
// the cache first if it isn't already there; the record reaches disk when
// it is evicted or flushed (FlushIno/FlushAll), not immediately. This folds
// the read-modify-write pattern spec.md §9 calls out into a single
// cache-aware mutation.
func (fs *FileSystem) UpdateInode(inode *Inode) error {
	fs.DirtyInos[inode.Ino] = struct{}{}
	if _, exists := fs.InodeCache[inode.Ino]; exists {
		fs.InodeCache[inode.Ino] = *inode
		fs.ReusedInos[inode.Ino] = struct{}{}
		return nil
	}
	fs.InodeCache[inode.Ino] = *inode
	fs.CacheQueue.PushBack(inode.Ino)
	if err := fs.refitInodeCache(); err != nil {
		return fmt.Errorf("updating inode `%d`: %w", inode.Ino, err)
	}
	return nil
}

func (fs *FileSystem) refitInodeCache() error {
	for len(fs.InodeCache) > cacheLimit {
		flushed := false
		for {
			usedIno, ok := fs.CacheQueue.PopFront()
			if !ok {
				break
			}
			if _, exists := fs.ReusedInos[usedIno]; exists {
				delete(fs.ReusedInos, usedIno)
				fs.CacheQueue.PushBack(usedIno)
			} else {
				if err := fs.FlushIno(usedIno); err != nil {
					return fmt.Errorf("refitting inode cache: %w", err)
				}
				flushed = true
				break
			}
		}
		if !flushed {
			for ino := range fs.InodeCache {
				if err := fs.FlushIno(ino); err != nil {
					return fmt.Errorf("refitting inode cache: %w", err)
				}
				break
			}
		}
	}
	return nil
}

// FlushIno writes inode ino through to disk if dirty, then evicts it from
// the cache.
func (fs *FileSystem) FlushIno(ino Ino) error {
	inode, exists := fs.InodeCache[ino]
	if !exists {
		return nil
	}
	delete(fs.InodeCache, ino)
	delete(fs.ReusedInos, ino)
	if _, dirty := fs.DirtyInos[ino]; dirty {
		delete(fs.DirtyInos, ino)
		if err := fs.WriteInode(&inode); err != nil {
			return fmt.Errorf("flushing inode `%d`: %w", ino, err)
		}
	}
	return nil
}

// FlushAll writes every dirty cached inode and the superblock through to
// disk. Called by Unmount.
func (fs *FileSystem) FlushAll() error {
	for ino := range fs.DirtyInos {
		if err := fs.FlushIno(ino); err != nil {
			return fmt.Errorf("flushing filesystem: %w", err)
		}
	}
	if err := fs.FlushSuperblock(); err != nil {
		return fmt.Errorf("flushing filesystem: %w", err)
	}
	if err := fs.flushBitmaps(); err != nil {
		return fmt.Errorf("flushing filesystem: %w", err)
	}
	return nil
}

// FlushSuperblock writes the superblock through to disk if dirty.
func (fs *FileSystem) FlushSuperblock() error {
	if !fs.SuperblockDirty {
		return nil
	}
	var buf [SuperblockSize]byte
	fs.Superblock.Encode(&buf)
	if err := fs.Volume.Write(SuperblockBlock*BlockSize, buf[:]); err != nil {
		return fmt.Errorf("flushing superblock: %w", err)
	}
	fs.SuperblockDirty = false
	return nil
}

func (fs *FileSystem) flushBitmaps() error {
	if err := fs.Volume.Write(BlockBitmapBlock*BlockSize, fs.BlockBitmap); err != nil {
		return fmt.Errorf("flushing block bitmap: %w", err)
	}
	if err := fs.Volume.Write(InodeBitmapBlock*BlockSize, fs.InodeBitmap); err != nil {
		return fmt.Errorf("flushing inode bitmap: %w", err)
	}
	return nil
}

// GetInodeBlock resolves a logical block index to a physical block number.
// ok is false for holes (unmapped logical blocks).
func (fs *FileSystem) GetInodeBlock(inode *Inode, logicalIndex uint64) (uint64, bool, error) {
	pos := InodeBlockToPos(logicalIndex, fs.pointersPerBlock())
	switch pos.Level {
	case PosLevel0:
		block := uint64(inode.Block[pos.Data])
		return block, block != 0, nil
	case PosLevel1:
		indirect := uint64(inode.Block[12])
		if indirect == 0 {
			return 0, false, nil
		}
		block, err := fs.readIndirectEntry(indirect, pos.Data)
		if err != nil {
			return 0, false, fmt.Errorf(
				"getting block `%d` for inode `%d`: %w",
				logicalIndex,
				inode.Ino,
				err,
			)
		}
		return block, block != 0, nil
	default:
		return 0, false, fmt.Errorf(
			"getting block `%d` for inode `%d`: %w",
			logicalIndex,
			inode.Ino,
			ErrRangeError{LogicalIndex: logicalIndex},
		)
	}
}

// SetInodeBlock writes a physical block number into the pointer structure
// at logicalIndex, allocating the indirect block on demand. If allocating
// the indirect block fails, no state changes.
func (fs *FileSystem) SetInodeBlock(inode *Inode, logicalIndex uint64, physicalBlock uint64) error {
	pos := InodeBlockToPos(logicalIndex, fs.pointersPerBlock())
	switch pos.Level {
	case PosLevel0:
		inode.Block[pos.Data] = uint32(physicalBlock)
		return fs.UpdateInode(inode)
	case PosLevel1:
		if inode.Block[12] == 0 {
			block, err := fs.AllocBlock()
			if err != nil {
				return fmt.Errorf("allocating indirect block: %w", err)
			}
			if block == 0 {
				return fmt.Errorf("allocating indirect block: %w", ErrNoSpace)
			}
			var zero [BlockSize]byte
			if err := fs.Volume.Write(block*BlockSize, zero[:]); err != nil {
				fs.FreeBlock(block)
				return fmt.Errorf("zeroing indirect block: %w", err)
			}
			inode.Block[12] = uint32(block)
		}
		if err := fs.writeIndirectEntry(uint64(inode.Block[12]), pos.Data, physicalBlock); err != nil {
			return fmt.Errorf(
				"setting block `%d` for inode `%d`: %w",
				logicalIndex,
				inode.Ino,
				err,
			)
		}
		return fs.UpdateInode(inode)
	default:
		return fmt.Errorf(
			"setting block `%d` for inode `%d`: %w",
			logicalIndex,
			inode.Ino,
			ErrRangeError{LogicalIndex: logicalIndex},
		)
	}
}

func (fs *FileSystem) readIndirectEntry(indirectBlock, entry uint64) (uint64, error) {
	var b [4]byte
	offset := indirectBlock*BlockSize + entry*4
	if err := fs.Volume.Read(offset, b[:]); err != nil {
		return 0, fmt.Errorf("reading indirect block `%d` at entry `%d`: %w", indirectBlock, entry, err)
	}
	return uint64(decodeUint32(b[0], b[1], b[2], b[3])), nil
}

func (fs *FileSystem) writeIndirectEntry(indirectBlock, entry, value uint64) error {
	var b [4]byte
	encodeUint32(uint32(value), b[:])
	offset := indirectBlock*BlockSize + entry*4
	if err := fs.Volume.Write(offset, b[:]); err != nil {
		return fmt.Errorf("writing indirect block `%d` at entry `%d`: %w", indirectBlock, entry, err)
	}
	return nil
}

// ReadInodeData reads up to len(b) bytes starting at offset, clamped to
// the inode's size; holes read as zero. Returns the number of bytes
// produced and updates atime if any bytes were read.
func (fs *FileSystem) ReadInodeData(inode *Inode, offset uint64, b []byte) (uint64, error) {
	if offset >= uint64(inode.Size) {
		return 0, nil
	}
	maxLength := uint64(inode.Size) - offset
	if uint64(len(b)) < maxLength {
		maxLength = uint64(len(b))
	}

	var produced uint64
	for produced < maxLength {
		logicalIndex := (offset + produced) / BlockSize
		blockOffset := (offset + produced) % BlockSize
		chunkLength := BlockSize - blockOffset
		if remaining := maxLength - produced; chunkLength > remaining {
			chunkLength = remaining
		}

		physical, ok, err := fs.GetInodeBlock(inode, logicalIndex)
		if err != nil {
			return produced, fmt.Errorf("reading inode data: %w", err)
		}
		dst := b[produced : produced+chunkLength]
		if !ok {
			for i := range dst {
				dst[i] = 0
			}
		} else if err := fs.Volume.Read(physical*BlockSize+blockOffset, dst); err != nil {
			return produced, fmt.Errorf("reading inode data: %w", err)
		}
		produced += chunkLength
	}

	if produced > 0 {
		inode.ATime = fs.now()
		if err := fs.UpdateInode(inode); err != nil {
			return produced, fmt.Errorf("updating atime: %w", err)
		}
	}
	return produced, nil
}

// WriteInodeData writes b at offset, allocating blocks on demand. On
// allocation failure mid-write it stops and returns the partial count;
// bytes already copied remain persisted, per spec.md §4.6.
func (fs *FileSystem) WriteInodeData(inode *Inode, offset uint64, b []byte) (uint64, error) {
	var written uint64
	for written < uint64(len(b)) {
		logicalIndex := (offset + written) / BlockSize
		blockOffset := (offset + written) % BlockSize
		chunkLength := BlockSize - blockOffset
		if remaining := uint64(len(b)) - written; chunkLength > remaining {
			chunkLength = remaining
		}

		physical, ok, err := fs.GetInodeBlock(inode, logicalIndex)
		if err != nil {
			return written, fmt.Errorf("writing inode data: %w", err)
		}
		if !ok {
			physical, err = fs.AllocBlock()
			if err != nil {
				return written, fmt.Errorf("writing inode data: %w", err)
			}
			if physical == 0 {
				return written, nil
			}
			if err := fs.SetInodeBlock(inode, logicalIndex, physical); err != nil {
				fs.FreeBlock(physical)
				return written, fmt.Errorf("writing inode data: %w", err)
			}
		}

		src := b[written : written+chunkLength]
		if err := fs.Volume.Write(physical*BlockSize+blockOffset, src); err != nil {
			return written, fmt.Errorf("writing inode data: %w", err)
		}
		written += chunkLength
	}

	end := offset + written
	if end > uint64(inode.Size) {
		inode.Size = uint32(end)
		inode.Blocks = uint32((uint64(inode.Size) + BlockSize - 1) / BlockSize)
	}
	inode.MTime = fs.now()
	inode.CTime = fs.now()
	if err := fs.UpdateInode(inode); err != nil {
		return written, fmt.Errorf("updating inode after write: %w", err)
	}
	return written, nil
}

// TruncateInode shortens an inode to length bytes, freeing every block
// whose logical index falls at or past the new end. Extending via
// truncate is a no-op, per spec.md §4.6.
func (fs *FileSystem) TruncateInode(inode *Inode, length uint64) error {
	if length >= uint64(inode.Size) {
		return nil
	}

	newBlocks := (length + BlockSize - 1) / BlockSize
	oldBlocks := (uint64(inode.Size) + BlockSize - 1) / BlockSize

	for i := newBlocks; i < oldBlocks; i++ {
		physical, ok, err := fs.GetInodeBlock(inode, i)
		if err != nil {
			return fmt.Errorf("truncating inode `%d`: %w", inode.Ino, err)
		}
		if ok {
			if err := fs.FreeBlock(physical); err != nil {
				return fmt.Errorf("truncating inode `%d`: %w", inode.Ino, err)
			}
			if err := fs.SetInodeBlock(inode, i, 0); err != nil {
				return fmt.Errorf("truncating inode `%d`: %w", inode.Ino, err)
			}
		}
	}

	if newBlocks <= directSlots && inode.Block[12] != 0 {
		if err := fs.FreeBlock(uint64(inode.Block[12])); err != nil {
			return fmt.Errorf("truncating inode `%d`: %w", inode.Ino, err)
		}
		inode.Block[12] = 0
	}

	inode.Size = uint32(length)
	inode.Blocks = uint32(newBlocks)
	inode.MTime = fs.now()
	inode.CTime = fs.now()
	return fs.UpdateInode(inode)
}

// DeleteInode frees every block reachable from inode n (direct, then
// indirect, then the indirect block itself), zeroes the inode record, and
// returns n to the inode allocator.
func (fs *FileSystem) DeleteInode(n Ino) error {
	inode, err := fs.GetInode(n)
	if err != nil {
		return fmt.Errorf("deleting inode `%d`: %w", n, err)
	}

	for i := 0; i < directSlots; i++ {
		if inode.Block[i] != 0 {
			if err := fs.FreeBlock(uint64(inode.Block[i])); err != nil {
				return fmt.Errorf("deleting inode `%d`: %w", n, err)
			}
		}
	}

	if inode.Block[12] != 0 {
		for entry := uint64(0); entry < fs.pointersPerBlock(); entry++ {
			ptr, err := fs.readIndirectEntry(uint64(inode.Block[12]), entry)
			if err != nil {
				return fmt.Errorf("deleting inode `%d`: %w", n, err)
			}
			if ptr != 0 {
				if err := fs.FreeBlock(ptr); err != nil {
					return fmt.Errorf("deleting inode `%d`: %w", n, err)
				}
			}
		}
		if err := fs.FreeBlock(uint64(inode.Block[12])); err != nil {
			return fmt.Errorf("deleting inode `%d`: %w", n, err)
		}
	}

	zero := Inode{Ino: n}
	if err := fs.WriteInode(&zero); err != nil {
		return fmt.Errorf("deleting inode `%d`: %w", n, err)
	}
	delete(fs.InodeCache, n)
	delete(fs.DirtyInos, n)
	delete(fs.ReusedInos, n)

	if err := fs.FreeInode(n); err != nil {
		return fmt.Errorf("deleting inode `%d`: %w", n, err)
	}
	return nil
}
