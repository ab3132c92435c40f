package ext2

import (
	"fmt"
	"time"
)

// On-disk block layout, per spec.md §3: block 0 is the superblock, block 1
// the block bitmap, block 2 the inode bitmap, blocks 3..InodeTableStartBlock
// + inodeTableBlocks()-1 the inode table, and everything after that is the
// data region.
const (
	SuperblockBlock      uint64 = 0
	BlockBitmapBlock     uint64 = 1
	InodeBitmapBlock     uint64 = 2
	InodeTableStartBlock uint64 = 3
)

// FirstDataBlock is the first block index available for file/directory
// data: the inode table's start plus however many blocks it spans.
func FirstDataBlock() uint64 {
	return InodeTableStartBlock + inodeTableBlocks()
}

func (fs *FileSystem) now() uint32 {
	return uint32(time.Now().Unix())
}

// Format writes a fresh volume: zeroed blocks, a valid superblock, empty
// bitmaps with metadata blocks marked used, a zeroed inode table, and the
// root directory at inode 2 with self-referential "." and ".." entries.
func Format(volume Volume) (*FileSystem, error) {
	var zero [BlockSize]byte
	for block := uint64(0); block < uint64(BlocksCount); block++ {
		if err := volume.Write(block*BlockSize, zero[:]); err != nil {
			return nil, fmt.Errorf("formatting volume: zeroing block `%d`: %w", block, err)
		}
	}

	firstData := FirstDataBlock()
	now := uint32(time.Now().Unix())

	sb := Superblock{
		BlocksCount:     BlocksCount,
		InodesCount:     InodesCount,
		FirstDataBlock:  uint32(firstData),
		LogBlockSize:    0,
		InodesPerGroup:  InodesCount,
		LastMountTime:   now,
		WriteTime:       now,
		LastCheck:       now,
		State:           StateClean,
		Errors:          1,
		InodeSize:       InodeSize,
		Magic:           SuperblockMagic,
	}

	fs := &FileSystem{
		Volume:      volume,
		Superblock:  sb,
		BlockBitmap: make(Bitmap, BlocksCount/8),
		InodeBitmap: make(Bitmap, InodesCount/8),
		InodeCache:  map[Ino]Inode{},
		DirtyInos:   map[Ino]struct{}{},
		ReusedInos:  map[Ino]struct{}{},
		CacheQueue:  NewRing(),
		OpenFiles:   make([]OpenFile, MaxOpenFiles),
		nextFD:      1,
	}

	for block := uint64(0); block < firstData; block++ {
		fs.BlockBitmap.SetBit(block)
	}
	fs.Superblock.FreeBlocksCount = uint32(uint64(BlocksCount) - firstData)

	fs.InodeBitmap.SetBit(0) // inode 0 is reserved "null" and never allocated
	fs.Superblock.FreeInodesCount = InodesCount - 1

	fs.SuperblockDirty = true
	if err := fs.FlushSuperblock(); err != nil {
		return nil, fmt.Errorf("formatting volume: %w", err)
	}
	if err := fs.flushBitmaps(); err != nil {
		return nil, fmt.Errorf("formatting volume: %w", err)
	}

	if _, err := fs.createRootDirectory(); err != nil {
		return nil, fmt.Errorf("formatting volume: %w", err)
	}
	if err := fs.FlushAll(); err != nil {
		return nil, fmt.Errorf("formatting volume: %w", err)
	}

	return fs, nil
}

func (fs *FileSystem) createRootDirectory() (Inode, error) {
	fs.InodeBitmap.SetBit(uint64(RootIno))
	fs.Superblock.FreeInodesCount--
	fs.SuperblockDirty = true

	now := fs.now()
	root := Inode{
		Ino: RootIno,
		Mode: Mode{
			FileType: FileTypeDir,
			Perm:     0755,
		},
		LinksCount: 2,
		ATime:      now,
		CTime:      now,
		MTime:      now,
	}
	if err := fs.initDirectoryBlock(&root, RootIno, RootIno); err != nil {
		return Inode{}, fmt.Errorf("creating root directory: %w", err)
	}
	if err := fs.WriteInode(&root); err != nil {
		return Inode{}, fmt.Errorf("creating root directory: %w", err)
	}
	return root, nil
}

// Mount validates the superblock's magic number and returns a mounted
// FileSystem handle over volume. Per spec.md §4.10, a bad magic fails with
// BadFormat (here, ErrBadMagic).
func Mount(volume Volume) (*FileSystem, error) {
	var buf [SuperblockSize]byte
	if err := volume.Read(SuperblockBlock*BlockSize, buf[:]); err != nil {
		return nil, fmt.Errorf("mounting: %w", err)
	}
	sb, err := DecodeSuperblock(&buf)
	if err != nil {
		return nil, fmt.Errorf("mounting: %w", err)
	}

	blockBitmap := make(Bitmap, BlocksCount/8)
	if err := volume.Read(BlockBitmapBlock*BlockSize, blockBitmap); err != nil {
		return nil, fmt.Errorf("mounting: reading block bitmap: %w", err)
	}
	inodeBitmap := make(Bitmap, InodesCount/8)
	if err := volume.Read(InodeBitmapBlock*BlockSize, inodeBitmap); err != nil {
		return nil, fmt.Errorf("mounting: reading inode bitmap: %w", err)
	}

	fs := &FileSystem{
		Volume:      volume,
		Superblock:  sb,
		BlockBitmap: blockBitmap,
		InodeBitmap: inodeBitmap,
		InodeCache:  map[Ino]Inode{},
		DirtyInos:   map[Ino]struct{}{},
		ReusedInos:  map[Ino]struct{}{},
		CacheQueue:  NewRing(),
		OpenFiles:   make([]OpenFile, MaxOpenFiles),
		nextFD:      1,
	}

	fs.Superblock.LastMountTime = fs.now()
	fs.SuperblockDirty = true
	if err := fs.FlushSuperblock(); err != nil {
		return nil, fmt.Errorf("mounting: %w", err)
	}

	return fs, nil
}

// Unmount persists any dirty in-memory state and invalidates the open-file
// table, then closes the underlying volume if it can be closed. Mutations
// are not written through as they happen: dirty cached inodes, the
// superblock counters and both bitmaps reach the volume only through
// FlushAll (called here) or, for inodes, cache eviction.
func (fs *FileSystem) Unmount() error {
	if err := fs.FlushAll(); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	for i := range fs.OpenFiles {
		fs.OpenFiles[i] = OpenFile{}
	}
	fs.Identity = Identity{}
	if closer, ok := fs.Volume.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("unmounting: %w", err)
		}
	}
	return nil
}
