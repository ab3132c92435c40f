package ext2

import "fmt"

// AllocBlock finds the lowest-indexed free block in the data region
// (first-fit), marks it allocated, and keeps the superblock's free-block
// counter consistent. It returns 0 if no free block remains; the spec
// guarantees this is not modeled as an error (§4.3).
func (fs *FileSystem) AllocBlock() (uint64, error) {
	firstData := uint64(fs.Superblock.FirstDataBlock)
	total := uint64(fs.Superblock.BlocksCount)

	byt, bit, ok := fs.BlockBitmap.FindZeroBitAfter(firstData)
	if !ok {
		return 0, nil
	}
	block := byt*8 + bit
	if block >= total {
		return 0, nil
	}

	fs.BlockBitmap.SetBit(block)
	fs.Superblock.FreeBlocksCount--
	fs.SuperblockDirty = true
	return block, nil
}

// FreeBlock clears the bitmap bit for block n. Freeing an already-free
// block is an idempotent no-op per spec.md §4.3.
func (fs *FileSystem) FreeBlock(n uint64) error {
	if n == 0 {
		return nil
	}
	if n >= uint64(fs.Superblock.BlocksCount) {
		return fmt.Errorf("freeing block `%d`: %w", n, ErrIOOutOfRange{
			Offset: n,
			Length: 1,
			Size:   uint64(fs.Superblock.BlocksCount),
		})
	}
	if !fs.BlockBitmap.IsSet(n) {
		return nil
	}
	fs.BlockBitmap.ClearBit(n)
	fs.Superblock.FreeBlocksCount++
	fs.SuperblockDirty = true
	return nil
}

// AllocInode finds the lowest free inode number starting the scan at
// inode 1 (inode 0 is never returned), marks it allocated, and returns it.
// It returns 0 if no free inode remains.
func (fs *FileSystem) AllocInode() (Ino, error) {
	byt, bit, ok := fs.InodeBitmap.FindZeroBitAfter(1)
	if !ok {
		return 0, nil
	}
	ino := byt*8 + bit
	if ino == 0 || ino >= uint64(fs.Superblock.InodesCount) {
		return 0, nil
	}

	fs.InodeBitmap.SetBit(ino)
	fs.Superblock.FreeInodesCount--
	fs.SuperblockDirty = true
	return Ino(ino), nil
}

// FreeInode clears the inode bitmap bit for n. Inode 0 is never touched.
func (fs *FileSystem) FreeInode(n Ino) error {
	if n == 0 {
		return nil
	}
	if uint32(n) >= fs.Superblock.InodesCount {
		return fmt.Errorf("freeing inode `%d`: %w", n, ErrIOOutOfRange{
			Offset: uint64(n),
			Length: 1,
			Size:   uint64(fs.Superblock.InodesCount),
		})
	}
	if !fs.InodeBitmap.IsSet(uint64(n)) {
		return nil
	}
	fs.InodeBitmap.ClearBit(uint64(n))
	fs.Superblock.FreeInodesCount++
	fs.SuperblockDirty = true
	return nil
}
