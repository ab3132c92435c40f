package ext2

import (
	"encoding/binary"
	"fmt"
)

type SuperblockState uint16

const (
	SuperblockMagic uint16 = 0xef53

	// SuperblockSize is the size allocated for the superblock on disk; it is
	// padded out to a full block even though only a fraction of it is used.
	SuperblockSize uint16 = 1024

	StateClean SuperblockState = 1
	StateDirty SuperblockState = 2

	// BlockSize is the fixed block size (B) of spec.md's data model.
	BlockSize uint64 = 1024
	// BlocksCount is the fixed maximum block count (NB).
	BlocksCount uint32 = 1024
	// InodesCount is the fixed maximum inode count (NI).
	InodesCount uint32 = 128
	// InodeSize is the fixed on-disk inode record size (SI).
	InodeSize uint16 = 128

	// RootIno is the reserved root directory inode number.
	RootIno Ino = 2
)

// Superblock holds the semantic set of volume metadata from spec.md §3.
// Unlike the teacher's group-aware superblock, this is a single-group
// layout: there is no group descriptor table, so InodesPerGroup always
// equals InodesCount and exists only to keep the on-disk byte offsets
// compatible with the teacher's codec.
type Superblock struct {
	BlocksCount     uint32
	FreeBlocksCount uint32
	FreeInodesCount uint32
	InodesCount     uint32
	FirstDataBlock  uint32
	LogBlockSize    uint32
	InodesPerGroup  uint32
	LastMountTime   uint32
	WriteTime       uint32
	LastCheck       uint32
	State           SuperblockState
	Errors          uint16
	InodeSize       uint16
	Magic           uint16
}

type ErrBadState struct{ Found SuperblockState }

func (err ErrBadState) Error() string {
	return fmt.Sprintf("bad state: wanted `%#04x`; found `%#04x`", StateClean, err.Found)
}

// DecodeSuperblock decodes a superblock from its on-disk representation.
func DecodeSuperblock(b *[SuperblockSize]byte) (Superblock, error) {
	var sb Superblock
	err := sb.Decode(b)
	return sb, err
}

func (sb *Superblock) Decode(b *[SuperblockSize]byte) error {
	magic := decodeUint16(b[56], b[57])
	if magic != SuperblockMagic {
		return fmt.Errorf("decoding superblock: %w", ErrBadMagic{magic})
	}

	state := SuperblockState(decodeUint16(b[58], b[59]))

	sb.BlocksCount = decodeUint32(b[4], b[5], b[6], b[7])
	sb.FreeBlocksCount = decodeUint32(b[12], b[13], b[14], b[15])
	sb.FreeInodesCount = decodeUint32(b[16], b[17], b[18], b[19])
	sb.FirstDataBlock = decodeUint32(b[20], b[21], b[22], b[23])
	sb.LogBlockSize = decodeUint32(b[24], b[25], b[26], b[27])
	sb.InodesPerGroup = decodeUint32(b[40], b[41], b[42], b[43])
	sb.InodesCount = decodeUint32(b[60], b[61], b[62], b[63])
	sb.LastMountTime = decodeUint32(b[64], b[65], b[66], b[67])
	sb.WriteTime = decodeUint32(b[68], b[69], b[70], b[71])
	sb.LastCheck = decodeUint32(b[72], b[73], b[74], b[75])
	sb.Errors = decodeUint16(b[76], b[77])
	sb.InodeSize = decodeUint16(b[88], b[89])
	sb.State = state
	sb.Magic = magic

	return nil
}

func (sb *Superblock) Encode(b *[SuperblockSize]byte) {
	encodeUint32(sb.BlocksCount, b[4:])
	encodeUint32(sb.FreeBlocksCount, b[12:])
	encodeUint32(sb.FreeInodesCount, b[16:])
	encodeUint32(sb.FirstDataBlock, b[20:])
	encodeUint32(sb.LogBlockSize, b[24:])
	encodeUint32(sb.InodesPerGroup, b[40:])
	encodeUint16(SuperblockMagic, b[56:])
	encodeUint16(uint16(sb.State), b[58:])
	encodeUint32(sb.InodesCount, b[60:])
	encodeUint32(sb.LastMountTime, b[64:])
	encodeUint32(sb.WriteTime, b[68:])
	encodeUint32(sb.LastCheck, b[72:])
	encodeUint16(sb.Errors, b[76:])
	encodeUint16(sb.InodeSize, b[88:])
}

func decodeUint16(b0, b1 byte) uint16 {
	// Little endian: first byte is least significant.
	return uint16(b0) + (uint16(b1) << 8)
}

func decodeUint32(b0, b1, b2, b3 byte) uint32 {
	return uint32(b0) +
		(uint32(b1) << 8) +
		(uint32(b2) << 16) +
		(uint32(b3) << 24)
}

func encodeUint16(x uint16, b []byte) {
	binary.LittleEndian.PutUint16(b, x)
}

func encodeUint32(x uint32, b []byte) {
	binary.LittleEndian.PutUint32(b, x)
}
