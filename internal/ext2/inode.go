package ext2

import "fmt"

// Ino is a 1-based inode number; 0 is the reserved null inode.
type Ino uint32

// InodeBufferSize is the fixed on-disk inode record size (SI).
const InodeBufferSize = 128

// Mode packs an inode's file type and permission bits.
type Mode struct {
	FileType FileType
	SUID     bool
	SGID     bool
	Sticky   bool
	// Perm holds the low 9 rwxrwxrwx bits (owner/group/other).
	Perm uint16
}

const (
	modeSUID   uint16 = 0x0800
	modeSGID   uint16 = 0x0400
	modeSticky uint16 = 0x0200
)

func decodeMode(word uint16) (Mode, error) {
	fileType, err := decodeFileType(word)
	if err != nil {
		return Mode{}, fmt.Errorf("decoding mode `%#x`: %w", word, err)
	}
	return Mode{
		FileType: fileType,
		SUID:     word&modeSUID != 0,
		SGID:     word&modeSGID != 0,
		Sticky:   word&modeSticky != 0,
		Perm:     word & 0x01ff,
	}, nil
}

func (mode Mode) encode() uint16 {
	var suid, sgid, sticky uint16
	if mode.SUID {
		suid = modeSUID
	}
	if mode.SGID {
		sgid = modeSGID
	}
	if mode.Sticky {
		sticky = modeSticky
	}
	return mode.FileType.encode() + suid + sgid + sticky + (mode.Perm & 0x01ff)
}

// Inode is the in-memory form of an on-disk inode record.
type Inode struct {
	Ino        Ino
	Mode       Mode
	UID        uint16
	GID        uint16
	Size       uint32
	LinksCount uint16
	Blocks     uint32 // block count, in units of BlockSize
	ATime      uint32
	CTime      uint32
	MTime      uint32
	// Block holds all 15 on-disk pointer slots: 0-11 direct, 12
	// single-indirect, 13-14 unused (always zero).
	Block [15]uint32
}

// DecodeInode decodes an inode record addressed by ino from its on-disk
// bytes. Reading an unallocated (all-zero) inode succeeds and yields a
// zero-value record, per spec.md §4.4.
func DecodeInode(ino Ino, b *[InodeBufferSize]byte) (Inode, error) {
	word := decodeUint16(b[0], b[1])
	if word == 0 {
		return Inode{Ino: ino}, nil
	}

	mode, err := decodeMode(word)
	if err != nil {
		return Inode{}, fmt.Errorf("decoding inode `%d`: %w", ino, err)
	}

	var block [15]uint32
	for i := range block {
		base := 40 + 4*i
		block[i] = decodeUint32(b[base], b[base+1], b[base+2], b[base+3])
	}

	return Inode{
		Ino:        ino,
		Mode:       mode,
		UID:        decodeUint16(b[2], b[3]),
		GID:        decodeUint16(b[24], b[25]),
		Size:       decodeUint32(b[4], b[5], b[6], b[7]),
		LinksCount: decodeUint16(b[26], b[27]),
		Blocks:     decodeUint32(b[28], b[29], b[30], b[31]),
		ATime:      decodeUint32(b[8], b[9], b[10], b[11]),
		CTime:      decodeUint32(b[12], b[13], b[14], b[15]),
		MTime:      decodeUint32(b[16], b[17], b[18], b[19]),
		Block:      block,
	}, nil
}

// Encode writes the inode's on-disk representation into b. Slots 13-14 are
// always encoded as zero per spec.md §3.
func (inode *Inode) Encode(b *[InodeBufferSize]byte) {
	for i := range b {
		b[i] = 0
	}

	encodeUint16(inode.Mode.encode(), b[0:])
	encodeUint16(inode.UID, b[2:])
	encodeUint32(inode.Size, b[4:])
	encodeUint32(inode.ATime, b[8:])
	encodeUint32(inode.CTime, b[12:])
	encodeUint32(inode.MTime, b[16:])
	encodeUint16(inode.GID, b[24:])
	encodeUint16(inode.LinksCount, b[26:])
	encodeUint32(inode.Blocks, b[28:])

	inode.Block[13] = 0
	inode.Block[14] = 0
	for i := range inode.Block {
		encodeUint32(inode.Block[i], b[40+4*i:])
	}
}

// IsDir reports whether the inode is a directory.
func (inode *Inode) IsDir() bool { return inode.Mode.FileType == FileTypeDir }

// IsRegular reports whether the inode is a regular file.
func (inode *Inode) IsRegular() bool { return inode.Mode.FileType == FileTypeRegular }
