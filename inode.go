package fsx600

import (
	"encoding/binary"
	"io/fs"
)

// Inode is the in-memory mirror of one 64-byte on-disk inode record.
type Inode struct {
	UID   uint16
	GID   uint16
	Mode  uint32 // permission bits | file-type bits
	Ctime uint32 // seconds since epoch
	Mtime uint32 // seconds since epoch
	Size  uint32 // bytes
	Nlink uint32

	Direct [NDirect]uint32
	Indir1 uint32
	Indir2 uint32
}

// IsDir reports whether the inode's mode marks it a directory.
func (in *Inode) IsDir() bool { return isDirMode(in.Mode) }

// IsSymlink reports whether the inode's mode marks it a symbolic link.
func (in *Inode) IsSymlink() bool { return isSymlinkMode(in.Mode) }

// FileMode returns the io/fs.FileMode equivalent of the inode's mode.
func (in *Inode) FileMode() fs.FileMode { return unixToMode(in.Mode) }

// blocks returns ceil(size/512), the stat(2) st_blocks convention.
func (in *Inode) blocks() uint32 {
	return (in.Size + 511) / 512
}

// MarshalBinary returns in's 64-byte on-disk representation, for
// callers (fsxfmt) building an inode region from scratch.
func (in *Inode) MarshalBinary() ([]byte, error) {
	buf := make([]byte, inodeSize)
	encodeInode(in, buf)
	return buf, nil
}

// encodeInode writes in's 64-byte on-disk representation into dst.
func encodeInode(in *Inode, dst []byte) {
	_ = dst[inodeSize-1]
	binary.LittleEndian.PutUint16(dst[0:2], in.UID)
	binary.LittleEndian.PutUint16(dst[2:4], in.GID)
	binary.LittleEndian.PutUint32(dst[4:8], in.Mode)
	binary.LittleEndian.PutUint32(dst[8:12], in.Ctime)
	binary.LittleEndian.PutUint32(dst[12:16], in.Mtime)
	binary.LittleEndian.PutUint32(dst[16:20], in.Size)
	binary.LittleEndian.PutUint32(dst[20:24], in.Nlink)
	off := 24
	for i := 0; i < NDirect; i++ {
		binary.LittleEndian.PutUint32(dst[off:off+4], in.Direct[i])
		off += 4
	}
	binary.LittleEndian.PutUint32(dst[off:off+4], in.Indir1)
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], in.Indir2)
	off += 4
	for i := off; i < inodeSize; i++ {
		dst[i] = 0
	}
}

// decodeInode reads a 64-byte on-disk inode record from src.
func decodeInode(src []byte) Inode {
	_ = src[inodeSize-1]
	var in Inode
	in.UID = binary.LittleEndian.Uint16(src[0:2])
	in.GID = binary.LittleEndian.Uint16(src[2:4])
	in.Mode = binary.LittleEndian.Uint32(src[4:8])
	in.Ctime = binary.LittleEndian.Uint32(src[8:12])
	in.Mtime = binary.LittleEndian.Uint32(src[12:16])
	in.Size = binary.LittleEndian.Uint32(src[16:20])
	in.Nlink = binary.LittleEndian.Uint32(src[20:24])
	off := 24
	for i := 0; i < NDirect; i++ {
		in.Direct[i] = binary.LittleEndian.Uint32(src[off : off+4])
		off += 4
	}
	in.Indir1 = binary.LittleEndian.Uint32(src[off : off+4])
	off += 4
	in.Indir2 = binary.LittleEndian.Uint32(src[off : off+4])
	return in
}
