package fsx600

import (
	"bytes"
	"encoding/binary"
)

// dirent is one 32-byte entry in a directory's data blocks: a 4-byte
// bitfield word (valid:1, isDir:1, inode:30) followed by a 28-byte
// NUL-terminated name.
type dirent struct {
	Valid bool
	IsDir bool
	Inode uint32
	Name  string
}

// encode writes the entry's 32-byte on-disk representation into dst.
func (d dirent) encode(dst []byte) {
	_ = dst[direntSize-1]
	var word uint32
	if d.Valid {
		word |= 1
	}
	if d.IsDir {
		word |= 1 << 1
	}
	word |= (d.Inode & 0x3fffffff) << 2
	binary.LittleEndian.PutUint32(dst[0:4], word)

	name := d.Name
	if len(name) > FilenameSize-1 {
		name = name[:FilenameSize-1]
	}
	nameBuf := dst[4:direntSize]
	for i := range nameBuf {
		nameBuf[i] = 0
	}
	copy(nameBuf, name)
}

// EncodeDirEntry returns the 32-byte on-disk representation of a
// directory entry, for callers (fsxfmt) writing a directory's initial
// "." and ".." entries without depending on the unexported dirent type.
func EncodeDirEntry(valid, isDir bool, inode uint32, name string) []byte {
	buf := make([]byte, direntSize)
	d := dirent{Valid: valid, IsDir: isDir, Inode: inode, Name: name}
	d.encode(buf)
	return buf
}

// decodeDirent reads a 32-byte on-disk directory entry from src.
func decodeDirent(src []byte) dirent {
	_ = src[direntSize-1]
	word := binary.LittleEndian.Uint32(src[0:4])
	var d dirent
	d.Valid = word&1 != 0
	d.IsDir = word&(1<<1) != 0
	d.Inode = (word >> 2) & 0x3fffffff

	nameBuf := src[4:direntSize]
	if n := bytes.IndexByte(nameBuf, 0); n >= 0 {
		d.Name = string(nameBuf[:n])
	} else {
		d.Name = string(nameBuf)
	}
	return d
}
