// Package fsxfmt builds a fresh, valid fsx600 image from nothing but a
// block and inode count. It exists for tests and the cmd/fsxadm mkfs
// subcommand, a convenience for getting a mountable image onto disk.
//
// Create lays down directly whatever a freshly mounted volume is
// expected to contain: a superblock, both bitmaps, an empty inode
// region, and an initialized root directory.
package fsxfmt

import (
	"fmt"
	"io"
	"time"

	"github.com/fsx600/fsx600"
)

func divCeil(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// Create writes a new fsx600 image to w: a superblock, inode and block
// bitmaps sized to hold numInodes inodes and numBlocks blocks, an
// empty inode region, and an initialized root directory occupying
// inode 1 and the first free data block.
func Create(w io.WriterAt, numBlocks, numInodes uint32) error {
	if numInodes == 0 || numBlocks == 0 {
		return fmt.Errorf("fsxfmt: numBlocks and numInodes must be positive: %w", fsx600.ErrInvalid)
	}

	inodeMapSize := divCeil(numInodes, fsx600.BitsPerBlock)
	inodeRegionSize := divCeil(numInodes, fsx600.InodesPerBlock)
	blockMapSize := divCeil(numBlocks, fsx600.BitsPerBlock)
	nMeta := 1 + inodeMapSize + blockMapSize + inodeRegionSize
	rootDataBlock := nMeta

	if numBlocks < nMeta+1 {
		return fmt.Errorf("fsxfmt: numBlocks too small for %d inodes: %w", numInodes, fsx600.ErrNoSpace)
	}

	sb := fsx600.Superblock{
		Magic:           fsx600.Magic,
		InodeMapSize:    inodeMapSize,
		InodeRegionSize: inodeRegionSize,
		BlockMapSize:    blockMapSize,
		NumBlocks:       numBlocks,
		RootInode:       fsx600.RootInode,
	}
	sbBuf, err := sb.MarshalBinary()
	if err != nil {
		return err
	}
	if err := writeBlocks(w, 0, sbBuf); err != nil {
		return err
	}

	inodeMap := make([]byte, inodeMapSize*fsx600.BlockSize)
	setBit(inodeMap, 0) // inode 0 is never allocated
	setBit(inodeMap, fsx600.RootInode)
	if err := writeBlocks(w, 1, inodeMap); err != nil {
		return err
	}

	blockMapBase := 1 + inodeMapSize
	blockMap := make([]byte, blockMapSize*fsx600.BlockSize)
	for b := uint32(0); b < rootDataBlock+1; b++ {
		setBit(blockMap, b)
	}
	if err := writeBlocks(w, blockMapBase, blockMap); err != nil {
		return err
	}

	now := uint32(time.Now().Unix())
	root := fsx600.Inode{
		Mode:  fsx600.S_IFDIR | 0755,
		Nlink: 2,
		Ctime: now,
		Mtime: now,
		Size:  2 * fsx600.DirentSize,
	}
	root.Direct[0] = rootDataBlock

	inodeBase := blockMapBase + blockMapSize
	inodeRegion := make([]byte, inodeRegionSize*fsx600.BlockSize)
	rootBuf, err := root.MarshalBinary()
	if err != nil {
		return err
	}
	copy(inodeRegion[fsx600.RootInode*fsx600.InodeSize:], rootBuf)
	if err := writeBlocks(w, inodeBase, inodeRegion); err != nil {
		return err
	}

	rootData := make([]byte, fsx600.BlockSize)
	copy(rootData[0*fsx600.DirentSize:], fsx600.EncodeDirEntry(true, true, fsx600.RootInode, "."))
	copy(rootData[1*fsx600.DirentSize:], fsx600.EncodeDirEntry(true, true, fsx600.RootInode, ".."))
	return writeBlocks(w, rootDataBlock, rootData)
}

func setBit(bitmap []byte, i uint32) {
	bitmap[i/8] |= 1 << (i % 8)
}

func writeBlocks(w io.WriterAt, startBlock uint32, buf []byte) error {
	_, err := w.WriteAt(buf, int64(startBlock)*fsx600.BlockSize)
	return err
}
