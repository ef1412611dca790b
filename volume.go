package fsx600

import (
	"fmt"
	"log"
	"time"
)

// Volume is the in-memory mirror of a mounted fsx600 image: the
// superblock, both bitmaps, the full inode region, and the dirty
// metadata cache. It is an explicit value threaded through every
// operation rather than process-wide mutable state.
//
// A Volume is not safe for concurrent use: the core assumes operations
// are serialized by the caller.
type Volume struct {
	dev *BlockDevice
	sb  Superblock

	inodeMapBase uint32 // block number of first inode map block
	blockMapBase uint32 // block number of first block map block
	inodeBase    uint32 // block number of first inode region block
	nMeta        uint32 // number of metadata blocks, incl. superblock

	inodeMap *bitset
	blockMap *bitset
	inodes   []Inode

	dirty *dirtyCache

	now             func() uint32
	maxSymlinkDepth int

	// allocRecorder, when non-nil, collects every block number handed
	// out by allocBlock during the lifetime of the current top-level
	// operation, so that operation can roll back its own allocations
	// on failure without affecting unrelated calls.
	allocRecorder *[]uint32
}

// Option configures a Mount call, the same functional-options shape the
// teacher's options.go uses for InodeOffset.
type Option func(*Volume)

// WithNowFunc overrides the clock used to stamp ctime/mtime, so tests can
// mount a deterministic volume.
func WithNowFunc(f func() uint32) Option {
	return func(v *Volume) { v.now = f }
}

// WithMaxSymlinkDepth overrides the symlink expansion depth limit
// (default MaxSymlinkDepth).
func WithMaxSymlinkDepth(n int) Option {
	return func(v *Volume) { v.maxSymlinkDepth = n }
}

func defaultNow() uint32 {
	return uint32(time.Now().Unix())
}

// Mount reads the superblock, both bitmaps, and the entire inode region
// from dev into memory.
func Mount(dev *BlockDevice, opts ...Option) (*Volume, error) {
	v := &Volume{
		dev:             dev,
		dirty:           newDirtyCache(),
		now:             defaultNow,
		maxSymlinkDepth: MaxSymlinkDepth,
	}
	for _, opt := range opts {
		opt(v)
	}

	sbBuf, err := dev.ReadBlock(0)
	if err != nil {
		return nil, err
	}
	if err := v.sb.UnmarshalBinary(sbBuf); err != nil {
		return nil, err
	}
	log.Printf("fsx600: mounted volume, %d blocks, %d inodes", v.sb.NumBlocks, v.sb.InodeRegionSize*InodesPerBlock)

	v.inodeMapBase = 1
	v.blockMapBase = v.inodeMapBase + v.sb.InodeMapSize
	v.inodeBase = v.blockMapBase + v.sb.BlockMapSize
	v.nMeta = 1 + v.sb.InodeMapSize + v.sb.BlockMapSize + v.sb.InodeRegionSize

	imBuf := make([]byte, v.sb.InodeMapSize*BlockSize)
	if err := dev.ReadAt(v.inodeMapBase, v.sb.InodeMapSize, imBuf); err != nil {
		return nil, err
	}
	v.inodeMap = newBitset(imBuf, v.sb.InodeRegionSize*InodesPerBlock)

	bmBuf := make([]byte, v.sb.BlockMapSize*BlockSize)
	if err := dev.ReadAt(v.blockMapBase, v.sb.BlockMapSize, bmBuf); err != nil {
		return nil, err
	}
	v.blockMap = newBitset(bmBuf, v.sb.NumBlocks)

	inodeRegion := make([]byte, v.sb.InodeRegionSize*BlockSize)
	if err := dev.ReadAt(v.inodeBase, v.sb.InodeRegionSize, inodeRegion); err != nil {
		return nil, err
	}
	n := v.sb.InodeRegionSize * InodesPerBlock
	v.inodes = make([]Inode, n)
	for i := uint32(0); i < n; i++ {
		v.inodes[i] = decodeInode(inodeRegion[i*inodeSize : (i+1)*inodeSize])
	}

	return v, nil
}

// Close flushes any pending metadata writes. There is no memory to
// release explicitly in Go, but the flush-on-teardown contract still
// applies.
func (v *Volume) Close() error {
	return v.flushMetadata()
}

func (v *Volume) flushMetadata() error {
	return v.dirty.flush(v.dev)
}

func (v *Volume) inode(inum uint32) *Inode {
	return &v.inodes[inum]
}

// markInode registers the inode block containing inum as dirty,
// re-encoding every inode in that block from the in-memory array.
func (v *Volume) markInode(inum uint32) {
	blk := inum / InodesPerBlock
	base := blk * InodesPerBlock
	buf := make([]byte, BlockSize)
	for i := uint32(0); i < InodesPerBlock && base+i < uint32(len(v.inodes)); i++ {
		encodeInode(&v.inodes[base+i], buf[i*inodeSize:(i+1)*inodeSize])
	}
	v.dirty.mark(v.inodeBase+blk, buf)
}

// markBlockMap registers the block-map block covering bit i as dirty.
func (v *Volume) markBlockMap(i uint32) {
	blk := blockOf(i)
	start := blk * BlockSize
	end := start + BlockSize
	if end > uint32(len(v.blockMap.bytes)) {
		end = uint32(len(v.blockMap.bytes))
	}
	v.dirty.mark(v.blockMapBase+blk, v.blockMap.bytes[start:end])
}

// markInodeMap registers the inode-map block covering inum as dirty.
func (v *Volume) markInodeMap(inum uint32) {
	blk := blockOf(inum)
	start := blk * BlockSize
	end := start + BlockSize
	if end > uint32(len(v.inodeMap.bytes)) {
		end = uint32(len(v.inodeMap.bytes))
	}
	v.dirty.mark(v.inodeMapBase+blk, v.inodeMap.bytes[start:end])
}

// allocBlock allocates the lowest-numbered free block, or returns
// (0, false) if the volume is full.
func (v *Volume) allocBlock() (uint32, bool) {
	i, ok := v.blockMap.alloc()
	if !ok {
		return 0, false
	}
	v.markBlockMap(i)
	v.recordAlloc(i)
	return i, true
}

func (v *Volume) freeBlock(b uint32) {
	v.blockMap.clear(b)
	v.markBlockMap(b)
}

func (v *Volume) isFreeBlock(b uint32) bool {
	return !v.blockMap.test(b)
}

// allocInode allocates the lowest-numbered free inode, or returns
// (0, false) if none remain. The caller is responsible for
// initializing the returned inode.
func (v *Volume) allocInode() (uint32, bool) {
	i, ok := v.inodeMap.alloc()
	if !ok {
		return 0, false
	}
	v.markInodeMap(i)
	return i, true
}

func (v *Volume) freeInode(inum uint32) {
	v.inodeMap.clear(inum)
	v.markInodeMap(inum)
}

func (v *Volume) isFreeInode(inum uint32) bool {
	return !v.inodeMap.test(inum)
}

// zeroBlock writes BlockSize zero bytes to blockNo, used when a pointer
// block or file block is freshly allocated.
func (v *Volume) zeroBlock(blockNo uint32) error {
	var zeros [BlockSize]byte
	return v.dev.WriteBlock(blockNo, zeros[:])
}

func (v *Volume) checkInodeRange(inum uint32) error {
	if inum == 0 || inum >= uint32(len(v.inodes)) {
		return fmt.Errorf("fsx600: inode %d out of range: %w", inum, ErrInvalid)
	}
	return nil
}
