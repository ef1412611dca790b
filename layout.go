package fsx600

// On-disk layout constants, bit-exact with the fsx600 format.
const (
	// BlockSize is the fixed size in bytes of every block on the volume.
	BlockSize = 1024

	// Magic is the superblock signature.
	Magic = 0x37363030

	// RootInode is always inode 1.
	RootInode = 1

	// NDirect is the number of direct block pointers in an inode.
	NDirect = 6

	// FilenameSize is the size in bytes of the name field of a directory
	// entry, including its trailing NUL (so 27 significant characters).
	FilenameSize = 28

	// inodeSize is the on-disk size in bytes of one inode record.
	inodeSize = 64

	// direntSize is the on-disk size in bytes of one directory entry.
	direntSize = 32

	// superblockFieldBytes is the number of non-padding bytes in the superblock.
	superblockFieldBytes = 6 * 4

	// InodesPerBlock is the number of fixed-size inode records per block.
	InodesPerBlock = BlockSize / inodeSize

	// DirentsPerBlock is the number of directory entries per block.
	DirentsPerBlock = BlockSize / direntSize

	// PtrsPerBlock is the number of 32-bit block pointers in a pointer block.
	PtrsPerBlock = BlockSize / 4

	// BitsPerBlock is the number of bitmap bits represented by one block.
	BitsPerBlock = BlockSize * 8

	// MaxFileBlocks is the number of blocks addressable through the
	// direct + single-indirect + double-indirect pointer tree; valid
	// 0-based block indices are below it.
	MaxFileBlocks = NDirect + PtrsPerBlock + PtrsPerBlock*PtrsPerBlock

	// MaxFileSize is the largest file size in bytes representable on this
	// volume (~67MB with the standard 1024-byte block size).
	MaxFileSize = uint64(MaxFileBlocks) * BlockSize

	// MaxSymlinkDepth is the default maximum number of symlink expansions
	// performed while resolving a single path.
	MaxSymlinkDepth = 1024

	// InodeSize is the on-disk size in bytes of one inode record.
	InodeSize = inodeSize

	// DirentSize is the on-disk size in bytes of one directory entry.
	DirentSize = direntSize
)
