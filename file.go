package fsx600

import (
	"fmt"
	"io"
)

// recordAlloc records an index handed out by allocBlock with the active
// recorder, if any, so an outer WriteAt can roll back every block it caused to be
// allocated — not just the ones from its own innermost blockFor call —
// on a failure partway through a multi-block write.
func (v *Volume) recordAlloc(b uint32) {
	if v.allocRecorder != nil {
		*v.allocRecorder = append(*v.allocRecorder, b)
	}
}

// withAllocRecorder runs fn with block allocation recording enabled,
// and returns every block allocated during fn's execution.
func (v *Volume) withAllocRecorder(fn func() error) ([]uint32, error) {
	var rec []uint32
	prev := v.allocRecorder
	v.allocRecorder = &rec
	err := fn()
	v.allocRecorder = prev
	return rec, err
}

func blocksForSize(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return (size + BlockSize - 1) / BlockSize
}

// readAt reads file data for inode inum, following io.ReaderAt
// semantics: it returns io.EOF only when fewer than len(p) bytes could
// be supplied before reaching the inode's recorded size. Unallocated
// (sparse) blocks within the file's size read as zero.
func (v *Volume) readAt(inum uint32, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	in := v.inode(inum)
	if off >= int64(in.Size) {
		return 0, io.EOF
	}
	end := off + int64(len(p))
	if end > int64(in.Size) {
		end = int64(in.Size)
	}

	startBlock := uint32(off / BlockSize)
	endBlock := uint32((end - 1) / BlockSize)

	var n int64
	for idx := startBlock; idx <= endBlock; idx++ {
		blk, err := v.blockFor(inum, idx, false)
		if err != nil {
			return int(n), err
		}
		blockStart := int64(idx) * BlockSize
		blockEnd := blockStart + BlockSize
		readLo, readHi := off, end
		if blockStart > readLo {
			readLo = blockStart
		}
		if blockEnd < readHi {
			readHi = blockEnd
		}
		inBlockOff := readLo - blockStart
		length := readHi - readLo
		dstOff := readLo - off

		if blk == 0 {
			for i := int64(0); i < length; i++ {
				p[dstOff+i] = 0
			}
		} else {
			buf, err := v.dev.ReadBlock(blk)
			if err != nil {
				return int(n), err
			}
			copy(p[dstOff:dstOff+length], buf[inBlockOff:inBlockOff+length])
		}
		n += length
	}

	if n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// writeAt writes p to the file at inode inum starting at off, extending
// the file and allocating blocks (including indirect pointer blocks) as
// needed. Writing is only permitted within or immediately at the
// current end of the file: an off beyond the current size would leave a
// hole behind and is rejected with ErrInvalid rather than silently
// created. If allocation fails partway through, every block the call
// itself allocated is freed and the inode is restored to its
// pre-write state before returning the error — the resolved
// rollback-on-failure policy for extending writes.
func (v *Volume) writeAt(inum uint32, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	in := v.inode(inum)
	if off > int64(in.Size) {
		return 0, fmt.Errorf("fsx600: write offset %d beyond size %d would create a hole: %w", off, in.Size, ErrInvalid)
	}
	snapshot := *in

	startBlock := uint32(off / BlockSize)
	endBlock := uint32((off + int64(len(p)) - 1) / BlockSize)

	allocated, err := v.withAllocRecorder(func() error {
		for idx := startBlock; idx <= endBlock; idx++ {
			blk, err := v.blockFor(inum, idx, true)
			if err != nil {
				return err
			}
			blockStart := int64(idx) * BlockSize
			blockEnd := blockStart + BlockSize
			writeLo, writeHi := off, off+int64(len(p))
			if blockStart > writeLo {
				writeLo = blockStart
			}
			if blockEnd < writeHi {
				writeHi = blockEnd
			}
			inBlockOff := writeLo - blockStart
			length := writeHi - writeLo
			srcOff := writeLo - off

			buf, err := v.dev.ReadBlock(blk)
			if err != nil {
				return err
			}
			copy(buf[inBlockOff:inBlockOff+length], p[srcOff:srcOff+length])
			if err := v.dev.WriteBlock(blk, buf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		for _, b := range allocated {
			v.freeBlock(b)
		}
		*in = snapshot
		v.markInode(inum)
		return 0, err
	}

	newSize := uint64(off) + uint64(len(p))
	if newSize > uint64(in.Size) {
		in.Size = uint32(newSize)
	}
	in.Mtime = v.now()
	v.markInode(inum)
	return len(p), nil
}

// truncate sets inode inum's size to newSize, freeing any blocks beyond
// the new size. Only shrinking is permitted: extension would require
// representing a hole, which this format does not support.
func (v *Volume) truncate(inum uint32, newSize uint32) error {
	in := v.inode(inum)
	if newSize > in.Size {
		return fmt.Errorf("fsx600: truncate size %d exceeds current size %d: %w", newSize, in.Size, ErrInvalid)
	}
	if err := v.truncateTree(inum, blocksForSize(newSize)); err != nil {
		return err
	}
	in.Size = newSize
	in.Mtime = v.now()
	in.Ctime = v.now()
	v.markInode(inum)
	return nil
}
