package fsx600

import (
	"encoding/binary"
	"fmt"
)

// blockLocator is the algebraic decomposition of a logical file block
// index into the direct/single-indirect/double-indirect cases. Expressing
// it as a sum type keyed by a type switch keeps each case's arithmetic
// local instead of threading three sets of bounds through one function.
type blockLocator interface {
	isBlockLocator()
}

// directLocator addresses inode.Direct[slot].
type directLocator struct {
	slot uint32
}

// singleIndirectLocator addresses slot of the block pointed to by
// inode.Indir1.
type singleIndirectLocator struct {
	slot uint32
}

// doubleIndirectLocator addresses inner of the outer-th block pointed
// to by the block pointed to by inode.Indir2.
type doubleIndirectLocator struct {
	outer, inner uint32
}

func (directLocator) isBlockLocator()         {}
func (singleIndirectLocator) isBlockLocator() {}
func (doubleIndirectLocator) isBlockLocator() {}

// locateBlock classifies a logical block index n (0-based) within a
// file into the direct/indirect/double-indirect case that addresses it.
// It returns an error wrapping ErrInvalid if n is MaxFileBlocks or more.
func locateBlock(n uint32) (blockLocator, error) {
	switch {
	case n < NDirect:
		return directLocator{slot: n}, nil
	case n < NDirect+PtrsPerBlock:
		return singleIndirectLocator{slot: n - NDirect}, nil
	case n < MaxFileBlocks:
		idx := n - NDirect - PtrsPerBlock
		return doubleIndirectLocator{outer: idx / PtrsPerBlock, inner: idx % PtrsPerBlock}, nil
	default:
		return nil, fmt.Errorf("fsx600: block index %d exceeds max file size: %w", n, ErrInvalid)
	}
}

func readPtrBlock(v *Volume, blockNo uint32) ([PtrsPerBlock]uint32, error) {
	var ptrs [PtrsPerBlock]uint32
	buf, err := v.dev.ReadBlock(blockNo)
	if err != nil {
		return ptrs, err
	}
	for i := range ptrs {
		ptrs[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return ptrs, nil
}

func encodePtrBlock(ptrs [PtrsPerBlock]uint32) []byte {
	buf := make([]byte, BlockSize)
	for i, p := range ptrs {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], p)
	}
	return buf
}

// blockFor resolves the absolute device block number holding logical
// block n of inode inum. When allocate is true and the path to n
// contains holes (a zero pointer), it allocates blocks as it goes,
// zero-filling freshly allocated indirect blocks. On allocation failure
// partway through a multi-level path, the newly allocated blocks in
// *this* call are rolled back (freed again) before returning ErrNoSpace.
func (v *Volume) blockFor(inum uint32, n uint32, allocate bool) (uint32, error) {
	loc, err := locateBlock(n)
	if err != nil {
		return 0, err
	}

	in := v.inode(inum)
	var allocated []uint32
	rollback := func() {
		for _, b := range allocated {
			v.freeBlock(b)
		}
	}

	allocBlock := func() (uint32, error) {
		b, ok := v.allocBlock()
		if !ok {
			return 0, fmt.Errorf("fsx600: no free blocks: %w", ErrNoSpace)
		}
		if err := v.zeroBlock(b); err != nil {
			v.freeBlock(b)
			return 0, err
		}
		allocated = append(allocated, b)
		return b, nil
	}

	switch l := loc.(type) {
	case directLocator:
		if in.Direct[l.slot] == 0 {
			if !allocate {
				return 0, nil
			}
			b, err := allocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			in.Direct[l.slot] = b
			v.markInode(inum)
		}
		return in.Direct[l.slot], nil

	case singleIndirectLocator:
		ptrBlk := in.Indir1
		if ptrBlk == 0 {
			if !allocate {
				return 0, nil
			}
			b, err := allocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			ptrBlk = b
			in.Indir1 = b
			v.markInode(inum)
		}
		ptrs, err := readPtrBlock(v, ptrBlk)
		if err != nil {
			rollback()
			return 0, err
		}
		if ptrs[l.slot] == 0 {
			if !allocate {
				return 0, nil
			}
			b, err := allocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			ptrs[l.slot] = b
			if err := v.dev.WriteBlock(ptrBlk, encodePtrBlock(ptrs)); err != nil {
				rollback()
				return 0, err
			}
		}
		return ptrs[l.slot], nil

	case doubleIndirectLocator:
		outerBlk := in.Indir2
		if outerBlk == 0 {
			if !allocate {
				return 0, nil
			}
			b, err := allocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			outerBlk = b
			in.Indir2 = b
			v.markInode(inum)
		}
		outerPtrs, err := readPtrBlock(v, outerBlk)
		if err != nil {
			rollback()
			return 0, err
		}
		innerBlk := outerPtrs[l.outer]
		if innerBlk == 0 {
			if !allocate {
				return 0, nil
			}
			b, err := allocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			innerBlk = b
			outerPtrs[l.outer] = b
			if err := v.dev.WriteBlock(outerBlk, encodePtrBlock(outerPtrs)); err != nil {
				rollback()
				return 0, err
			}
		}
		innerPtrs, err := readPtrBlock(v, innerBlk)
		if err != nil {
			rollback()
			return 0, err
		}
		if innerPtrs[l.inner] == 0 {
			if !allocate {
				return 0, nil
			}
			b, err := allocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			innerPtrs[l.inner] = b
			if err := v.dev.WriteBlock(innerBlk, encodePtrBlock(innerPtrs)); err != nil {
				rollback()
				return 0, err
			}
		}
		return innerPtrs[l.inner], nil
	}

	return 0, fmt.Errorf("fsx600: unreachable block locator: %w", ErrInvalid)
}

// truncateTree frees every allocated block of inode inum whose logical
// index is >= keepBlocks, including now-empty indirect pointer blocks.
func (v *Volume) truncateTree(inum uint32, keepBlocks uint32) error {
	in := v.inode(inum)

	for i := keepBlocks; i < NDirect; i++ {
		if in.Direct[i] != 0 {
			v.freeBlock(in.Direct[i])
			in.Direct[i] = 0
			v.markInode(inum)
		}
	}

	if in.Indir1 != 0 {
		start := int64(keepBlocks) - NDirect
		if start < 0 {
			start = 0
		}
		if start < PtrsPerBlock {
			ptrs, err := readPtrBlock(v, in.Indir1)
			if err != nil {
				return err
			}
			changed := false
			for i := int(start); i < PtrsPerBlock; i++ {
				if ptrs[i] != 0 {
					v.freeBlock(ptrs[i])
					ptrs[i] = 0
					changed = true
				}
			}
			if changed {
				if err := v.dev.WriteBlock(in.Indir1, encodePtrBlock(ptrs)); err != nil {
					return err
				}
			}
			if keepBlocks <= NDirect {
				v.freeBlock(in.Indir1)
				in.Indir1 = 0
				v.markInode(inum)
			}
		}
	}

	if in.Indir2 != 0 {
		base := int64(NDirect) + PtrsPerBlock
		start := int64(keepBlocks) - base
		if start < 0 {
			start = 0
		}
		startOuter := uint32(start / PtrsPerBlock)
		startInner := uint32(start % PtrsPerBlock)

		outerPtrs, err := readPtrBlock(v, in.Indir2)
		if err != nil {
			return err
		}
		outerChanged := false
		for o := startOuter; o < PtrsPerBlock; o++ {
			innerBlk := outerPtrs[o]
			if innerBlk == 0 {
				continue
			}
			innerPtrs, err := readPtrBlock(v, innerBlk)
			if err != nil {
				return err
			}
			from := uint32(0)
			if o == startOuter {
				from = startInner
			}
			innerChanged := false
			for i := from; i < PtrsPerBlock; i++ {
				if innerPtrs[i] != 0 {
					v.freeBlock(innerPtrs[i])
					innerPtrs[i] = 0
					innerChanged = true
				}
			}
			if innerChanged {
				if err := v.dev.WriteBlock(innerBlk, encodePtrBlock(innerPtrs)); err != nil {
					return err
				}
			}
			if from == 0 {
				v.freeBlock(innerBlk)
				outerPtrs[o] = 0
				outerChanged = true
			}
		}
		if outerChanged {
			if err := v.dev.WriteBlock(in.Indir2, encodePtrBlock(outerPtrs)); err != nil {
				return err
			}
		}
		if keepBlocks <= uint32(base) {
			v.freeBlock(in.Indir2)
			in.Indir2 = 0
			v.markInode(inum)
		}
	}

	return nil
}
