package fsx600

import "github.com/google/btree"

// dirtyBlock is one pending metadata write: an absolute block number and
// the in-memory bytes that must be written there.
type dirtyBlock struct {
	blockNo uint32
	buf     []byte
}

func lessDirtyBlock(a, b dirtyBlock) bool {
	return a.blockNo < b.blockNo
}

// dirtyCache tracks metadata blocks that have diverged from the on-disk
// image. Flushing walks the tree in ascending block-number order, which
// is what makes bitmap writes land before the inode writes that depend
// on them, a property the B-tree gives us for free instead of a manual
// sort over a flat table.
type dirtyCache struct {
	tree *btree.BTreeG[dirtyBlock]
}

func newDirtyCache() *dirtyCache {
	return &dirtyCache{tree: btree.NewG(32, lessDirtyBlock)}
}

// mark records buf as the pending content of blockNo. buf is not copied.
// The bitmap callers pass the live in-memory slice, so later in-place
// edits to a bitmap are reflected in the next flush; markInode passes a
// freshly encoded copy of the inode block, so inode edits made after it
// reach the disk only through a later markInode.
func (c *dirtyCache) mark(blockNo uint32, buf []byte) {
	c.tree.ReplaceOrInsert(dirtyBlock{blockNo: blockNo, buf: buf})
}

// flush writes every pending block to dev in ascending block-number
// order and clears the cache.
func (c *dirtyCache) flush(dev *BlockDevice) error {
	var firstErr error
	c.tree.Ascend(func(db dirtyBlock) bool {
		if err := dev.WriteBlock(db.blockNo, db.buf); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	c.tree.Clear(false)
	return firstErr
}

// len reports the number of pending dirty blocks, for diagnostics.
func (c *dirtyCache) len() int {
	return c.tree.Len()
}
