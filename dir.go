package fsx600

import "fmt"

// dirLookup searches directory inode dirInum for an entry named name
// and returns it, scanning data blocks in logical order.
func (v *Volume) dirLookup(dirInum uint32, name string) (dirent, bool, error) {
	in := v.inode(dirInum)
	nblocks := blocksForSize(in.Size)
	buf := make([]byte, BlockSize)
	for idx := uint32(0); idx < nblocks; idx++ {
		blk, err := v.blockFor(dirInum, idx, false)
		if err != nil {
			return dirent{}, false, err
		}
		if blk == 0 {
			continue
		}
		if err := v.dev.ReadAt(blk, 1, buf); err != nil {
			return dirent{}, false, err
		}
		for slot := 0; slot < DirentsPerBlock; slot++ {
			d := decodeDirent(buf[slot*direntSize : (slot+1)*direntSize])
			if d.Valid && d.Name == name {
				return d, true, nil
			}
		}
	}
	return dirent{}, false, nil
}

// dirEntries returns every valid entry in directory inode dirInum, in
// on-disk order.
func (v *Volume) dirEntries(dirInum uint32) ([]dirent, error) {
	in := v.inode(dirInum)
	nblocks := blocksForSize(in.Size)
	buf := make([]byte, BlockSize)
	var out []dirent
	for idx := uint32(0); idx < nblocks; idx++ {
		blk, err := v.blockFor(dirInum, idx, false)
		if err != nil {
			return nil, err
		}
		if blk == 0 {
			continue
		}
		if err := v.dev.ReadAt(blk, 1, buf); err != nil {
			return nil, err
		}
		for slot := 0; slot < DirentsPerBlock; slot++ {
			d := decodeDirent(buf[slot*direntSize : (slot+1)*direntSize])
			if d.Valid {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// isDirEmpty reports whether directory inode dirInum contains only "."
// and "..".
func (v *Volume) isDirEmpty(dirInum uint32) (bool, error) {
	entries, err := v.dirEntries(dirInum)
	if err != nil {
		return false, err
	}
	for _, d := range entries {
		if d.Name != "." && d.Name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// dirAddEntry writes a new (inode, isDir, name) entry into the first
// free slot of directory inode dirInum, extending the directory by one
// block if no free slot exists.
func (v *Volume) dirAddEntry(dirInum uint32, name string, childInum uint32, isDir bool) error {
	in := v.inode(dirInum)
	nblocks := blocksForSize(in.Size)
	buf := make([]byte, BlockSize)

	for idx := uint32(0); idx < nblocks; idx++ {
		blk, err := v.blockFor(dirInum, idx, false)
		if err != nil {
			return err
		}
		if blk == 0 {
			continue
		}
		if err := v.dev.ReadAt(blk, 1, buf); err != nil {
			return err
		}
		for slot := 0; slot < DirentsPerBlock; slot++ {
			d := decodeDirent(buf[slot*direntSize : (slot+1)*direntSize])
			if !d.Valid {
				nd := dirent{Valid: true, IsDir: isDir, Inode: childInum, Name: name}
				nd.encode(buf[slot*direntSize : (slot+1)*direntSize])
				if err := v.dev.WriteBlock(blk, buf); err != nil {
					return err
				}
				in.Size += direntSize
				v.markInode(dirInum)
				return nil
			}
		}
	}

	// No free slot: allocate a new directory block and write the entry
	// into its first slot; the rest of the block is already zeroed
	// (invalid) by blockFor's zero-fill-on-allocate.
	blk, err := v.blockFor(dirInum, nblocks, true)
	if err != nil {
		return err
	}
	if err := v.dev.ReadAt(blk, 1, buf); err != nil {
		return err
	}
	nd := dirent{Valid: true, IsDir: isDir, Inode: childInum, Name: name}
	nd.encode(buf[0:direntSize])
	if err := v.dev.WriteBlock(blk, buf); err != nil {
		return err
	}

	in.Size += direntSize
	v.markInode(dirInum)
	return nil
}

// dirRemoveEntry clears the entry named name from directory inode
// dirInum by marking its slot invalid.
func (v *Volume) dirRemoveEntry(dirInum uint32, name string) error {
	in := v.inode(dirInum)
	nblocks := blocksForSize(in.Size)
	buf := make([]byte, BlockSize)

	for idx := uint32(0); idx < nblocks; idx++ {
		blk, err := v.blockFor(dirInum, idx, false)
		if err != nil {
			return err
		}
		if blk == 0 {
			continue
		}
		if err := v.dev.ReadAt(blk, 1, buf); err != nil {
			return err
		}
		for slot := 0; slot < DirentsPerBlock; slot++ {
			d := decodeDirent(buf[slot*direntSize : (slot+1)*direntSize])
			if d.Valid && d.Name == name {
				var cleared dirent
				cleared.encode(buf[slot*direntSize : (slot+1)*direntSize])
				if err := v.dev.WriteBlock(blk, buf); err != nil {
					return err
				}
				if in.Size >= direntSize {
					in.Size -= direntSize
				}
				v.markInode(dirInum)
				return nil
			}
		}
	}
	return fmt.Errorf("fsx600: directory entry %q not found: %w", name, ErrNotExist)
}

// dirRetarget rewrites the inode number of an existing entry named
// name in place, used by Rename to overwrite an existing destination
// entry without disturbing slot order.
func (v *Volume) dirRetarget(dirInum uint32, name string, newInum uint32, isDir bool) error {
	in := v.inode(dirInum)
	nblocks := blocksForSize(in.Size)
	buf := make([]byte, BlockSize)

	for idx := uint32(0); idx < nblocks; idx++ {
		blk, err := v.blockFor(dirInum, idx, false)
		if err != nil {
			return err
		}
		if blk == 0 {
			continue
		}
		if err := v.dev.ReadAt(blk, 1, buf); err != nil {
			return err
		}
		for slot := 0; slot < DirentsPerBlock; slot++ {
			d := decodeDirent(buf[slot*direntSize : (slot+1)*direntSize])
			if d.Valid && d.Name == name {
				nd := dirent{Valid: true, IsDir: isDir, Inode: newInum, Name: name}
				nd.encode(buf[slot*direntSize : (slot+1)*direntSize])
				return v.dev.WriteBlock(blk, buf)
			}
		}
	}
	return fmt.Errorf("fsx600: directory entry %q not found: %w", name, ErrNotExist)
}

// initDir writes a brand-new directory's "." and ".." entries into a
// freshly allocated inode.
func (v *Volume) initDir(dirInum, parentInum uint32) error {
	if err := v.dirAddEntry(dirInum, ".", dirInum, true); err != nil {
		return err
	}
	if err := v.dirAddEntry(dirInum, "..", parentInum, true); err != nil {
		return err
	}
	return nil
}
