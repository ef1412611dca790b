package fsx600

import (
	"fmt"
	"io/fs"
	"time"
)

// FileInfo is the io/fs.FileInfo view of an inode, returned by Stat and
// Lstat.
type FileInfo struct {
	name  string
	inum  uint32
	inode Inode
}

func (fi FileInfo) Name() string       { return fi.name }
func (fi FileInfo) Size() int64        { return int64(fi.inode.Size) }
func (fi FileInfo) Mode() fs.FileMode  { return fi.inode.FileMode() }
func (fi FileInfo) ModTime() time.Time { return time.Unix(int64(fi.inode.Mtime), 0) }
func (fi FileInfo) IsDir() bool        { return fi.inode.IsDir() }
func (fi FileInfo) Sys() any           { return fi.inode }

// Inum returns the inode number backing this FileInfo.
func (fi FileInfo) Inum() uint32 { return fi.inum }

// DirEntry is one listed entry of a ReadDir call.
type DirEntry struct {
	Name  string
	Inode uint32
	IsDir bool
}

// StatfsResult reports aggregate volume occupancy. Totals count every
// block and inode, metadata included.
type StatfsResult struct {
	BlockSize   uint32
	TotalBlocks uint32
	FreeBlocks  uint32
	TotalInodes uint32
	FreeInodes  uint32
}

func (v *Volume) statInum(inum uint32, name string) FileInfo {
	return FileInfo{name: name, inum: inum, inode: *v.inode(inum)}
}

// Stat resolves path, following a trailing symlink, and returns its
// attributes.
func (v *Volume) Stat(path string) (FileInfo, error) {
	inum, err := v.resolvePath(path, true)
	if err != nil {
		return FileInfo{}, err
	}
	return v.statInum(inum, leafName(path)), nil
}

// Lstat resolves path without following a trailing symlink.
func (v *Volume) Lstat(path string) (FileInfo, error) {
	inum, err := v.resolvePath(path, false)
	if err != nil {
		return FileInfo{}, err
	}
	return v.statInum(inum, leafName(path)), nil
}

func leafName(path string) string {
	comps := splitPath(path)
	if len(comps) == 0 {
		return "/"
	}
	return comps[len(comps)-1]
}

// Chmod replaces path's permission bits, preserving its file-type bits.
func (v *Volume) Chmod(path string, mode fs.FileMode) error {
	inum, err := v.resolvePath(path, true)
	if err != nil {
		return err
	}
	in := v.inode(inum)
	in.Mode = (in.Mode & S_IFMT) | (modeToUnix(mode) &^ S_IFMT)
	in.Ctime = v.now()
	v.markInode(inum)
	return nil
}

// Utime sets path's modification time. ctime is deliberately left
// untouched.
func (v *Volume) Utime(path string, mtime uint32) error {
	inum, err := v.resolvePath(path, true)
	if err != nil {
		return err
	}
	in := v.inode(inum)
	in.Mtime = mtime
	v.markInode(inum)
	return nil
}

func (v *Volume) newInode(mode uint32, nlink uint32) (uint32, error) {
	inum, ok := v.allocInode()
	if !ok {
		return 0, fmt.Errorf("fsx600: no free inodes: %w", ErrNoSpace)
	}
	in := v.inode(inum)
	*in = Inode{}
	in.Mode = mode
	in.Nlink = nlink
	in.Ctime = v.now()
	in.Mtime = in.Ctime
	v.markInode(inum)
	return inum, nil
}

// Mkdir creates an empty directory at path, populated with "." and
// ".." entries, and bumps the parent's link count for the new ".."
// reference back to it.
func (v *Volume) Mkdir(path string, mode fs.FileMode) error {
	parentInum, leaf, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	if _, ok, err := v.dirLookup(parentInum, leaf); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("fsx600: %s: %w", path, ErrExist)
	}

	childInum, err := v.newInode((modeToUnix(mode)&^S_IFMT)|S_IFDIR, 2)
	if err != nil {
		return err
	}
	if err := v.initDir(childInum, parentInum); err != nil {
		v.freeInode(childInum)
		return err
	}
	if err := v.dirAddEntry(parentInum, leaf, childInum, true); err != nil {
		v.freeInode(childInum)
		return err
	}
	parentIn := v.inode(parentInum)
	parentIn.Nlink++
	v.markInode(parentInum)
	return nil
}

// Mknod creates a plain empty regular file at path: its own regular-file
// path, distinct from Mkdir, with no "." / ".." entries.
func (v *Volume) Mknod(path string, mode fs.FileMode) error {
	parentInum, leaf, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	if _, ok, err := v.dirLookup(parentInum, leaf); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("fsx600: %s: %w", path, ErrExist)
	}

	childInum, err := v.newInode((modeToUnix(mode)&^S_IFMT)|S_IFREG, 1)
	if err != nil {
		return err
	}
	if err := v.dirAddEntry(parentInum, leaf, childInum, false); err != nil {
		v.freeInode(childInum)
		return err
	}
	return nil
}

// decrementLink drops inum's link count by one, freeing its data
// blocks and the inode itself once it reaches zero.
func (v *Volume) decrementLink(inum uint32) error {
	in := v.inode(inum)
	in.Nlink--
	if in.Nlink == 0 {
		if err := v.truncateTree(inum, 0); err != nil {
			return err
		}
		v.freeInode(inum)
		return nil
	}
	v.markInode(inum)
	return nil
}

// Unlink removes a non-directory entry from its parent directory.
func (v *Volume) Unlink(path string) error {
	parentInum, leaf, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	d, ok, err := v.dirLookup(parentInum, leaf)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("fsx600: %s: %w", path, ErrNotExist)
	}
	if d.IsDir {
		return fmt.Errorf("fsx600: %s: %w", path, ErrIsDir)
	}
	if err := v.dirRemoveEntry(parentInum, leaf); err != nil {
		return err
	}
	return v.decrementLink(d.Inode)
}

// Rmdir removes an empty directory entry from its parent directory.
func (v *Volume) Rmdir(path string) error {
	parentInum, leaf, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	d, ok, err := v.dirLookup(parentInum, leaf)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("fsx600: %s: %w", path, ErrNotExist)
	}
	if !d.IsDir {
		return fmt.Errorf("fsx600: %s: %w", path, ErrNotDir)
	}
	empty, err := v.isDirEmpty(d.Inode)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("fsx600: %s: %w", path, ErrNotEmpty)
	}
	if err := v.dirRemoveEntry(parentInum, leaf); err != nil {
		return err
	}
	parentIn := v.inode(parentInum)
	parentIn.Nlink--
	v.markInode(parentInum)

	if err := v.truncateTree(d.Inode, 0); err != nil {
		return err
	}
	v.freeInode(d.Inode)
	return nil
}

// Rename moves an entry to a new name within the *same* parent
// directory. Cross-directory rename is not supported.
func (v *Volume) Rename(oldPath, newPath string) error {
	oldParent, oldLeaf, err := v.resolveParent(oldPath)
	if err != nil {
		return err
	}
	newParent, newLeaf, err := v.resolveParent(newPath)
	if err != nil {
		return err
	}
	if oldLeaf == "." || oldLeaf == ".." || newLeaf == "." || newLeaf == ".." {
		return fmt.Errorf("fsx600: rename of %q or %q: %w", oldLeaf, newLeaf, ErrInvalid)
	}
	if oldParent != newParent {
		return fmt.Errorf("fsx600: cross-directory rename: %w", ErrInvalid)
	}

	src, ok, err := v.dirLookup(oldParent, oldLeaf)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("fsx600: %s: %w", oldPath, ErrNotExist)
	}
	if oldLeaf == newLeaf {
		return nil
	}

	dst, dstOk, err := v.dirLookup(oldParent, newLeaf)
	if err != nil {
		return err
	}
	if dstOk {
		if dst.IsDir != src.IsDir {
			return fmt.Errorf("fsx600: %s: %w", newPath, ErrInvalid)
		}
		if dst.IsDir {
			empty, err := v.isDirEmpty(dst.Inode)
			if err != nil {
				return err
			}
			if !empty {
				return fmt.Errorf("fsx600: %s: %w", newPath, ErrNotEmpty)
			}
			parentIn := v.inode(oldParent)
			parentIn.Nlink--
			v.markInode(oldParent)
			if err := v.truncateTree(dst.Inode, 0); err != nil {
				return err
			}
			v.freeInode(dst.Inode)
		} else if err := v.decrementLink(dst.Inode); err != nil {
			return err
		}
		if err := v.dirRetarget(oldParent, newLeaf, src.Inode, src.IsDir); err != nil {
			return err
		}
	} else if err := v.dirAddEntry(oldParent, newLeaf, src.Inode, src.IsDir); err != nil {
		return err
	}

	return v.dirRemoveEntry(oldParent, oldLeaf)
}

// Link creates a new hard link to an existing non-directory file.
// Directories can never be hard-linked.
func (v *Volume) Link(oldPath, newPath string) error {
	srcInum, err := v.resolvePath(oldPath, false)
	if err != nil {
		return err
	}
	srcIn := v.inode(srcInum)
	if srcIn.IsDir() {
		return fmt.Errorf("fsx600: %s: %w", oldPath, ErrIsDir)
	}

	parentInum, leaf, err := v.resolveParent(newPath)
	if err != nil {
		return err
	}
	if _, ok, err := v.dirLookup(parentInum, leaf); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("fsx600: %s: %w", newPath, ErrExist)
	}

	if err := v.dirAddEntry(parentInum, leaf, srcInum, false); err != nil {
		return err
	}
	srcIn.Nlink++
	v.markInode(srcInum)
	return nil
}

// Symlink creates a new symbolic link at linkPath pointing at target.
// target is stored verbatim, absolute or relative, and interpreted at
// resolution time by resolveFrom.
func (v *Volume) Symlink(target, linkPath string) error {
	parentInum, leaf, err := v.resolveParent(linkPath)
	if err != nil {
		return err
	}
	if _, ok, err := v.dirLookup(parentInum, leaf); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("fsx600: %s: %w", linkPath, ErrExist)
	}

	childInum, err := v.newInode(S_IFLNK|0777, 1)
	if err != nil {
		return err
	}
	if _, err := v.writeAt(childInum, []byte(target), 0); err != nil {
		v.freeInode(childInum)
		return err
	}
	if err := v.dirAddEntry(parentInum, leaf, childInum, false); err != nil {
		v.freeInode(childInum)
		return err
	}
	return nil
}

// Readlink returns the stored target of the symlink at path.
func (v *Volume) Readlink(path string) (string, error) {
	inum, err := v.resolvePath(path, false)
	if err != nil {
		return "", err
	}
	in := v.inode(inum)
	if !in.IsSymlink() {
		return "", fmt.Errorf("fsx600: %s: %w", path, ErrInvalid)
	}
	return v.readSymlinkTarget(inum)
}

// Truncate changes the size of the regular file at path.
func (v *Volume) Truncate(path string, size uint32) error {
	inum, err := v.resolvePath(path, true)
	if err != nil {
		return err
	}
	in := v.inode(inum)
	if in.IsDir() {
		return fmt.Errorf("fsx600: %s: %w", path, ErrIsDir)
	}
	return v.truncate(inum, size)
}

// ReadAt reads file data from path at the given offset.
func (v *Volume) ReadAt(path string, p []byte, off int64) (int, error) {
	inum, err := v.resolvePath(path, true)
	if err != nil {
		return 0, err
	}
	if v.inode(inum).IsDir() {
		return 0, fmt.Errorf("fsx600: %s: %w", path, ErrIsDir)
	}
	return v.readAt(inum, p, off)
}

// WriteAt writes file data to path at the given offset, extending the
// file as needed.
func (v *Volume) WriteAt(path string, p []byte, off int64) (int, error) {
	inum, err := v.resolvePath(path, true)
	if err != nil {
		return 0, err
	}
	if v.inode(inum).IsDir() {
		return 0, fmt.Errorf("fsx600: %s: %w", path, ErrIsDir)
	}
	return v.writeAt(inum, p, off)
}

// ReadDir lists the entries of the directory at path, excluding "."
// and "..".
func (v *Volume) ReadDir(path string) ([]DirEntry, error) {
	inum, err := v.resolvePath(path, true)
	if err != nil {
		return nil, err
	}
	in := v.inode(inum)
	if !in.IsDir() {
		return nil, fmt.Errorf("fsx600: %s: %w", path, ErrNotDir)
	}
	entries, err := v.dirEntries(inum)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, d := range entries {
		if d.Name == "." || d.Name == ".." {
			continue
		}
		out = append(out, DirEntry{Name: d.Name, Inode: d.Inode, IsDir: d.IsDir})
	}
	return out, nil
}

// Statfs reports aggregate occupancy of the volume.
func (v *Volume) Statfs() StatfsResult {
	return StatfsResult{
		BlockSize:   BlockSize,
		TotalBlocks: v.sb.NumBlocks,
		FreeBlocks:  v.blockMap.freeCount(),
		TotalInodes: uint32(len(v.inodes)),
		FreeInodes:  v.inodeMap.freeCount(),
	}
}

// Flush writes out any pending metadata changes without closing the
// volume.
func (v *Volume) Flush() error {
	return v.flushMetadata()
}
