package fsx600

import (
	"fmt"
	"strings"
)

// splitPath breaks an absolute or relative slash-separated path into
// its non-empty components. "." and ".." are not special-cased here —
// they are ordinary directory entries written by initDir and resolved
// by ordinary lookup.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveFrom walks comps starting at directory inode startDir,
// dereferencing symlinks encountered along the way (and the final
// component too, when followLeaf is set). depth is a shared counter
// across the whole outer resolution: every symlink dereference
// anywhere in the chain increments it, and exceeding maxSymlinkDepth
// fails with ErrLoop.
func (v *Volume) resolveFrom(startDir uint32, comps []string, followLeaf bool, depth *int) (uint32, error) {
	cur := startDir
	for i, comp := range comps {
		in := v.inode(cur)
		if !in.IsDir() {
			return 0, fmt.Errorf("fsx600: %w", ErrNotDir)
		}
		d, ok, err := v.dirLookup(cur, comp)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("fsx600: %w", ErrNotExist)
		}

		next := d.Inode
		isLast := i == len(comps)-1
		nin := v.inode(next)
		if nin.IsSymlink() && (!isLast || followLeaf) {
			*depth++
			if *depth > v.maxSymlinkDepth {
				return 0, fmt.Errorf("fsx600: %w", ErrLoop)
			}
			target, err := v.readSymlinkTarget(next)
			if err != nil {
				return 0, err
			}
			base := cur
			if strings.HasPrefix(target, "/") {
				base = RootInode
			}
			resolved, err := v.resolveFrom(base, splitPath(target), true, depth)
			if err != nil {
				return 0, err
			}
			next = resolved
		}
		cur = next
	}
	return cur, nil
}

// resolvePath resolves an absolute path to the inode it names.
// followLeaf controls whether a symlink as the final component is
// itself dereferenced (Stat semantics) or returned as-is (Lstat
// semantics).
func (v *Volume) resolvePath(path string, followLeaf bool) (uint32, error) {
	depth := 0
	return v.resolveFrom(RootInode, splitPath(path), followLeaf, &depth)
}

// resolveParent resolves the directory containing path's final
// component, fully dereferencing symlinks along the parent chain, and
// returns that directory's inode plus the final component's literal
// name (its own existence is not checked).
func (v *Volume) resolveParent(path string) (uint32, string, error) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return 0, "", fmt.Errorf("fsx600: path has no parent: %w", ErrInvalid)
	}
	leaf := comps[len(comps)-1]
	depth := 0
	parentInum, err := v.resolveFrom(RootInode, comps[:len(comps)-1], true, &depth)
	if err != nil {
		return 0, "", err
	}
	if !v.inode(parentInum).IsDir() {
		return 0, "", fmt.Errorf("fsx600: %w", ErrNotDir)
	}
	return parentInum, leaf, nil
}

// readSymlinkTarget reads the stored target string of a symlink inode.
func (v *Volume) readSymlinkTarget(inum uint32) (string, error) {
	in := v.inode(inum)
	buf := make([]byte, in.Size)
	if _, err := v.readAt(inum, buf, 0); err != nil {
		return "", err
	}
	return string(buf), nil
}
