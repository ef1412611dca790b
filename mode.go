package fsx600

import (
	"io/fs"
)

// fsx600 on-disk inode mode fields are POSIX mode_t values, so use these
// constants to translate them to and from io/fs.FileMode:
// based on: https://golang.org/src/os/stat_linux.go

const (
	S_IFMT  = 0xf000
	S_IFREG = 0x8000
	S_IFDIR = 0x4000
	S_IFLNK = 0xa000

	S_ISVTX = 0x200
	S_ISGID = 0x400
	S_ISUID = 0x800
)

// unixToMode translates an on-disk mode_t value into an io/fs.FileMode.
// Only the three file types the format supports (regular, directory,
// symlink) are recognized; anything else is reported as a regular file.
func unixToMode(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0777)

	switch {
	case mode&S_IFMT == S_IFDIR:
		res |= fs.ModeDir
	case mode&S_IFMT == S_IFLNK:
		res |= fs.ModeSymlink
	}

	if mode&S_ISGID == S_ISGID {
		res |= fs.ModeSetgid
	}
	if mode&S_ISUID == S_ISUID {
		res |= fs.ModeSetuid
	}
	if mode&S_ISVTX == S_ISVTX {
		res |= fs.ModeSticky
	}

	return res
}

// modeToUnix is the inverse of unixToMode.
func modeToUnix(mode fs.FileMode) uint32 {
	res := uint32(mode.Perm())

	switch {
	case mode&fs.ModeDir == fs.ModeDir:
		res |= S_IFDIR
	case mode&fs.ModeSymlink == fs.ModeSymlink:
		res |= S_IFLNK
	default:
		res |= S_IFREG
	}

	if mode&fs.ModeSetgid == fs.ModeSetgid {
		res |= S_ISGID
	}
	if mode&fs.ModeSetuid == fs.ModeSetuid {
		res |= S_ISUID
	}
	if mode&fs.ModeSticky == fs.ModeSticky {
		res |= S_ISVTX
	}

	return res
}

// isDirMode reports whether mode's type bits mark a directory.
func isDirMode(mode uint32) bool {
	return mode&S_IFMT == S_IFDIR
}

// isSymlinkMode reports whether mode's type bits mark a symbolic link.
func isSymlinkMode(mode uint32) bool {
	return mode&S_IFMT == S_IFLNK
}
