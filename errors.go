package fsx600

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrInvalidImage is returned when the block device does not carry the fsx600 magic number.
	ErrInvalidImage = errors.New("invalid image, fsx600 superblock signature not found")

	// ErrNotExist is returned when a path component does not exist.
	ErrNotExist = errors.New("no such file or directory")

	// ErrNotDir is returned when an intermediate path component is not a directory.
	ErrNotDir = errors.New("not a directory")

	// ErrIsDir is returned by operations that reject directories.
	ErrIsDir = errors.New("is a directory")

	// ErrExist is returned when creating an entry that already exists.
	ErrExist = errors.New("file exists")

	// ErrNoSpace is returned when no free block, inode, or directory slot is available.
	ErrNoSpace = errors.New("no space left on device")

	// ErrInvalid is returned for invalid arguments: holes, shrink-only truncate violations,
	// cross-directory rename, or operations on "." / "..".
	ErrInvalid = errors.New("invalid argument")

	// ErrNotEmpty is returned by Rmdir on a non-empty directory.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrIO is returned when the underlying block device fails.
	ErrIO = errors.New("I/O error")

	// ErrLoop is returned when symlink expansion exceeds the maximum chain depth.
	ErrLoop = errors.New("too many levels of symbolic links")

	// ErrNotSupported is returned by operations this core does not implement.
	ErrNotSupported = errors.New("operation not supported")
)
