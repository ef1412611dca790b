package fsx600

import (
	"fmt"
	"io"
)

// BlockDevice exposes fixed-size block reads and writes over a raw image.
// It performs no caching of its own — the dirty metadata cache above it
// is the only cache the core provides.
type BlockDevice struct {
	r io.ReaderAt
	w io.WriterAt
}

// NewBlockDevice wraps dev (typically an *os.File opened on the image)
// as a BlockDevice. dev must implement at least io.ReaderAt; if it also
// implements io.WriterAt, writes are permitted.
func NewBlockDevice(dev io.ReaderAt) *BlockDevice {
	bd := &BlockDevice{r: dev}
	if w, ok := dev.(io.WriterAt); ok {
		bd.w = w
	}
	return bd
}

// ReadAt reads n blocks starting at blockNo into dest, which must be at
// least n*BlockSize bytes long.
func (d *BlockDevice) ReadAt(blockNo, n uint32, dest []byte) error {
	need := int(n) * BlockSize
	if len(dest) < need {
		return fmt.Errorf("fsx600: read buffer too small: %w", ErrInvalid)
	}
	_, err := d.r.ReadAt(dest[:need], int64(blockNo)*BlockSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("fsx600: block read %d..%d: %w: %v", blockNo, blockNo+n, ErrIO, err)
	}
	return nil
}

// WriteAt writes n blocks starting at blockNo from src, which must be at
// least n*BlockSize bytes long.
func (d *BlockDevice) WriteAt(blockNo, n uint32, src []byte) error {
	if d.w == nil {
		return fmt.Errorf("fsx600: device is read-only: %w", ErrIO)
	}
	need := int(n) * BlockSize
	if len(src) < need {
		return fmt.Errorf("fsx600: write buffer too small: %w", ErrInvalid)
	}
	if _, err := d.w.WriteAt(src[:need], int64(blockNo)*BlockSize); err != nil {
		return fmt.Errorf("fsx600: block write %d..%d: %w: %v", blockNo, blockNo+n, ErrIO, err)
	}
	return nil
}

// ReadBlock reads exactly one block into a freshly allocated buffer.
func (d *BlockDevice) ReadBlock(blockNo uint32) ([]byte, error) {
	buf := make([]byte, BlockSize)
	if err := d.ReadAt(blockNo, 1, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBlock writes exactly one block.
func (d *BlockDevice) WriteBlock(blockNo uint32, buf []byte) error {
	return d.WriteAt(blockNo, 1, buf)
}
