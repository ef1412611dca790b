package fsx600

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// Superblock holds the file system parameters stored in block 0.
type Superblock struct {
	Magic           uint32
	InodeMapSize    uint32 // blocks
	InodeRegionSize uint32 // blocks
	BlockMapSize    uint32 // blocks
	NumBlocks       uint32 // total blocks on the volume
	RootInode       uint32 // always 1
}

// binarySize returns the number of non-padding bytes the superblock occupies.
func (s *Superblock) binarySize() int {
	return int(reflect.TypeOf(*s).Size())
}

// MarshalBinary encodes the superblock into a zero-padded BlockSize buffer,
// little-endian, one field after another in declaration order.
func (s *Superblock) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	v := reflect.ValueOf(*s)
	for i := 0; i < v.NumField(); i++ {
		if err := binary.Write(buf, binary.LittleEndian, v.Field(i).Interface()); err != nil {
			return nil, err
		}
	}
	out := make([]byte, BlockSize)
	copy(out, buf.Bytes())
	return out, nil
}

// UnmarshalBinary decodes a superblock from a BlockSize buffer using
// reflection over the field list, since this runs exactly once per mount
// and the struct has no variable-length fields.
func (s *Superblock) UnmarshalBinary(data []byte) error {
	if len(data) < s.binarySize() {
		return fmt.Errorf("fsx600: short superblock read: %w", ErrIO)
	}
	r := bytes.NewReader(data)
	v := reflect.ValueOf(s).Elem()
	for i := 0; i < v.NumField(); i++ {
		if err := binary.Read(r, binary.LittleEndian, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	if s.Magic != Magic {
		return ErrInvalidImage
	}
	return nil
}
