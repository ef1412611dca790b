package fsx600_test

import (
	"sync"
	"testing"

	"github.com/fsx600/fsx600"
	"github.com/fsx600/fsx600/fsxfmt"
	"github.com/stretchr/testify/require"
)

// memDevice is an in-memory io.ReaderAt/io.WriterAt backing a volume
// image for tests, standing in for a mounted file the way the
// teacher's tests construct fixtures from an in-memory reader.
type memDevice struct {
	mu   sync.Mutex
	data []byte
}

func newMemDevice(size int) *memDevice {
	return &memDevice{data: make([]byte, size)}
}

func (m *memDevice) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memDevice) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	need := int(off) + len(p)
	if need > len(m.data) {
		grown := make([]byte, need)
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[off:], p)
	return n, nil
}

// newFixture builds a fresh numBlocks/numInodes volume and mounts it,
// returning the Volume and its backing device for further direct
// inspection.
func newFixture(numBlocks, numInodes uint32) (*fsx600.Volume, *memDevice, error) {
	dev := newMemDevice(int(numBlocks) * fsx600.BlockSize)
	if err := fsxfmt.Create(dev, numBlocks, numInodes); err != nil {
		return nil, nil, err
	}
	vol, err := fsx600.Mount(fsx600.NewBlockDevice(dev))
	if err != nil {
		return nil, nil, err
	}
	return vol, dev, nil
}

// growFile appends zero-filled chunks to path until it reaches target
// bytes, one WriteAt call per chunk with off always equal to the file's
// current size. The format requires writes to land at or before the
// current end of file, so reaching a distant offset means writing every
// byte on the way there rather than seeking past a hole.
func growFile(t *testing.T, vol *fsx600.Volume, path string, target int64) {
	t.Helper()
	chunk := make([]byte, fsx600.BlockSize)
	var off int64
	for off < target {
		n := int64(len(chunk))
		if off+n > target {
			n = target - off
		}
		_, err := vol.WriteAt(path, chunk[:n], off)
		require.NoError(t, err)
		off += n
	}
}
