package fsx600_test

import (
	"testing"

	"github.com/fsx600/fsx600"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountReadsGeometry(t *testing.T) {
	vol, _, err := newFixture(256, 64)
	require.NoError(t, err)

	sf := vol.Statfs()
	assert.EqualValues(t, fsx600.BlockSize, sf.BlockSize)
	assert.EqualValues(t, 256, sf.TotalBlocks)
	assert.EqualValues(t, 64, sf.TotalInodes)
	assert.Less(t, sf.FreeBlocks, sf.TotalBlocks)
	assert.Less(t, sf.FreeInodes, sf.TotalInodes)
}

func TestMountRejectsBadMagic(t *testing.T) {
	dev := newMemDevice(fsx600.BlockSize * 8)
	_, err := fsx600.Mount(fsx600.NewBlockDevice(dev))
	assert.ErrorIs(t, err, fsx600.ErrInvalidImage)
}

func TestRootDirectoryExists(t *testing.T) {
	vol, _, err := newFixture(256, 64)
	require.NoError(t, err)

	info, err := vol.Stat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := vol.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, entries, "freshly formatted root has no entries besides . and ..")
}

func TestCloseFlushesPendingWrites(t *testing.T) {
	vol, dev, err := newFixture(256, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))
	require.NoError(t, vol.Close())

	vol2, err := fsx600.Mount(fsx600.NewBlockDevice(dev))
	require.NoError(t, err)
	info, err := vol2.Stat("/a")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
