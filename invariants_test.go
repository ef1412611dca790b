package fsx600_test

import (
	"testing"

	"github.com/fsx600/fsx600"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: a freshly formatted image reports the root directory's two
// built-in entries and the expected free-block count.
func TestScenarioFreshRoot(t *testing.T) {
	const numBlocks, numInodes = 256, 64
	vol, _, err := newFixture(numBlocks, numInodes)
	require.NoError(t, err)

	info, err := vol.Stat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.EqualValues(t, 2*fsx600.DirentSize, info.Size())

	inodeMapSize := uint32(1)
	blockMapSize := uint32(1)
	inodeRegionSize := (numInodes + fsx600.InodesPerBlock - 1) / fsx600.InodesPerBlock
	nMeta := 1 + inodeMapSize + blockMapSize + inodeRegionSize

	sf := vol.Statfs()
	assert.Equal(t, numBlocks-nMeta-1, sf.FreeBlocks, "free blocks excludes metadata and root's first data block")
}

// S2: nested directories and a plain write/read round trip.
func TestScenarioNestedWrite(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))
	require.NoError(t, vol.Mkdir("/a/b", 0755))
	require.NoError(t, vol.Mknod("/a/b/f", 0644))
	_, err = vol.WriteAt("/a/b/f", []byte("hello"), 0)
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = vol.ReadAt("/a/b/f", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	info, err := vol.Stat("/a/b/f")
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size())
}

// S3: a write spanning direct, single-indirect, and double-indirect
// ranges lands in the expected region boundaries.
func TestScenarioDoubleIndirectWrite(t *testing.T) {
	vol, _, err := newFixture(2048, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mknod("/huge", 0644))

	size := int64(fsx600.NDirect+fsx600.PtrsPerBlock)*fsx600.BlockSize + 1
	growFile(t, vol, "/huge", size-1)
	_, err = vol.WriteAt("/huge", []byte{0x42}, size-1)
	require.NoError(t, err)

	info, err := vol.Stat("/huge")
	require.NoError(t, err)
	assert.Equal(t, size, info.Size())
	in := info.Sys().(fsx600.Inode)
	for i, b := range in.Direct {
		assert.NotZero(t, b, "direct[%d]", i)
	}
	assert.NotZero(t, in.Indir1)
	assert.NotZero(t, in.Indir2)

	buf := make([]byte, 1)
	_, err = vol.ReadAt("/huge", buf, size-1)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), buf[0])
}

// S5: unlinking one of two hard links must not disturb the other's data.
func TestScenarioHardLinkSurvivesUnlink(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))
	require.NoError(t, vol.Mkdir("/a/b", 0755))
	require.NoError(t, vol.Mknod("/a/b/f", 0644))
	_, err = vol.WriteAt("/a/b/f", []byte("hello"), 0)
	require.NoError(t, err)

	require.NoError(t, vol.Link("/a/b/f", "/a/b/g"))
	require.NoError(t, vol.Unlink("/a/b/f"))

	buf := make([]byte, 5)
	_, err = vol.ReadAt("/a/b/g", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	info, err := vol.Stat("/a/b/g")
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.Sys().(fsx600.Inode).Nlink)
}

// S6: deleting and re-adding an entry reuses the lowest free slot
// rather than always appending.
func TestScenarioFirstFitSlotReuse(t *testing.T) {
	vol, _, err := newFixture(4096, 512)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/d", 0755))

	names := make([]string, fsx600.DirentsPerBlock)
	for i := range names {
		names[i] = string(rune('a' + i%26))
		if i >= 26 {
			names[i] += string(rune('0' + i/26))
		}
		require.NoError(t, vol.Mknod("/d/"+names[i], 0644))
	}

	require.NoError(t, vol.Unlink("/d/"+names[0]))
	require.NoError(t, vol.Mknod("/d/new", 0644))

	entries, err := vol.ReadDir("/d")
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Name == "new" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Len(t, entries, fsx600.DirentsPerBlock)
	assert.Equal(t, "new", entries[0].Name, "new entry must take the freed first slot, not be appended")
}

// Invariant 2: every valid directory entry points at an allocated inode
// with nlink >= 1.
func TestInvariantReferenceIntegrity(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))
	require.NoError(t, vol.Mknod("/a/f", 0644))
	require.NoError(t, vol.Symlink("/a/f", "/a/link"))

	entries, err := vol.ReadDir("/a")
	require.NoError(t, err)
	for _, e := range entries {
		info, err := vol.Lstat("/a/" + e.Name)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, info.Sys().(fsx600.Inode).Nlink, uint32(1))
	}
}

// Invariant 5: truncating to zero returns every data block.
func TestInvariantTruncateToZeroFreesAllBlocks(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mknod("/f", 0644))
	_, err = vol.WriteAt("/f", make([]byte, 5*fsx600.BlockSize), 0)
	require.NoError(t, err)

	before := vol.Statfs().FreeBlocks
	require.NoError(t, vol.Truncate("/f", 0))
	after := vol.Statfs().FreeBlocks
	assert.Equal(t, before+5, after)
}

// Invariant 7: mkdir followed by rmdir restores the parent's entry
// count (mtime is allowed to differ).
func TestInvariantMkdirRmdirRoundTrip(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)

	before, err := vol.ReadDir("/")
	require.NoError(t, err)

	require.NoError(t, vol.Mkdir("/tmp", 0755))
	require.NoError(t, vol.Rmdir("/tmp"))

	after, err := vol.ReadDir("/")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
