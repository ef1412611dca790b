package fsx600_test

import (
	"io/fs"
	"testing"

	"github.com/fsx600/fsx600"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameSameParent(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mknod("/old", 0644))
	_, err = vol.WriteAt("/old", []byte("x"), 0)
	require.NoError(t, err)

	require.NoError(t, vol.Rename("/old", "/new"))

	_, err = vol.Stat("/old")
	assert.ErrorIs(t, err, fsx600.ErrNotExist)

	info, err := vol.Stat("/new")
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.Size())
}

func TestRenameAcrossDirectoriesUnsupported(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))
	require.NoError(t, vol.Mkdir("/b", 0755))
	require.NoError(t, vol.Mknod("/a/f", 0644))

	err = vol.Rename("/a/f", "/b/f")
	assert.ErrorIs(t, err, fsx600.ErrInvalid)
}

func TestRenameRejectsDotAndDotDot(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))

	err = vol.Rename("/a/.", "/a/x")
	assert.ErrorIs(t, err, fsx600.ErrInvalid)

	err = vol.Rename("/a/..", "/a/x")
	assert.ErrorIs(t, err, fsx600.ErrInvalid)

	require.NoError(t, vol.Mknod("/a/f", 0644))
	err = vol.Rename("/a/f", "/a/.")
	assert.ErrorIs(t, err, fsx600.ErrInvalid)

	err = vol.Rename("/a/f", "/a/..")
	assert.ErrorIs(t, err, fsx600.ErrInvalid)
}

func TestRenameOntoExistingFileReplacesIt(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mknod("/src", 0644))
	require.NoError(t, vol.Mknod("/dst", 0644))
	_, err = vol.WriteAt("/src", []byte("new"), 0)
	require.NoError(t, err)

	require.NoError(t, vol.Rename("/src", "/dst"))

	buf := make([]byte, 3)
	_, err = vol.ReadAt("/dst", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "new", string(buf))
}

func TestLinkCreatesSecondName(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mknod("/a", 0644))
	_, err = vol.WriteAt("/a", []byte("shared"), 0)
	require.NoError(t, err)

	require.NoError(t, vol.Link("/a", "/b"))

	infoA, err := vol.Stat("/a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, infoA.Sys().(fsx600.Inode).Nlink)

	buf := make([]byte, 6)
	_, err = vol.ReadAt("/b", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(buf))

	require.NoError(t, vol.Unlink("/a"))
	_, err = vol.Stat("/b")
	require.NoError(t, err, "data must survive while any link remains")

	require.NoError(t, vol.Unlink("/b"))
	_, err = vol.Stat("/b")
	assert.ErrorIs(t, err, fsx600.ErrNotExist)
}

func TestLinkRejectsDirectories(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))
	err = vol.Link("/a", "/b")
	assert.ErrorIs(t, err, fsx600.ErrIsDir)
}

func TestChmodPreservesFileType(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/a", 0755))

	require.NoError(t, vol.Chmod("/a", 0700))
	info, err := vol.Stat("/a")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, fs.FileMode(0700), info.Mode().Perm())
}

func TestUtimeLeavesCtimeAlone(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mknod("/f", 0644))

	before, err := vol.Stat("/f")
	require.NoError(t, err)
	ctimeBefore := before.Sys().(fsx600.Inode).Ctime

	require.NoError(t, vol.Utime("/f", 12345))
	after, err := vol.Stat("/f")
	require.NoError(t, err)
	assert.EqualValues(t, 12345, after.Sys().(fsx600.Inode).Mtime)
	assert.Equal(t, ctimeBefore, after.Sys().(fsx600.Inode).Ctime)
}

func TestStatfsAccountsForMetadataAndData(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	before := vol.Statfs()
	require.NoError(t, vol.Mknod("/f", 0644))
	_, err = vol.WriteAt("/f", make([]byte, fsx600.BlockSize*3), 0)
	require.NoError(t, err)
	after := vol.Statfs()

	assert.Equal(t, before.FreeBlocks-3, after.FreeBlocks)
	assert.Equal(t, before.FreeInodes-1, after.FreeInodes)
}
