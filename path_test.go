package fsx600_test

import (
	"io/fs"
	"testing"

	"github.com/fsx600/fsx600"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymlinkResolvesToTarget(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mknod("/real", 0644))
	_, err = vol.WriteAt("/real", []byte("payload"), 0)
	require.NoError(t, err)
	require.NoError(t, vol.Symlink("/real", "/link"))

	info, err := vol.Stat("/link")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.EqualValues(t, len("payload"), info.Size())

	buf := make([]byte, len("payload"))
	_, err = vol.ReadAt("/link", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf))
}

func TestLstatDoesNotFollowSymlink(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Symlink("/missing-target", "/link"))

	info, err := vol.Lstat("/link")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeSymlink)

	target, err := vol.Readlink("/link")
	require.NoError(t, err)
	assert.Equal(t, "/missing-target", target)
}

func TestSymlinkLoopIsRejected(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Symlink("/b", "/a"))
	require.NoError(t, vol.Symlink("/a", "/b"))

	_, err = vol.Stat("/a")
	assert.ErrorIs(t, err, fsx600.ErrLoop)
}

func TestRelativeSymlinkInSubdirectory(t *testing.T) {
	vol, _, err := newFixture(512, 64)
	require.NoError(t, err)
	require.NoError(t, vol.Mkdir("/d", 0755))
	require.NoError(t, vol.Mknod("/d/target", 0644))
	require.NoError(t, vol.Symlink("target", "/d/link"))

	info, err := vol.Stat("/d/link")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
