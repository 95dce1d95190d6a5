package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRemove(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("applications/photo", "Me.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(path))
	assert.True(t, strings.HasPrefix(path, store.Root()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// second removal is a no-op
	assert.NoError(t, store.Remove(path))
}

func TestSaveKeepsFolderInsideRoot(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("../../escape", "x.pdf", strings.NewReader("pdf"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, store.Root()))
}

func TestRemoveRejectsOutsideRoot(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "other.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	assert.ErrorIs(t, store.Remove(outside), ErrOutsideRoot)
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
