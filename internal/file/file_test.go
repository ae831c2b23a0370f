package file_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SpatiumPortae/tuneshare/internal/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaver(t *testing.T) {
	t.Run("save", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "downloads")
		saver := file.NewSaver(dir, false)
		path, err := saver.Save("song.mp3", strings.NewReader("la la la"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "song.mp3"), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "la la la", string(content))
	})
	t.Run("keeps existing files", func(t *testing.T) {
		dir := t.TempDir()
		saver := file.NewSaver(dir, false)
		first, err := saver.Save("song.mp3", strings.NewReader("first"))
		require.NoError(t, err)
		second, err := saver.Save("song.mp3", strings.NewReader("second"))
		require.NoError(t, err)
		third, err := saver.Save("song.mp3", strings.NewReader("third"))
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "song (1).mp3"), second)
		assert.Equal(t, filepath.Join(dir, "song (2).mp3"), third)
		content, err := os.ReadFile(first)
		require.NoError(t, err)
		assert.Equal(t, "first", string(content))
	})
	t.Run("overwrite", func(t *testing.T) {
		dir := t.TempDir()
		saver := file.NewSaver(dir, true)
		_, err := saver.Save("song.mp3", strings.NewReader("first"))
		require.NoError(t, err)
		path, err := saver.Save("song.mp3", strings.NewReader("second"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "song.mp3"), path)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second", string(content))
	})
	t.Run("path traversal", func(t *testing.T) {
		dir := t.TempDir()
		path, err := file.NewSaver(dir, false).Save("../../etc/song.mp3", strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "song.mp3"), path)
	})
	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "/"} {
			_, err := file.NewSaver(t.TempDir(), false).Save(name, strings.NewReader("x"))
			assert.ErrorIs(t, err, file.ErrInvalidFileName, name)
		}
	})
	t.Run("discard", func(t *testing.T) {
		dir := t.TempDir()
		c, err := file.NewSaver(dir, false).Stage("song.mp3", strings.NewReader("abc"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), c.Size())
		require.NoError(t, c.Discard())
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestRemoveTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file.DOWNLOAD_TEMP_FILE_NAME_PREFIX+"123"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.mp3"), nil, 0o644))
	file.RemoveTemporaryFiles(dir, file.DOWNLOAD_TEMP_FILE_NAME_PREFIX)

	assert.True(t, file.Exists(dir, "keep.mp3"))
	assert.False(t, file.Exists(dir, file.DOWNLOAD_TEMP_FILE_NAME_PREFIX+"123"))
}
