package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageStore_UploadImage(t *testing.T) {
	t.Parallel()

	t.Run("writes the file and returns its url", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store := fs.NewImageStore(dir, "http://localhost:8000/images/")

		u, err := store.UploadImage(context.Background(), []byte("jpeg"), "chart.jpg", "image/jpeg")

		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8000/images/chart.jpg", u)
		data, err := os.ReadFile(filepath.Join(dir, "chart.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg"), data)
	})

	t.Run("identical upload reuses the file", func(t *testing.T) {
		t.Parallel()

		store := fs.NewImageStore(t.TempDir(), "/img")
		first, err := store.UploadImage(context.Background(), []byte("same"), "a.png", "image/png")
		require.NoError(t, err)

		second, err := store.UploadImage(context.Background(), []byte("same"), "a.png", "image/png")

		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("different content under the same name gets a new name", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store := fs.NewImageStore(dir, "/img")
		first, err := store.UploadImage(context.Background(), []byte("one"), "a.png", "image/png")
		require.NoError(t, err)

		second, err := store.UploadImage(context.Background(), []byte("two"), "a.png", "image/png")

		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.Regexp(t, `^/img/[0-9a-f]{8}-a\.png$`, second)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("path components in the name are dropped", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store := fs.NewImageStore(dir, "/img")

		u, err := store.UploadImage(context.Background(), []byte("x"), "../../etc/passwd", "image/jpeg")

		require.NoError(t, err)
		assert.Equal(t, "/img/passwd", u)
		_, err = os.Stat(filepath.Join(dir, "passwd"))
		require.NoError(t, err)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		t.Parallel()

		_, err := fs.NewImageStore(t.TempDir(), "/img").UploadImage(context.Background(), []byte("x"), "", "image/jpeg")

		assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(err))
	})

	t.Run("respects a canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fs.NewImageStore(t.TempDir(), "/img").UploadImage(ctx, []byte("x"), "a.jpg", "image/jpeg")

		require.ErrorIs(t, err, context.Canceled)
	})
}
