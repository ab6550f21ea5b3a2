package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocal(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)

	root := filepath.Join(t.TempDir(), "nested", "media")
	s, err := NewLocal(root)
	require.NoError(t, err)
	assert.NotNil(t, s)

	st, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)

	info, err := s.Put(ctx, "photos/a.png", strings.NewReader("pixels"), PutObjectOptions{Size: 6, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "photos/a.png", info.Key)
	assert.Equal(t, int64(6), info.Size)
	assert.FileExists(t, filepath.Join(root, "photos", "a.png"))

	rc, got, err := s.Get(ctx, "photos/a.png")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(body))
	assert.Equal(t, int64(6), got.Size)
	assert.Equal(t, "image/png", got.ContentType)

	require.NoError(t, s.Delete(ctx, "photos/a.png"))
	assert.NoFileExists(t, filepath.Join(root, "photos", "a.png"))

	// already absent content is not an error
	assert.NoError(t, s.Delete(ctx, "photos/a.png"))

	_, _, err = s.Get(ctx, "photos/a.png")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorage_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "k", strings.NewReader("one"), PutObjectOptions{Size: -1})
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", strings.NewReader("two"), PutObjectOptions{Size: -1})
	require.NoError(t, err)

	rc, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(body))
}

func TestLocalStorage_KeysStayUnderRoot(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	root := filepath.Join(base, "media")
	s, err := NewLocal(root)
	require.NoError(t, err)

	_, err = s.Put(ctx, "../escape.txt", strings.NewReader("x"), PutObjectOptions{Size: 1})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(base, "escape.txt"))
	assert.FileExists(t, filepath.Join(root, "escape.txt"))

	_, err = s.Put(ctx, "  ", strings.NewReader("x"), PutObjectOptions{Size: 1})
	assert.Error(t, err)
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Put(ctx, "k", strings.NewReader("data"), PutObjectOptions{Size: 4})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Delete(ctx, "k"), context.Canceled)
}

func TestLocalStorage_PresignUnsupported(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.PresignGet(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrPresignUnsupported)
}
