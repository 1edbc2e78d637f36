package artifact

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCachePutOpen(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	assert.False(t, c.Exists("a.json"))

	require.NoError(t, c.Put("a.json", func(w io.Writer) error {
		_, err := io.WriteString(w, "payload")
		return err
	}))
	assert.True(t, c.Exists("a.json"))
	rc, err := c.Open("a.json")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "payload", string(b))
}

func TestDiskCacheFailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	err = c.Put("a.json", func(w io.Writer) error {
		_, _ = io.WriteString(w, `{"format":"lin`)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Exists("a.json"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskCacheFailedOverwriteKeepsOld(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Put("a.json", func(w io.Writer) error {
		_, err := io.WriteString(w, "v1")
		return err
	}))
	_ = c.Put("a.json", func(w io.Writer) error {
		_, _ = io.WriteString(w, "v2-partial")
		return errors.New("cut")
	})
	b, err := os.ReadFile(c.Path("a.json"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))
}

func TestDiskCacheRejectsPaths(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "..", "../x.json", "sub/x.json"} {
		assert.Error(t, c.Put(name, func(io.Writer) error { return nil }), name)
		assert.False(t, c.Exists(name), name)
	}
}
