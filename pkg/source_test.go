package decoder

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMappedSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("0123456789")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Run("read", func(t *testing.T) {
		source, err := OpenMappedSource(path, StrategyRead)
		require.NoError(t, err)
		assert.False(t, source.IsMapped())
		assert.Equal(t, content, source.Bytes())
		assert.Equal(t, path, source.Path())
		require.NoError(t, source.Close())
		assert.Nil(t, source.Bytes())
		assert.NoError(t, source.Close())
	})

	t.Run("mmap", func(t *testing.T) {
		source, err := OpenMappedSource(path, StrategyMmap)
		require.NoError(t, err)
		assert.Equal(t, mmapSupported, source.IsMapped())
		assert.Equal(t, content, source.Bytes())
		assert.Equal(t, len(content), source.Len())
		require.NoError(t, source.Close())
		assert.False(t, source.IsMapped())
		assert.NoError(t, source.Close())
	})

	t.Run("empty file is not mapped", func(t *testing.T) {
		empty := filepath.Join(t.TempDir(), "empty.bin")
		require.NoError(t, os.WriteFile(empty, nil, 0o644))

		source, err := OpenMappedSource(empty, StrategyMmap)
		require.NoError(t, err)
		assert.False(t, source.IsMapped())
		assert.Empty(t, source.Bytes())
		assert.NoError(t, source.Close())
	})
}

func TestMemorySource(t *testing.T) {
	source := NewMemorySource("buffer", []byte{1, 2})
	assert.Equal(t, "buffer", source.Path())
	assert.Equal(t, []byte{1, 2}, source.Bytes())
	require.NoError(t, source.Close())
	assert.Nil(t, source.Bytes())
}

func TestParseStrategy(t *testing.T) {
	strategy, err := ParseStrategy("mmap")
	require.NoError(t, err)
	assert.Equal(t, StrategyMmap, strategy)

	_, err = ParseStrategy("MMAP")
	assert.Error(t, err)
}

func TestIsRemoteOrSharedFS(t *testing.T) {
	_, err := IsRemoteOrSharedFS("")
	assert.Error(t, err)

	if runtime.GOOS != "linux" {
		return
	}
	_, err = IsRemoteOrSharedFS(t.TempDir())
	assert.NoError(t, err)

	_, err = IsRemoteOrSharedFS(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
