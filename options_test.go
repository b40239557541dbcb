package iresearch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())
}

func TestOptionsValidateRejectsBadBlockSizes(t *testing.T) {
	o := DefaultOptions()
	o.MinBlockSize = 48
	o.MaxBlockSize = 25
	require.Error(t, o.Validate())
}

func TestLoadOptionsEmptyPathReturnsDefaults(t *testing.T) {
	o, err := LoadOptions("")
	require.NoError(t, err)
	require.Equal(t, DefaultOptions(), o)
}

func TestLoadOptionsOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte("handlePoolSize: 16\nminBlockSize: 10\nmaxBlockSize: 20\n"), 0o644))

	o, err := LoadOptions(path)
	require.NoError(t, err)
	require.Equal(t, 16, o.HandlePoolSize)
	require.Equal(t, 10, o.MinBlockSize)
	require.Equal(t, 20, o.MaxBlockSize)
	require.Equal(t, DefaultOptions().WriteBufferSize, o.WriteBufferSize)
}

func TestTermDictConfigProjection(t *testing.T) {
	o := DefaultOptions()
	cfg := o.TermDictConfig()
	require.Equal(t, o.MinBlockSize, cfg.MinBlockSize)
	require.Equal(t, o.MaxBlockSize, cfg.MaxBlockSize)
}
