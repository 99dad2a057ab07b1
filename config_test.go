package transducer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	require.NoError(t, os.WriteFile(path, []byte("block_size: 4\nmax_width: 3\nworkers: 8\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{BlockSize: 4, MaxWidth: 3, VocabSize: 4, Workers: 8}, cfg)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_width: 1\nmin_width: 2\n"), 0o644))
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_width")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	for name, cfg := range map[string]Config{
		"block size": {BlockSize: 0, MaxWidth: 1},
		"max width":  {BlockSize: 1, MaxWidth: 0},
		"min width":  {BlockSize: 1, MaxWidth: 1, MinWidth: -1},
		"vocab":      {BlockSize: 1, MaxWidth: 1, VocabSize: -1},
		"workers":    {BlockSize: 1, MaxWidth: 1, Workers: -2},
	} {
		assert.Error(t, cfg.Validate(), name)
	}
	assert.NoError(t, DefaultConfig().Validate())
}
