package graphics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileModeStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prime-discrete")
	store := NewFileModeStore(path)

	require.NoError(t, store.Set("on-demand"))

	// The file format is a single newline-terminated line.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "on-demand\n", string(data))

	mode, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "on-demand", mode)
}

func TestFileModeStoreMissingFile(t *testing.T) {
	store := NewFileModeStore(filepath.Join(t.TempDir(), "missing"))
	_, err := store.Get()
	assert.Error(t, err)
}
