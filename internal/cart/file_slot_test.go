package cart

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fjod/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSlot_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewFileSlot(filepath.Join(dir, "carts"), "sess-1")
	require.NoError(t, err)

	_, err = slot.Load(context.Background())
	assert.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, slot.Save(context.Background(), []byte(`[]`)))
	data, err := slot.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
	assert.Equal(t, filepath.Join(dir, "carts", "sess-1.json"), slot.Path())
}

func TestFileSlot_RejectsPathTraversal(t *testing.T) {
	_, err := NewFileSlot(t.TempDir(), "../etc/passwd")
	assert.Error(t, err)
}

func TestFileSlot_DefaultKey(t *testing.T) {
	slot, err := NewFileSlot(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultKey+".json", filepath.Base(slot.Path()))
}

func TestFileSlot_CorruptFileIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sess-1.json"), []byte("garbage"), 0o644))

	slot, err := NewFileSlot(dir, "sess-1")
	require.NoError(t, err)
	s := NewStore(slot, logger.NewNop())

	assert.Empty(t, s.Lines())
	assert.True(t, s.RestoreDiscarded())

	s.AddOrMerge(headphones())
	data, err := os.ReadFile(slot.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"p1"`)
}
