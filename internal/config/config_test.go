package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSchemaPath_PrefersPrimary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "supabase/schemas"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, PrimaryPath), []byte("-- primary"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, FallbackPath), []byte("-- fallback"), 0o644))

	path, err := ResolveSchemaPath(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, PrimaryPath), path)
}

func TestResolveSchemaPath_FallsBackWhenPrimaryMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "supabase"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FallbackPath), []byte("-- fallback"), 0o644))

	path, err := ResolveSchemaPath(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FallbackPath), path)
}

func TestResolveSchemaPath_ErrorsWhenNeitherExists(t *testing.T) {
	root := t.TempDir()
	_, err := ResolveSchemaPath(root)
	assert.Error(t, err)
}

func TestIsSplit(t *testing.T) {
	root := t.TempDir()
	assert.False(t, IsSplit(root))

	require.NoError(t, os.MkdirAll(SplitDir(root), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(SplitDir(root), "04_tables.sql"), []byte("-- tables"), 0o644))
	assert.True(t, IsSplit(root))
}
