package measure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGocloc_Measure(t *testing.T) {
	dir := t.TempDir()
	src := "package main\n\n// entry point\nfunc main() {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "hook.go"), []byte(src), 0o644))

	m, err := NewGocloc().Measure(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, m.Languages, 1)
	goCount := m.Languages[0]
	assert.Equal(t, "Go", goCount.Language)
	assert.Equal(t, uint64(1), goCount.Files)
	assert.Equal(t, uint64(2), goCount.Code)
	assert.Equal(t, uint64(1), goCount.Comment)
	assert.Equal(t, uint64(1), goCount.Blank)
	assert.Equal(t, m.SumLanguages(), m.Aggregate)
}

func TestGocloc_EmptyDir(t *testing.T) {
	m, err := NewGocloc().Measure(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, m.Languages)
	assert.Zero(t, m.Aggregate.Code)
}

func TestGocloc_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGocloc().Measure(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
