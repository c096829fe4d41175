package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// NewTreeRepo initializes a Loam repository in a fresh temp directory and
// seeds it with trees, keyed by file name relative to the repository root.
// It returns the absolute repository path and the repository.
func NewTreeRepo(t *testing.T, trees map[string]string, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "temp dir path")

	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "init loam repository")

	WriteTrees(t, dir, trees)
	return dir, repo
}

// WriteTrees writes tree documents under dir, creating subdirectories as needed.
func WriteTrees(t *testing.T, dir string, trees map[string]string) {
	t.Helper()
	for name, doc := range trees {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	}
}
