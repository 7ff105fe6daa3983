package walk

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazuh-fim/fimcore/internal/fimcore/fsmeta"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

type alwaysAllow struct{}

func (alwaysAllow) ShouldIgnore(path string, rootIndex int) bool { return false }

type prefixIgnorer struct{ prefix string }

func (p prefixIgnorer) ShouldIgnore(path string, rootIndex int) bool {
	return len(path) >= len(p.prefix) && path[:len(p.prefix)] == p.prefix
}

func TestWalkVisitsAllFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0o644))

	var visited []string
	w := New(alwaysAllow{}, 0, fimlog.RootLogger)
	err := w.Walk(context.Background(), root, 0, func(ctx context.Context, path string, meta *fsmeta.Metadata, parent *fsmeta.Directory) error {
		visited = append(visited, path)
		return nil
	})
	require.NoError(t, err)

	sort.Strings(visited)
	require.Contains(t, visited, filepath.Join(root, "a.txt"))
	require.Contains(t, visited, filepath.Join(root, "sub"))
	require.Contains(t, visited, filepath.Join(root, "sub", "b.txt"))
}

func TestWalkSkipsIgnoredSubtree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "skip"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip", "c.txt"), []byte("c"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("k"), 0o644))

	var visited []string
	w := New(prefixIgnorer{prefix: filepath.Join(root, "skip")}, 0, fimlog.RootLogger)
	err := w.Walk(context.Background(), root, 0, func(ctx context.Context, path string, meta *fsmeta.Metadata, parent *fsmeta.Directory) error {
		visited = append(visited, path)
		return nil
	})
	require.NoError(t, err)

	require.NotContains(t, visited, filepath.Join(root, "skip"))
	require.NotContains(t, visited, filepath.Join(root, "skip", "c.txt"))
	require.Contains(t, visited, filepath.Join(root, "keep.txt"))
}

func TestWalkRespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "deep.txt"), []byte("d"), 0o644))

	var visited []string
	w := New(alwaysAllow{}, 1, fimlog.RootLogger)
	err := w.Walk(context.Background(), root, 0, func(ctx context.Context, path string, meta *fsmeta.Metadata, parent *fsmeta.Directory) error {
		visited = append(visited, path)
		return nil
	})
	require.NoError(t, err)

	// root/a has 0 path separators after the root, root/a/b has 1: both are
	// admissible at recursion_level 1 (spec.md §4.6). root/a/b/deep.txt has
	// 2 and is the first path this cap excludes.
	require.Contains(t, visited, filepath.Join(root, "a"))
	require.Contains(t, visited, filepath.Join(root, "a", "b"))
	require.NotContains(t, visited, filepath.Join(root, "a", "b", "deep.txt"))
}

func TestWalkCanceledContextStopsEarly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(alwaysAllow{}, 0, fimlog.RootLogger)
	err := w.Walk(ctx, root, 0, func(ctx context.Context, path string, meta *fsmeta.Metadata, parent *fsmeta.Directory) error {
		return nil
	})
	require.Error(t, err)
}
