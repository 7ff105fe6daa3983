package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimcore/fsmeta"
)

func openRootDir(t *testing.T, path string) *fsmeta.Directory {
	t.Helper()
	obj, _, err := fsmeta.OpenRoot(path)
	require.NoError(t, err)
	dir, ok := obj.(*fsmeta.Directory)
	require.True(t, ok)
	t.Cleanup(func() { dir.Close() })
	return dir
}

func TestAttributesHashesSmallFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	dir := openRootDir(t, root)
	contents, err := dir.ReadContents()
	require.NoError(t, err)
	require.Len(t, contents, 1)

	p := &Prober{FileMaxSize: 1 << 20}
	opts := entry.CheckSize | entry.CheckMTime | entry.CheckSHA256
	e, err := p.Attributes(filepath.Join(root, "a.txt"), dir, contents[0], opts, entry.ModeScheduled)
	require.NoError(t, err)
	require.Equal(t, int64(5), e.Size)
	require.NotEmpty(t, e.HashSHA256)
	require.Empty(t, e.HashMD5, "MD5 not requested, should not be computed")
	require.True(t, entry.VerifyChecksum(e))
}

func TestAttributesSkipsHashAboveMaxSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), []byte("0123456789"), 0o644))

	dir := openRootDir(t, root)
	contents, err := dir.ReadContents()
	require.NoError(t, err)

	p := &Prober{FileMaxSize: 5} // file is 10 bytes, exceeds max
	e, err := p.Attributes(filepath.Join(root, "big.bin"), dir, contents[0], entry.CheckSHA256, entry.ModeScheduled)
	require.NoError(t, err)
	require.Empty(t, e.HashSHA256)
}

func TestAttributesNeverHashesSymlink(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target"), []byte("data"), 0o644))
	require.NoError(t, os.Symlink("target", filepath.Join(root, "link")))

	dir := openRootDir(t, root)
	contents, err := dir.ReadContents()
	require.NoError(t, err)

	var linkMeta *fsmeta.Metadata
	for _, m := range contents {
		if m.Name == "link" {
			linkMeta = m
		}
	}
	require.NotNil(t, linkMeta)

	p := &Prober{FileMaxSize: 1 << 20}
	e, err := p.Attributes(filepath.Join(root, "link"), dir, linkMeta, entry.CheckSHA256, entry.ModeScheduled)
	require.NoError(t, err)
	require.Empty(t, e.HashSHA256)
}
