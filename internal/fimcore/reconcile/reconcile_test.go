package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazuh-fim/fimcore/internal/fimcore/catalog"
	"github.com/wazuh-fim/fimcore/internal/fimcore/diff"
	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

func scannedEntry(scanned bool) *entry.Entry {
	return &entry.Entry{Options: entry.CheckSize, Size: 10, Scanned: scanned, EntryType: entry.TypeFile}
}

func TestSweepResetsScannedEntries(t *testing.T) {
	cat := catalog.New()
	cat.Insert("/tmp/r/a.txt", scannedEntry(true))

	r := New(cat, diff.New(nil), func(path string) (string, bool) { return "", true }, fimlog.RootLogger)
	result, err := r.Sweep()
	require.NoError(t, err)
	require.Empty(t, result.Deleted)

	require.False(t, cat.Get("/tmp/r/a.txt").Scanned)
	require.Equal(t, 1, cat.Len())
}

func TestSweepDeletesUnscannedEntries(t *testing.T) {
	cat := catalog.New()
	cat.Insert("/tmp/r/gone.txt", scannedEntry(false))

	r := New(cat, diff.New(nil), func(path string) (string, bool) { return "tag1", true }, fimlog.RootLogger)
	result, err := r.Sweep()
	require.NoError(t, err)
	require.Len(t, result.Deleted, 1)
	require.Equal(t, []string{"/tmp/r/gone.txt"}, result.DeletedPaths)

	require.Equal(t, 0, cat.Len())
}

func TestSweepSkipsPathsWithNoCoveringRoot(t *testing.T) {
	cat := catalog.New()
	cat.Insert("/tmp/r/orphan.txt", scannedEntry(false))

	r := New(cat, diff.New(nil), func(path string) (string, bool) { return "", false }, fimlog.RootLogger)
	result, err := r.Sweep()
	require.NoError(t, err)
	require.Empty(t, result.Deleted)
	// Not removed from the catalog either: we simply didn't process it.
	require.Equal(t, 1, cat.Len())
}
