package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimcore/event"
)

func baseEntry() *entry.Entry {
	return &entry.Entry{
		Options:   entry.CheckSize | entry.CheckMTime,
		Size:      100,
		MTime:     1000,
		EntryType: entry.TypeFile,
		Checksum:  "abc",
	}
}

func TestComputeNoChangeYieldsNoEvent(t *testing.T) {
	e := New(nil)
	old := baseEntry()
	updated := baseEntry()

	env, changed, err := e.Compute(Input{Old: old, New: updated, Type: event.ChangeModified, Path: "/tmp/r/a.txt"})
	require.NoError(t, err)
	require.Nil(t, env)
	require.Empty(t, changed)
}

func TestComputeDetectsSizeAndMTimeChange(t *testing.T) {
	e := New(nil)
	old := baseEntry()
	updated := baseEntry()
	updated.Size = 150
	updated.MTime = 1100

	env, changed, err := e.Compute(Input{Old: old, New: updated, Type: event.ChangeModified, Path: "/tmp/r/a.txt", Timestamp: 1700000000})
	require.NoError(t, err)
	require.NotNil(t, env)
	require.ElementsMatch(t, []string{"size", "mtime"}, changed)

	data, ok := env.Data.(event.Data)
	require.True(t, ok)
	require.Equal(t, event.ChangeModified, data.Type)
	require.ElementsMatch(t, []string{"size", "mtime"}, data.ChangedAttributes)
	require.Equal(t, int64(150), data.Attributes["size"])
	require.Equal(t, int64(1700000000), data.Timestamp)
}

func TestComputeIgnoresUnmonitoredFieldChange(t *testing.T) {
	e := New(nil)
	old := baseEntry() // only CheckSize|CheckMTime
	updated := baseEntry()
	updated.HashSHA256 = "deadbeef" // not monitored, since CheckSHA256 unset

	env, changed, err := e.Compute(Input{Old: old, New: updated, Type: event.ChangeModified, Path: "/tmp/r/a.txt"})
	require.NoError(t, err)
	require.Nil(t, env)
	require.Empty(t, changed)
}

func TestComputeAddedHasNoOldAttributesOrChangedList(t *testing.T) {
	e := New(nil)
	updated := baseEntry()

	env, changed, err := e.Compute(Input{Old: nil, New: updated, Type: event.ChangeAdded, Path: "/tmp/r/new.txt"})
	require.NoError(t, err)
	require.NotNil(t, env)
	require.Empty(t, changed)

	data := env.Data.(event.Data)
	require.Nil(t, data.OldAttributes)
	require.Nil(t, data.ChangedAttributes)
}

func TestComputeDeletedAlwaysEmitsEvenWithoutFieldChanges(t *testing.T) {
	e := New(nil)
	old := baseEntry()
	updated := baseEntry()

	env, _, err := e.Compute(Input{Old: old, New: updated, Type: event.ChangeDeleted, Path: "/tmp/r/gone.txt"})
	require.NoError(t, err)
	require.NotNil(t, env)
	data := env.Data.(event.Data)
	require.Equal(t, event.ChangeDeleted, data.Type)
}

func TestComputeContentChangesOmittedWhenAdded(t *testing.T) {
	e := New(nil)
	updated := baseEntry()
	updated.Options |= entry.CheckSeeChanges

	env, _, err := e.Compute(Input{Old: nil, New: updated, Type: event.ChangeAdded, Path: "/tmp/r/a.txt", ContentChanges: "should not appear"})
	require.NoError(t, err)
	data := env.Data.(event.Data)
	require.Empty(t, data.ContentChanges)
}

func TestComputeContentChangesIncludedWhenModified(t *testing.T) {
	e := New(nil)
	old := baseEntry()
	old.Options |= entry.CheckSeeChanges
	updated := baseEntry()
	updated.Options |= entry.CheckSeeChanges
	updated.Size = 200

	env, _, err := e.Compute(Input{Old: old, New: updated, Type: event.ChangeModified, Path: "/tmp/r/a.txt", ContentChanges: "diff text"})
	require.NoError(t, err)
	data := env.Data.(event.Data)
	require.Equal(t, "diff text", data.ContentChanges)
}

func TestComputeUserGroupNameComparedOnlyWhenBothKnown(t *testing.T) {
	e := New(nil)
	name := "alice"
	old := baseEntry()
	old.Options |= entry.CheckOwner
	old.UserName = nil
	updated := baseEntry()
	updated.Options |= entry.CheckOwner
	updated.UserName = &name

	_, changed, err := e.Compute(Input{Old: old, New: updated, Type: event.ChangeModified, Path: "/tmp/r/a.txt"})
	require.NoError(t, err)
	require.NotContains(t, changed, "user_name")
}
