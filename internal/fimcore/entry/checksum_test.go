package entry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleEntry() *Entry {
	user := "alice"
	group := "staff"
	return &Entry{
		Size:        100,
		Perm:        "rw-r--r--",
		UID:         "501",
		GID:         "20",
		UserName:    &user,
		GroupName:   &group,
		MTime:       1000,
		Inode:       42,
		Dev:         1,
		HashMD5:     "d41d8cd98f00b204e9800998ecf8427e",
		HashSHA1:    "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		HashSHA256:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	e := sampleEntry()
	e.Checksum = Checksum(e)
	require.True(t, VerifyChecksum(e))
}

func TestChecksumChangesWithFields(t *testing.T) {
	a := sampleEntry()
	a.Checksum = Checksum(a)

	b := sampleEntry()
	b.Size = 150
	b.Checksum = Checksum(b)

	require.NotEqual(t, a.Checksum, b.Checksum)
}

func TestChecksumTreatsNilNamesAsEmpty(t *testing.T) {
	a := sampleEntry()
	a.UserName = nil
	a.GroupName = nil

	b := sampleEntry()
	empty := ""
	b.UserName = &empty
	b.GroupName = &empty

	require.Equal(t, Checksum(a), Checksum(b))
}

func TestModeTextRoundTrip(t *testing.T) {
	for _, m := range []Mode{ModeScheduled, ModeRealtime, ModeWhodata} {
		text, err := m.MarshalText()
		require.NoError(t, err)

		var parsed Mode
		require.NoError(t, parsed.UnmarshalText(text))
		require.Equal(t, m, parsed)
	}
}

func TestOptionsHas(t *testing.T) {
	o := CheckSize | CheckMTime
	require.True(t, o.Has(CheckSize))
	require.False(t, o.Has(CheckOwner))
	require.True(t, o.Has(CheckSize|CheckMTime))
}
