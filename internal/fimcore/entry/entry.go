// Package entry defines the FIM catalog's value type and the option/mode
// enumerations that govern how it is populated and compared. It is grounded
// on the Entry/Metadata split in mutagen's pkg/synchronization/core
// (entry.go, mode.go) and on the field layout of fim_entry_data in
// syscheckd/create_db.c.
package entry

// Type distinguishes the kind of object a catalog entry represents.
type Type uint8

const (
	// TypeFile is a filesystem object (regular file, directory, or symbolic
	// link — the catalog only stores leaf entries, so in practice this is
	// always a file or symbolic link; directories are not cataloged as
	// Entry values, only walked).
	TypeFile Type = iota
	// TypeRegistry is a Windows registry object. Registry enumeration is an
	// out-of-scope external collaborator (spec.md §1); no root in this
	// repository ever produces TypeRegistry entries, but the type exists so
	// the catalog/inode-index contract (Open Question #1, SPEC_FULL.md §5)
	// is explicit and testable.
	TypeRegistry
)

// String returns the wire representation used in event JSON.
func (t Type) String() string {
	if t == TypeRegistry {
		return "registry"
	}
	return "file"
}

// Entry is the catalog value type (spec.md §3). Attribute fields are
// populated according to the option mask in force at the time of collection;
// fields whose corresponding bit was not set are left at their zero value and
// MUST NOT be compared during diffing (see diff.Engine). Inode and Dev are
// the exception: they are always recorded, for hard-link tracking.
type Entry struct {
	// Size is the object size in bytes; zero if not collected.
	Size int64
	// Perm is a platform-dependent permission string: POSIX mode text (e.g.
	// "rwxr-xr-x") on POSIX, or a decoded ACL string on Windows.
	Perm string
	// Attributes holds Windows-only decoded attribute flags; empty elsewhere.
	Attributes string
	// UID and GID are decimal-string user/group identifiers.
	UID, GID string
	// UserName and GroupName are nullable resolved names; nil when not
	// resolved (e.g. no passwd entry) as opposed to empty-but-known.
	UserName, GroupName *string
	// MTime is the modification time in seconds since the Unix epoch.
	MTime int64
	// Inode and Dev identify the object for hard-link tracking. Dev is the
	// device ID of the containing filesystem.
	Inode, Dev uint64
	// HashMD5, HashSHA1, HashSHA256 are lowercase hex digests; empty when not
	// collected.
	HashMD5, HashSHA1, HashSHA256 string
	// Checksum is the SHA-1 over the canonical field concatenation (§4.3);
	// it is a pure function of the fields above (I3).
	Checksum string
	// DetectionMode is the mode that last touched this entry.
	DetectionMode Mode
	// Options is the option bitset in force when this entry was collected.
	Options Options
	// LastEvent is the epoch of the last event emitted for this path.
	LastEvent int64
	// EntryType distinguishes file from registry objects.
	EntryType Type
	// Scanned is transient: set while walking, cleared by the reconciler
	// (I4). It is not part of the persisted identity of an entry and is
	// intentionally excluded from Checksum.
	Scanned bool
}

// Clone returns a deep-enough copy of e suitable for handing to callers
// outside the catalog lock (entry.go's Ownership note, spec.md §3: "All
// external callers see immutable snapshots").
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	if e.UserName != nil {
		name := *e.UserName
		clone.UserName = &name
	}
	if e.GroupName != nil {
		name := *e.GroupName
		clone.GroupName = &name
	}
	return &clone
}
