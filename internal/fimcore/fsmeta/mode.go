package fsmeta

import "golang.org/x/sys/unix"

// Mode mirrors a POSIX stat mode: type bits in the high bits, permission
// bits in the low 12 bits (ported from mutagen's pkg/filesystem/mode.go).
type Mode uint32

const (
	// ModeTypeMask isolates the file type bits of a Mode.
	ModeTypeMask = Mode(unix.S_IFMT)
	// ModeTypeDirectory identifies a directory.
	ModeTypeDirectory = Mode(unix.S_IFDIR)
	// ModeTypeFile identifies a regular file.
	ModeTypeFile = Mode(unix.S_IFREG)
	// ModeTypeSymbolicLink identifies a symbolic link.
	ModeTypeSymbolicLink = Mode(unix.S_IFLNK)

	// ModePermissionsMask isolates the portable permission bits of a Mode.
	ModePermissionsMask = Mode(0o777)

	modeExecuteBits = Mode(0o111)
)

// AnyExecutableBitSet reports whether any of the user/group/other execute
// bits are set.
func (m Mode) AnyExecutableBitSet() bool {
	return m&modeExecuteBits != 0
}

// Type returns the file-type portion of the mode.
func (m Mode) Type() Mode {
	return m & ModeTypeMask
}

// PermissionString renders the permission bits as POSIX "rwxr-xr-x" style
// text (spec.md §3: "perm (platform-dependent string: POSIX mode text...)").
func (m Mode) PermissionString() string {
	const chars = "rwx"
	perm := m & ModePermissionsMask
	out := make([]byte, 9)
	for i := 0; i < 9; i++ {
		bit := perm & (1 << uint(8-i))
		if bit != 0 {
			out[i] = chars[i%3]
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}
