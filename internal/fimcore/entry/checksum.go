package entry

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// canonicalString builds the UTF-8, colon-separated canonical representation
// of e's checksummed fields, in the exact order required by spec.md §4.3:
//
//	size:perm:attributes:uid:gid:user_name:group_name:mtime:inode:hash_md5:hash_sha1:hash_sha256
//
// Missing string fields (nil UserName/GroupName) become the empty string.
func canonicalString(e *Entry) string {
	var b strings.Builder
	fields := [...]string{
		strconv.FormatInt(e.Size, 10),
		e.Perm,
		e.Attributes,
		e.UID,
		e.GID,
		derefOrEmpty(e.UserName),
		derefOrEmpty(e.GroupName),
		strconv.FormatInt(e.MTime, 10),
		strconv.FormatUint(e.Inode, 10),
		e.HashMD5,
		e.HashSHA1,
		e.HashSHA256,
	}
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(f)
	}
	return b.String()
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Checksum computes the canonical SHA-1 checksum for e (spec.md §4.3, I3).
// It never reads or writes e.Checksum itself; callers assign the result.
func Checksum(e *Entry) string {
	sum := sha1.Sum([]byte(canonicalString(e)))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether e.Checksum matches the recomputed canonical
// checksum (the round-trip property of spec.md §8, property 1).
func VerifyChecksum(e *Entry) bool {
	return e.Checksum == Checksum(e)
}
