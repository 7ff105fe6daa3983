package fsmeta

import (
	"os/user"
	"strconv"
	"sync"
)

// ownership resolution is cached process-wide since passwd/group lookups
// are comparatively expensive and the same few owners recur across an
// entire scan (ported in spirit from mutagen's behaviorCache pattern in
// core/scan.go, applied here to name resolution instead of filesystem
// behavior).
var (
	userCache  sync.Map // uid string -> *string (nil entry means "no such user")
	groupCache sync.Map // gid string -> *string
)

// LookupUserName resolves a numeric UID to a user name, returning nil if no
// such user exists. Results are cached.
func LookupUserName(uid uint32) *string {
	key := strconv.FormatUint(uint64(uid), 10)
	if cached, ok := userCache.Load(key); ok {
		return cached.(*string)
	}

	var result *string
	if u, err := user.LookupId(key); err == nil {
		name := u.Username
		result = &name
	}
	userCache.Store(key, result)
	return result
}

// LookupGroupName resolves a numeric GID to a group name, returning nil if
// no such group exists. Results are cached.
func LookupGroupName(gid uint32) *string {
	key := strconv.FormatUint(uint64(gid), 10)
	if cached, ok := groupCache.Load(key); ok {
		return cached.(*string)
	}

	var result *string
	if g, err := user.LookupGroupId(key); err == nil {
		name := g.Name
		result = &name
	}
	groupCache.Store(key, result)
	return result
}
