// Package catalog implements the FIM engine's in-memory state: the path
// catalog (spec.md §4.1, component C1) and its hard-link back-index (§4.2,
// C2), modeled as one data structure behind a single combined lock per the
// design note in spec.md §9 ("two coordinated maps with a combined lock").
// This preserves invariant I2 (every cataloged path with a non-zero inode
// appears in exactly the (dev, ino) bucket matching its own metadata) by
// construction: there is no way to mutate one map without the other through
// this package's exported API.
package catalog

import (
	"sort"
	"sync"

	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
)

// InodeKey is the strongly typed (device, inode) pair used to key the
// hard-link index, replacing the original C source's mixed %ld/%lu
// formatting of "dev:ino" (spec.md §9, open question 3).
type InodeKey struct {
	Device uint64
	Inode  uint64
}

// InsertResult is returned by Insert.
type InsertResult int

const (
	// Ok indicates the path was not previously cataloged and has been added.
	Ok InsertResult = iota
	// Duplicate indicates the path was already cataloged; no change was made.
	Duplicate
)

// ReplaceResult is returned by Replace.
type ReplaceResult int

const (
	// Replaced indicates an existing entry was found and replaced.
	Replaced ReplaceResult = iota
	// Missing indicates no entry existed for the path; no change was made.
	Missing
)

// Catalog is the combined path catalog (C1) and inode index (C2). The zero
// value is not usable; construct with New. Safe for concurrent use.
type Catalog struct {
	mu      sync.Mutex
	paths   map[string]*entry.Entry
	inodes  map[InodeKey]map[string]struct{}
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		paths:  make(map[string]*entry.Entry),
		inodes: make(map[InodeKey]map[string]struct{}),
	}
}

// Get returns a clone of the entry cataloged at path, or nil if no entry
// exists there. The clone is safe to retain and mutate without affecting the
// catalog (spec.md §3 "Ownership").
func (c *Catalog) Get(path string) *entry.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paths[path].Clone()
}

// Insert adds a new entry at path. It is a caller error to Insert at a path
// that already exists; use Replace to update. Registry entries (entry.TypeRegistry)
// never touch the inode index, per SPEC_FULL.md §5's resolution of the
// registry/inode open question.
func (c *Catalog) Insert(path string, e *entry.Entry) InsertResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.paths[path]; exists {
		return Duplicate
	}

	c.paths[path] = e
	c.addInodeLocked(path, e)
	return Ok
}

// Replace overwrites the entry at path, updating the inode index to reflect
// any change in (dev, ino) atomically with the path-map update.
func (c *Catalog) Replace(path string, e *entry.Entry) ReplaceResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, exists := c.paths[path]
	if !exists {
		return Missing
	}

	c.removeInodeLocked(path, old)
	c.paths[path] = e
	c.addInodeLocked(path, e)
	return Replaced
}

// Upsert inserts or replaces the entry at path in a single atomic operation,
// returning whether a prior entry existed.
func (c *Catalog) Upsert(path string, e *entry.Entry) (previous *entry.Entry, existed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, exists := c.paths[path]
	if exists {
		c.removeInodeLocked(path, old)
	}
	c.paths[path] = e
	c.addInodeLocked(path, e)
	return old.Clone(), exists
}

// Delete removes the entry at path, if any, from both maps.
func (c *Catalog) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, exists := c.paths[path]
	if !exists {
		return
	}
	c.removeInodeLocked(path, old)
	delete(c.paths, path)
}

// SnapshotKeys returns a deterministically sorted, point-in-time copy of the
// cataloged paths (spec.md §4.1). Later mutations to the catalog do not
// affect the returned slice.
func (c *Catalog) SnapshotKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.paths))
	for k := range c.paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of cataloged paths.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

// PathsForInode returns the set of paths sharing the given (device, inode)
// pair, i.e. the set C2 maps (dev, ino) to (spec.md §4.2).
func (c *Catalog) PathsForInode(key InodeKey) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.inodes[key]
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// addInodeLocked records path under e's (dev, ino) bucket, if e qualifies
// (non-zero inode, file-kind entry). Adding an already-present triple is a
// no-op (spec.md §4.2).
func (c *Catalog) addInodeLocked(path string, e *entry.Entry) {
	if e == nil || e.EntryType == entry.TypeRegistry || e.Inode == 0 {
		return
	}
	key := InodeKey{Device: e.Dev, Inode: e.Inode}
	set, ok := c.inodes[key]
	if !ok {
		set = make(map[string]struct{})
		c.inodes[key] = set
	}
	set[path] = struct{}{}
}

// ClearScanned clears the transient Scanned flag on the entry at path, if one
// exists. This is the second half of the reconciler's per-cycle state
// transition (spec.md §4.9): Visited(scanned=true) -> Reset(scanned=false).
func (c *Catalog) ClearScanned(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.paths[path]; ok {
		e.Scanned = false
	}
}

// removeInodeLocked removes path from e's (dev, ino) bucket and drops the
// bucket entirely once it becomes empty (I5).
func (c *Catalog) removeInodeLocked(path string, e *entry.Entry) {
	if e == nil || e.EntryType == entry.TypeRegistry || e.Inode == 0 {
		return
	}
	key := InodeKey{Device: e.Dev, Inode: e.Inode}
	set, ok := c.inodes[key]
	if !ok {
		return
	}
	delete(set, path)
	if len(set) == 0 {
		delete(c.inodes, key)
	}
}
