// Package diff implements component C7 (DiffEngine) from spec.md §4.7:
// given an optional previous Entry and a newly collected one, it produces
// the changed-attribute set and a structured event, or no event at all when
// nothing monitored actually changed (property 2, "diff soundness").
package diff

import (
	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimcore/event"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// Input is everything the engine needs to compute one change observation.
// It intentionally carries only Entry values and caller-supplied metadata —
// no file handles or stores — so Compute is a pure function of its input,
// making property-based testing straightforward (spec.md §8).
type Input struct {
	// Old is the previously cataloged Entry, or nil for a newly discovered
	// path.
	Old *entry.Entry
	// New is the freshly collected Entry (always non-nil, even for a
	// deletion, where it is the last known attributes being reported as
	// gone).
	New *entry.Entry
	// Type is the kind of change being reported.
	Type event.ChangeType
	// Mode is the detection mode that produced this observation.
	Mode entry.Mode
	// Path is the catalog path this observation concerns.
	Path string
	// Timestamp is the Unix epoch-seconds moment this observation was made,
	// the mandatory "timestamp" field spec.md §6 requires on every event.
	Timestamp int64
	// Tag, if non-empty, is attached to the resulting event (spec.md §6,
	// per-root tag propagation — SPEC_FULL.md §4).
	Tag string
	// Audit, if non-nil, is attached as the event's "audit" object; its
	// presence signals that mode == entry.ModeWhodata.
	Audit map[string]interface{}
	// ContentChanges is the precomputed content-diff string (from
	// contentdiff.Store), meaningful only when New.Options has
	// CheckSeeChanges set and Type is not ChangeAdded (spec.md §6).
	ContentChanges string
}

// Engine computes diffs and builds event envelopes.
type Engine struct {
	Logger *fimlog.Logger
}

// New constructs a diff Engine.
func New(logger *fimlog.Logger) *Engine {
	return &Engine{Logger: logger}
}

// Compute builds the event envelope for in, along with the changed-attribute
// list (always returned, even when the envelope is suppressed, so callers —
// and tests — can inspect it per spec.md §4.7's "may be inspected in
// tests"). It returns (nil, changed, nil) when in.Type is ChangeModified and
// the attribute diff against in.Old is empty: no spurious events.
func (e *Engine) Compute(in Input) (*event.Envelope, []string, error) {
	var changed []string
	if in.Old != nil {
		changed = changedFields(in.Old, in.New)
		if in.Type == event.ChangeModified && len(changed) == 0 {
			return nil, changed, nil
		}
	}

	data := event.Data{
		Timestamp:  in.Timestamp,
		Path:       in.Path,
		Mode:       modeToDetection(in.Mode),
		Type:       in.Type,
		Attributes: attributesMap(in.New),
		Tags:       in.Tag,
	}

	if in.Type == event.ChangeModified {
		data.ChangedAttributes = changed
		data.OldAttributes = attributesMap(in.Old)
	}
	if in.Audit != nil {
		data.Audit = in.Audit
	}
	if in.New.Options.Has(entry.CheckSeeChanges) && in.Type != event.ChangeAdded {
		data.ContentChanges = in.ContentChanges
	}

	return &event.Envelope{Type: event.KindEvent, Data: data}, changed, nil
}

// changedFields returns the sorted-by-declaration-order set of field names
// whose corresponding option bit is set in old.Options and whose value
// differs between old and new, per spec.md §4.7.
func changedFields(old, updated *entry.Entry) []string {
	var changed []string

	if old.Options.Has(entry.CheckSize) && old.Size != updated.Size {
		changed = append(changed, "size")
	}
	if old.Options.Has(entry.CheckPerm) && old.Perm != updated.Perm {
		changed = append(changed, "permission")
	}
	if old.Options.Has(entry.CheckOwner) {
		if old.UID != updated.UID {
			changed = append(changed, "uid")
		}
		if old.UserName != nil && updated.UserName != nil && *old.UserName != *updated.UserName {
			changed = append(changed, "user_name")
		}
	}
	if old.Options.Has(entry.CheckGroup) {
		if old.GID != updated.GID {
			changed = append(changed, "gid")
		}
		if old.GroupName != nil && updated.GroupName != nil && *old.GroupName != *updated.GroupName {
			changed = append(changed, "group_name")
		}
	}
	if old.Options.Has(entry.CheckMTime) && old.MTime != updated.MTime {
		changed = append(changed, "mtime")
	}
	// Inode is POSIX-only in the source, but this implementation targets
	// POSIX exclusively, so the option bit alone gates it (spec.md §4.7:
	// "for inode, emit only on POSIX").
	if old.Options.Has(entry.CheckInode) && (old.Inode != updated.Inode || old.Dev != updated.Dev) {
		changed = append(changed, "inode")
	}
	if old.Options.Has(entry.CheckMD5) && old.HashMD5 != updated.HashMD5 {
		changed = append(changed, "md5")
	}
	if old.Options.Has(entry.CheckSHA1) && old.HashSHA1 != updated.HashSHA1 {
		changed = append(changed, "sha1")
	}
	if old.Options.Has(entry.CheckSHA256) && old.HashSHA256 != updated.HashSHA256 {
		changed = append(changed, "sha256")
	}
	if old.Options.Has(entry.CheckAttrs) && old.Attributes != updated.Attributes {
		changed = append(changed, "attributes")
	}

	return changed
}

// attributesMap projects e into the wire "attributes"/"old_attributes"
// object: exactly the fields whose option bit is set, plus "type" (always)
// and "checksum" (when non-empty), per spec.md §6.
func attributesMap(e *entry.Entry) map[string]interface{} {
	attrs := map[string]interface{}{
		"type": e.EntryType.String(),
	}
	if e.Checksum != "" {
		attrs["checksum"] = e.Checksum
	}
	if e.Options.Has(entry.CheckSize) {
		attrs["size"] = e.Size
	}
	if e.Options.Has(entry.CheckPerm) {
		attrs["permission"] = e.Perm
	}
	if e.Options.Has(entry.CheckOwner) {
		attrs["uid"] = e.UID
		if e.UserName != nil {
			attrs["user_name"] = *e.UserName
		}
	}
	if e.Options.Has(entry.CheckGroup) {
		attrs["gid"] = e.GID
		if e.GroupName != nil {
			attrs["group_name"] = *e.GroupName
		}
	}
	if e.Options.Has(entry.CheckMTime) {
		attrs["mtime"] = e.MTime
	}
	if e.Options.Has(entry.CheckInode) {
		attrs["inode"] = e.Inode
	}
	if e.Options.Has(entry.CheckMD5) {
		attrs["md5"] = e.HashMD5
	}
	if e.Options.Has(entry.CheckSHA1) {
		attrs["sha1"] = e.HashSHA1
	}
	if e.Options.Has(entry.CheckSHA256) {
		attrs["sha256"] = e.HashSHA256
	}
	if e.Options.Has(entry.CheckAttrs) {
		attrs["attributes"] = e.Attributes
	}
	return attrs
}

func modeToDetection(m entry.Mode) event.DetectionMode {
	switch m {
	case entry.ModeRealtime:
		return event.DetectionRealtime
	case entry.ModeWhodata:
		return event.DetectionWhodata
	default:
		return event.DetectionScheduled
	}
}
