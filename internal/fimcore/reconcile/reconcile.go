// Package reconcile implements component C9 (Reconciler) from spec.md
// §4.9: the end-of-scan sweep that marks entries nobody visited this cycle
// as deleted, emits their events, and resets the scanned flag for entries
// that were visited.
package reconcile

import (
	"time"

	"github.com/wazuh-fim/fimcore/internal/fimcore/catalog"
	"github.com/wazuh-fim/fimcore/internal/fimcore/diff"
	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimcore/event"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// RootLookup resolves a cataloged path back to the root that covers it
// (component C5), so the reconciler can attach tag information to a
// deletion and confirm the path is still covered by configuration. It
// returns ok == false if no configured root covers path any longer (the
// root was removed from configuration), in which case spec.md §4.9 says to
// skip the path rather than report a deletion.
type RootLookup func(path string) (tag string, ok bool)

// Reconciler performs the end-of-scan sweep.
type Reconciler struct {
	Catalog *catalog.Catalog
	Diff    *diff.Engine
	Resolve RootLookup
	Logger  *fimlog.Logger
}

// New constructs a Reconciler.
func New(cat *catalog.Catalog, diffEngine *diff.Engine, resolve RootLookup, logger *fimlog.Logger) *Reconciler {
	return &Reconciler{Catalog: cat, Diff: diffEngine, Resolve: resolve, Logger: logger}
}

// Result summarizes one sweep.
type Result struct {
	// Deleted holds the event envelopes for paths found missing this cycle,
	// in deterministic (sorted-path) order.
	Deleted []*event.Envelope
	// DeletedPaths holds the corresponding paths, same order as Deleted.
	DeletedPaths []string
}

// Sweep performs the state transition described in spec.md §4.9: for every
// cataloged path, either reset its scanned flag (it was visited this cycle)
// or evict it and produce a deleted event (it was not). It does not send
// events to a sink; the caller decides whether baseline suppression applies
// and forwards accordingly.
func (r *Reconciler) Sweep() (Result, error) {
	var result Result

	for _, path := range r.Catalog.SnapshotKeys() {
		e := r.Catalog.Get(path)
		if e == nil {
			// Concurrent delete raced us; nothing to reconcile.
			continue
		}

		if e.Scanned {
			r.Catalog.ClearScanned(path)
			continue
		}

		tag, ok := r.Resolve(path)
		if !ok {
			r.Logger.Debugf("no configured root covers %s any longer, skipping deletion sweep for it", path)
			continue
		}

		env, _, err := r.Diff.Compute(diff.Input{
			Old:       e,
			New:       e,
			Type:      event.ChangeDeleted,
			Mode:      entry.ModeScheduled,
			Path:      path,
			Tag:       tag,
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			return result, err
		}

		r.Catalog.Delete(path)
		if env != nil {
			result.Deleted = append(result.Deleted, env)
			result.DeletedPaths = append(result.DeletedPaths, path)
		}
	}

	return result, nil
}
