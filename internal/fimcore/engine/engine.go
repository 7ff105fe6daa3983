// Package engine wires components C1-C9 together into the owned, passive
// context spec.md §9 calls for in place of the source's process-wide
// mutable globals: a single Engine value holds the catalog, the baseline
// flag, and every collaborator, and is driven by an outer scheduler,
// realtime watcher, and whodata source exactly as described in spec.md §5.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/wazuh-fim/fimcore/internal/fimcore/catalog"
	"github.com/wazuh-fim/fimcore/internal/fimcore/contentdiff"
	"github.com/wazuh-fim/fimcore/internal/fimcore/diff"
	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimcore/event"
	"github.com/wazuh-fim/fimcore/internal/fimcore/fsmeta"
	"github.com/wazuh-fim/fimcore/internal/fimcore/match"
	"github.com/wazuh-fim/fimcore/internal/fimcore/modegate"
	"github.com/wazuh-fim/fimcore/internal/fimcore/probe"
	"github.com/wazuh-fim/fimcore/internal/fimcore/reconcile"
	"github.com/wazuh-fim/fimcore/internal/fimcore/rootresolve"
	"github.com/wazuh-fim/fimcore/internal/fimcore/walk"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// ScanStats reports counters and wall-clock timing for one completed scan,
// after the source's fim_send_scan_info timing fields (SPEC_FULL.md §4); CPU
// time is not recorded.
type ScanStats struct {
	Directories int
	Files       int
	Symlinks    int
	Elapsed     time.Duration
}

// Engine owns every piece of mutable FIM state: the catalog, the
// once-only baseline flag, and the configured roots. The zero value is not
// usable; construct with New.
type Engine struct {
	cfg Config

	scanMu sync.Mutex // scan_lock (spec.md §5): serializes scheduled scans.

	catalog             *catalog.Catalog
	baselineEstablished atomic.Bool

	resolver   *rootresolve.Resolver
	matcher    *match.Matcher
	prober     *probe.Prober
	diffEngine *diff.Engine
	reconciler *reconcile.Reconciler
	content    contentdiff.Store
	sink       event.Sink
	logger     *fimlog.Logger
}

// New constructs an Engine from cfg. sink receives outbound events; it may
// be nil, in which case events are still computed (so tests can inspect
// them via the diff package) but never delivered. content, if nil, defaults
// to an in-memory contentdiff.Store.
func New(cfg Config, sink event.Sink, content contentdiff.Store, logger *fimlog.Logger) *Engine {
	if content == nil {
		content = contentdiff.NewMemoryStore()
	}
	if logger == nil {
		logger = fimlog.RootLogger
	}

	roots := make([]rootresolve.Root, len(cfg.Roots))
	restrictRegex := make(map[int]*regexp.Regexp)
	for i, r := range cfg.Roots {
		roots[i] = rootresolve.Root{Path: r.Path, Kind: rootresolve.KindFile}
		if r.Restrict != nil {
			restrictRegex[i] = r.Restrict
		}
	}

	e := &Engine{
		cfg:     cfg,
		catalog: catalog.New(),
		prober: &probe.Prober{
			FileMaxSize:  cfg.FileMaxSize,
			PrefilterCmd: cfg.PrefilterCmd,
			Logger:       logger.Sublogger("probe"),
		},
		diffEngine: diff.New(logger.Sublogger("diff")),
		content:    content,
		sink:       sink,
		logger:     logger.Sublogger("engine"),
	}
	e.resolver = rootresolve.New(roots)
	e.matcher = match.New(match.Config{
		IgnorePrefixes:  cfg.IgnorePrefixes,
		IgnoreRegex:     cfg.IgnoreRegex,
		IgnoreGlobs:     cfg.IgnoreGlobs,
		RestrictRegex:   restrictRegex,
		SkipFilesystems: cfg.SkipFilesystems,
	}, fsmeta.FilesystemType, logger.Sublogger("match"))
	e.reconciler = reconcile.New(e.catalog, e.diffEngine, e.rootTagFor, logger.Sublogger("reconcile"))

	return e
}

// rootTagFor implements reconcile.RootLookup: resolve a cataloged path back
// to its covering root's tag, or report that no root covers it any longer.
func (e *Engine) rootTagFor(path string) (string, bool) {
	idx, ok := e.resolver.RootOf(path, rootresolve.KindFile)
	if !ok {
		return "", false
	}
	return e.cfg.Roots[idx].Tag, true
}

// ScanOnce performs one full scheduled scan of every configured root:
// scan_start, a depth-capped walk of each root with per-path admission,
// probing, diffing, and cataloging, an end-of-scan reconciliation sweep,
// and scan_end. It serializes against concurrent scheduled scans via
// scan_lock (spec.md §5) but never blocks realtime/whodata intake, which
// acquire only catalog_lock per path.
func (e *Engine) ScanOnce(ctx context.Context) (ScanStats, error) {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	start := time.Now()
	var stats ScanStats
	// Walker fans its recursion out across sibling subdirectories (package
	// walk), so visit callbacks below may run concurrently; the counters
	// are atomic.Int64 values for that reason.
	var directories, files, symlinks atomic.Int64

	// scan_start/scan_end are never suppressed by the baseline gate (spec.md
	// §8 property 4 / scenario S1): only add/modify/delete events are.
	if err := event.Emit(e.sink, event.NewScanStart(start.Unix())); err != nil {
		e.logger.Warn(errors.Wrap(err, "unable to emit scan_start"))
	}

	for rootIndex, root := range e.cfg.Roots {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		w := walk.New(e.matcher, root.RecursionLevel, e.logger.Sublogger("walk"))
		err := w.Walk(ctx, root.Path, rootIndex, func(ctx context.Context, path string, meta *fsmeta.Metadata, parent *fsmeta.Directory) error {
			switch meta.Mode.Type() {
			case fsmeta.ModeTypeDirectory:
				directories.Add(1)
				return nil
			case fsmeta.ModeTypeSymbolicLink:
				symlinks.Add(1)
			default:
				files.Add(1)
			}
			return e.processObservation(ctx, path, rootIndex, parent, meta, entry.ModeScheduled, nil)
		})
		if err != nil {
			e.logger.Warn(errors.Wrapf(err, "scan of root %s failed", root.Path))
		}
	}
	stats.Directories = int(directories.Load())
	stats.Files = int(files.Load())
	stats.Symlinks = int(symlinks.Load())

	result, err := e.reconciler.Sweep()
	if err != nil {
		e.logger.Warn(errors.Wrap(err, "reconciliation sweep failed"))
	} else if e.baselineEstablished.Load() {
		for _, env := range result.Deleted {
			if err := event.Emit(e.sink, *env); err != nil {
				e.logger.Warn(errors.Wrap(err, "unable to emit deleted event"))
			}
		}
	}

	stats.Elapsed = time.Since(start)

	if err := event.Emit(e.sink, event.NewScanEnd(time.Now().Unix())); err != nil {
		e.logger.Warn(errors.Wrap(err, "unable to emit scan_end"))
	}

	// baseline_established flips exactly once, at the end of the first
	// completed scan_once (spec.md §5 "Baseline flag").
	e.baselineEstablished.CompareAndSwap(false, true)

	return stats, nil
}

// HandleIntake processes a single-path observation from a realtime or
// whodata source (spec.md §4.6 "the walker is re-entrant"). audit, if
// non-nil, is attached to the resulting event and signals mode ==
// entry.ModeWhodata came with OS audit attribution.
func (e *Engine) HandleIntake(ctx context.Context, path string, mode entry.Mode, audit map[string]interface{}) error {
	rootIndex, ok := e.resolver.RootOf(path, rootresolve.KindFile)
	if !ok {
		e.logger.Debugf("no configured root covers %s, dropping intake event", path)
		return nil
	}
	root := e.cfg.Roots[rootIndex]

	// Mode gating (component C8, spec.md §4.8 property 8): a realtime event
	// on a root without REALTIME_ACTIVE (or whodata without WHODATA_ACTIVE)
	// produces no sink event and no catalog mutation.
	if !modegate.Admit(mode, root.ModeBits) {
		return nil
	}
	if e.matcher.ShouldIgnore(path, rootIndex) {
		return nil
	}

	targets := e.hardLinkGroup(path)
	for _, target := range targets {
		targetAudit := audit
		if target != path {
			targetAudit = nil
		}
		if err := e.visitSinglePath(ctx, target, mode, targetAudit); err != nil {
			e.logger.Debugf("intake visit failed for %s: %v", target, err)
		}
	}
	return nil
}

// hardLinkGroup returns the set of paths that must be revisited alongside
// path: path itself, plus every other path the catalog already associates
// with path's (device, inode) pair (spec.md §8 property 6, scenario S4).
func (e *Engine) hardLinkGroup(path string) []string {
	old := e.catalog.Get(path)
	set := map[string]struct{}{path: {}}
	if old != nil && old.Inode != 0 {
		for _, p := range e.catalog.PathsForInode(catalog.InodeKey{Device: old.Dev, Inode: old.Inode}) {
			set[p] = struct{}{}
		}
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// visitSinglePath re-stats path directly (rather than via a directory
// listing) and routes it through the same probe/diff/catalog pipeline as a
// scheduled visit, or through the missing-path branch of spec.md §4.6 step 3
// if it has disappeared.
func (e *Engine) visitSinglePath(ctx context.Context, path string, mode entry.Mode, audit map[string]interface{}) error {
	rootIndex, ok := e.resolver.RootOf(path, rootresolve.KindFile)
	if !ok {
		return nil
	}
	root := e.cfg.Roots[rootIndex]

	dirPath := filepath.Dir(path)
	name := filepath.Base(path)

	obj, _, err := fsmeta.OpenRoot(dirPath)
	if err != nil {
		return e.handleMissing(path, root, mode)
	}
	dir, ok := obj.(*fsmeta.Directory)
	if !ok {
		if closer, ok := obj.(interface{ Close() error }); ok {
			closer.Close()
		}
		return errors.Errorf("%s is not a directory", dirPath)
	}
	defer dir.Close()

	meta, err := dir.StatChild(name)
	if err != nil {
		if os.IsNotExist(err) {
			return e.handleMissing(path, root, mode)
		}
		return errors.Wrapf(err, "unable to stat %s", path)
	}
	if meta.Mode.Type() == fsmeta.ModeTypeDirectory {
		// Directories are walked, never cataloged as Entry values.
		return nil
	}

	return e.processObservation(ctx, path, rootIndex, dir, meta, mode, audit)
}

// handleMissing implements spec.md §4.6 step 3's missing-path branch for
// single-path intake: "Missing -> emit deleted (via C7 + catalog delete) if
// the path is in C1 and option CHECK_SEECHANGES is set, then return."
func (e *Engine) handleMissing(path string, root RootConfig, mode entry.Mode) error {
	old := e.catalog.Get(path)
	if old == nil || !old.Options.Has(entry.CheckSeeChanges) {
		return nil
	}

	env, _, err := e.diffEngine.Compute(diff.Input{
		Old:       old,
		New:       old,
		Type:      event.ChangeDeleted,
		Mode:      mode,
		Path:      path,
		Tag:       root.Tag,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	e.catalog.Delete(path)
	if env != nil && e.baselineEstablished.Load() {
		return event.Emit(e.sink, *env)
	}
	return nil
}

// processObservation is the shared body of a scheduled-walk visit and a
// realtime/whodata single-path visit: probe attributes, diff against the
// prior entry, update the catalog, and (subject to the baseline gate)
// forward the resulting event.
func (e *Engine) processObservation(
	ctx context.Context,
	path string,
	rootIndex int,
	parent *fsmeta.Directory,
	meta *fsmeta.Metadata,
	mode entry.Mode,
	audit map[string]interface{},
) error {
	root := e.cfg.Roots[rootIndex]

	newEntry, err := e.prober.Attributes(path, parent, meta, root.Options, mode)
	if err != nil {
		if probeErr, ok := err.(*probe.Error); ok {
			switch probeErr.Kind {
			case probe.KindNotFound:
				return e.handleMissing(path, root, mode)
			case probe.KindPermissionDenied:
				e.logger.Debugf("permission denied probing %s", path)
				return nil
			case probe.KindHashFailed:
				e.logger.Debugf("hash failed for %s, skipping entirely", path)
				return nil
			}
		}
		return err
	}

	old, existed := e.catalog.Upsert(path, newEntry)

	changeType := event.ChangeModified
	if !existed {
		changeType = event.ChangeAdded
	}

	var contentChanges string
	if newEntry.Options.Has(entry.CheckSeeChanges) {
		// The first-backup side effect runs unconditionally for new files
		// and its result is discarded (spec.md §4.7, SPEC_FULL.md §4).
		contentChanges = e.seedContentDiff(path, changeType)
	}

	env, _, err := e.diffEngine.Compute(diff.Input{
		Old:            old,
		New:            newEntry,
		Type:           changeType,
		Mode:           mode,
		Path:           path,
		Tag:            root.Tag,
		Audit:          audit,
		ContentChanges: contentChanges,
		Timestamp:      time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	if env == nil {
		return nil
	}
	if !e.baselineEstablished.Load() {
		// Baseline gate (spec.md §4.7, property 4): state is updated, the
		// event is constructed, but it is not forwarded to the sink.
		return nil
	}
	return event.Emit(e.sink, *env)
}

// seedContentDiff feeds path's current contents to the content-diff store.
// For newly added files this is the "first backup" and its result is always
// discarded by the caller per spec.md §4.7; for modified files the returned
// diff is attached to the outbound event.
func (e *Engine) seedContentDiff(path string, changeType event.ChangeType) string {
	contents, err := os.ReadFile(path)
	if err != nil {
		e.logger.Debugf("unable to read %s for content diff: %v", path, err)
		return ""
	}
	diffText, err := e.content.AddFile(path, contents)
	if err != nil {
		e.logger.Debugf("content diff store failed for %s: %v", path, err)
		return ""
	}
	if changeType == event.ChangeAdded {
		return ""
	}
	return diffText
}

// Catalog exposes the engine's catalog for read-only inspection, e.g. by
// tests.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// BaselineEstablished reports whether the first scheduled scan has
// completed.
func (e *Engine) BaselineEstablished() bool {
	return e.baselineEstablished.Load()
}
