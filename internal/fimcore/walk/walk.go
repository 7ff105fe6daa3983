// Package walk implements component C6 (Walker) from spec.md §4.6: a
// recursive, depth-capped traversal of a configured root that invokes a
// caller-supplied visitor for the root and for every file, symbolic link and
// directory it encounters, skipping subtrees the Matcher rejects. The walk
// holds no scan-wide state. Single-path intake from realtime and whodata
// sources does not go through this package: engine.Engine stats the one path
// itself and shares only the per-path processing with the scheduled walk.
package walk

import (
	"context"
	"path"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/wazuh-fim/fimcore/internal/fimcore/fsmeta"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// maxConcurrentSubdirectories bounds the fan-out of concurrent subdirectory
// walks within a single directory, the same bounded-concurrency shape
// mutagen's core/scan.go uses for its own recursive scan (ported here via
// errgroup instead of a hand-rolled worker pool).
const maxConcurrentSubdirectories = 8

// Ignorer reports whether a path should be skipped, per component C4.
type Ignorer interface {
	ShouldIgnore(path string, rootIndex int) bool
}

// Visitor is invoked once per non-ignored filesystem object the walk
// encounters (files, symbolic links, and directories). Returning an error
// from Visit for one object aborts the remainder of that subtree's walk but
// not sibling subtrees, matching mutagen's best-effort scan semantics
// (core/scan.go continues past per-entry errors it can attribute to a
// transient race). Because sibling subdirectories are walked concurrently
// (bounded by maxConcurrentSubdirectories), a Visitor may be called from
// multiple goroutines at once and must synchronize any state it shares
// across calls.
type Visitor func(ctx context.Context, path string, meta *fsmeta.Metadata, parent *fsmeta.Directory) error

// Walker performs recursive, depth-capped traversal of one configured root.
type Walker struct {
	Ignorer  Ignorer
	MaxDepth int
	Logger   *fimlog.Logger
}

// New constructs a Walker. A MaxDepth of zero means unlimited depth.
func New(ignorer Ignorer, maxDepth int, logger *fimlog.Logger) *Walker {
	return &Walker{Ignorer: ignorer, MaxDepth: maxDepth, Logger: logger}
}

// Walk traverses rootPath (root index rootIndex, for ignore/restrict
// evaluation) invoking visit for every non-ignored object reached. The walk
// stops early if ctx is canceled.
func (w *Walker) Walk(ctx context.Context, rootPath string, rootIndex int, visit Visitor) error {
	obj, meta, err := fsmeta.OpenRoot(rootPath)
	if err != nil {
		return errors.Wrap(err, "unable to open root")
	}

	switch handle := obj.(type) {
	case *fsmeta.Directory:
		defer handle.Close()
		if err := visit(ctx, rootPath, meta, nil); err != nil {
			return err
		}
		return w.walkDirectory(ctx, handle, rootPath, rootIndex, 0, visit)
	default:
		if closer, ok := obj.(interface{ Close() error }); ok {
			defer closer.Close()
		}
		return visit(ctx, rootPath, meta, nil)
	}
}

// walkDirectory reads dir's own contents and recurses into its
// subdirectories. depth is the path-separator count its *children* (the
// entries about to be read from dir) have relative to the root, per spec.md
// §4.6; the root's own children are depth 0.
func (w *Walker) walkDirectory(ctx context.Context, dir *fsmeta.Directory, dirPath string, rootIndex, depth int, visit Visitor) error {
	if w.MaxDepth > 0 && depth > w.MaxDepth {
		w.Logger.Debugf("depth limit reached at %s, not descending further", dirPath)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	contents, err := dir.ReadContents()
	if err != nil {
		return errors.Wrapf(err, "unable to read contents of %s", dirPath)
	}

	// Sorting fixes the order in which one directory's children are
	// visited. Sibling subdirectories are then walked concurrently, so the
	// order across directories is not fixed.
	sort.Slice(contents, func(i, j int) bool { return contents[i].Name < contents[j].Name })

	var subdirectories []string
	for _, child := range contents {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Recompose filenames to NFC before they ever reach the catalog or
		// an ignore rule, so a path cataloged from a decomposed-form name on
		// one scan (e.g. over a network share) compares equal to the same
		// path observed in composed form on another (ported from
		// core/scan.go's Unicode handling).
		name := norm.NFC.String(child.Name)
		childPath := path.Join(dirPath, name)
		if w.Ignorer != nil && w.Ignorer.ShouldIgnore(childPath, rootIndex) {
			continue
		}

		if err := visit(ctx, childPath, child, dir); err != nil {
			w.Logger.Debugf("visit failed for %s: %v", childPath, err)
			continue
		}

		if child.Mode.Type() == fsmeta.ModeTypeDirectory {
			subdirectories = append(subdirectories, child.Name)
		}
	}
	if len(subdirectories) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentSubdirectories)
	for _, name := range subdirectories {
		name := name
		childPath := path.Join(dirPath, norm.NFC.String(name))
		group.Go(func() error {
			subdir, err := dir.OpenDirectory(name)
			if err != nil {
				w.Logger.Debugf("unable to open subdirectory %s: %v", childPath, err)
				return nil
			}
			defer subdir.Close()
			return w.walkDirectory(groupCtx, subdir, childPath, rootIndex, depth+1, visit)
		})
	}
	return group.Wait()
}
