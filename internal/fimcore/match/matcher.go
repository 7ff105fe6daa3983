// Package match implements component C4 (Matcher) from spec.md §4.4: ignore
// prefixes, ignore regexes, glob-style ignore patterns, a per-root restrict
// regex, and the skipped-filesystem test.
package match

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// FilesystemTyper reports the filesystem type name (e.g. "tmpfs", "nfs") of
// the mount containing path. It is supplied by the caller because
// determining it (statfs f_type decoding) is platform-specific plumbing
// outside the core's concern.
type FilesystemTyper func(path string) (string, error)

// Config holds one Matcher's configuration, built once from the loaded
// fimconfig.Document and reused across every scan.
type Config struct {
	// IgnorePrefixes are literal path prefixes to ignore. Matching is a
	// prefix test, never full-path equality (spec.md §9, open question 2),
	// case-sensitive on POSIX and case-insensitive on Windows.
	IgnorePrefixes []string
	// IgnoreRegex are compiled regular expressions; a match on the full path
	// causes the path to be ignored.
	IgnoreRegex []*regexp.Regexp
	// IgnoreGlobs are doublestar glob patterns (e.g. "**/*.tmp"), a
	// supplement to the distilled spec's literal/regex ignore lists —
	// grounded on mutagen's pkg/synchronization/core/ignore package, which
	// uses doublestar for exactly this purpose (see SPEC_FULL.md §3).
	IgnoreGlobs []string
	// RestrictRegex, if non-nil for a given root index, requires a match for
	// a path under that root to be considered at all.
	RestrictRegex map[int]*regexp.Regexp
	// SkipFilesystems is the set of filesystem type names to skip entirely
	// (e.g. "tmpfs", "proc", "sysfs").
	SkipFilesystems map[string]bool
}

// Matcher applies ignore/restrict/skip-fs rules for a configured set of
// roots.
type Matcher struct {
	cfg        Config
	fsType     FilesystemTyper
	logger     *fimlog.Logger
	caseFold   bool
}

// New constructs a Matcher. fsType may be nil, in which case the skipped-
// filesystem test always reports false (no filesystem is skipped).
func New(cfg Config, fsType FilesystemTyper, logger *fimlog.Logger) *Matcher {
	return &Matcher{
		cfg:      cfg,
		fsType:   fsType,
		logger:   logger,
		caseFold: runtime.GOOS == "windows",
	}
}

// ShouldIgnore reports whether path should be excluded from monitoring for
// root rootIndex, per spec.md §4.4.
func (m *Matcher) ShouldIgnore(path string, rootIndex int) bool {
	if m.matchesIgnorePrefix(path) {
		return true
	}
	for _, re := range m.cfg.IgnoreRegex {
		if re.MatchString(path) {
			return true
		}
	}
	for _, pattern := range m.cfg.IgnoreGlobs {
		if ok, _ := doublestar.Match(pattern, strings.TrimPrefix(path, "/")); ok {
			return true
		}
	}
	if restrict, ok := m.cfg.RestrictRegex[rootIndex]; ok && !restrict.MatchString(path) {
		return true
	}
	if m.isSkippedFilesystem(path) {
		return true
	}
	return false
}

func (m *Matcher) matchesIgnorePrefix(path string) bool {
	for _, prefix := range m.cfg.IgnorePrefixes {
		if m.caseFold {
			if len(path) >= len(prefix) && strings.EqualFold(path[:len(prefix)], prefix) {
				return true
			}
		} else if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *Matcher) isSkippedFilesystem(path string) bool {
	if m.fsType == nil || len(m.cfg.SkipFilesystems) == 0 {
		return false
	}
	fsType, err := m.fsType(path)
	if err != nil {
		m.logger.Debugf("unable to determine filesystem type for %s: %v", path, err)
		return false
	}
	return m.cfg.SkipFilesystems[fsType]
}
