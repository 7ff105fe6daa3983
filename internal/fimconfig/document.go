package fimconfig

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/wazuh-fim/fimcore/internal/fimcore/engine"
	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
)

// RootDocument is one configured monitoring root as it appears in a loaded
// YAML/TOML document (spec.md §6: "{ path, options_bits, recursion_level,
// mode_bits, restrict_regex?, tag? }", written with named option/mode
// strings for human readability rather than a bare integer bitmask).
type RootDocument struct {
	Path           string   `yaml:"path" toml:"path"`
	Options        []string `yaml:"options" toml:"options"`
	RecursionLevel int      `yaml:"recursionLevel" toml:"recursionLevel"`
	Mode           []string `yaml:"mode" toml:"mode"`
	Restrict       string   `yaml:"restrict" toml:"restrict"`
	Tag            string   `yaml:"tag" toml:"tag"`
}

// Document is the top-level configuration document.
type Document struct {
	Roots []RootDocument `yaml:"roots" toml:"roots"`

	IgnorePrefixes  []string `yaml:"ignore" toml:"ignore"`
	IgnoreRegex     []string `yaml:"ignoreRegex" toml:"ignoreRegex"`
	IgnoreGlobs     []string `yaml:"ignoreGlobs" toml:"ignoreGlobs"`
	SkipFilesystems []string `yaml:"skipFs" toml:"skipFs"`
	FileMaxSize     ByteSize `yaml:"fileMaxSize" toml:"fileMaxSize"`
	PrefilterCmd    string   `yaml:"prefilterCmd" toml:"prefilterCmd"`
}

// optionNames maps the named option strings a document may use onto the
// option bits from entry.Options (spec.md §6 "Option bits").
var optionNames = map[string]entry.Options{
	"size":         entry.CheckSize,
	"perm":         entry.CheckPerm,
	"owner":        entry.CheckOwner,
	"group":        entry.CheckGroup,
	"mtime":        entry.CheckMTime,
	"inode":        entry.CheckInode,
	"md5":         entry.CheckMD5,
	"sha1":        entry.CheckSHA1,
	"sha256":      entry.CheckSHA256,
	"attrs":       entry.CheckAttrs,
	"see_changes": entry.CheckSeeChanges,
	"seechanges":  entry.CheckSeeChanges,
}

// modeNames maps named detection-mode strings onto the option bits that
// activate them (ModeBits in a root's Options).
var modeNames = map[string]entry.Options{
	"realtime":  entry.RealtimeActive,
	"real-time": entry.RealtimeActive,
	"whodata":   entry.WhodataActive,
	// "scheduled" is intentionally absent: scheduled mode is implicit and
	// always active for any configured root (spec.md §4.8).
}

// Validate converts d into an immutable engine.Config, resolving named
// options/modes to bits and compiling every regular expression. Any
// malformed value is an InvalidConfig error (spec.md §7): the only
// configuration failure class that propagates to the caller and aborts
// startup, rather than being recovered locally like a filesystem error.
func (d *Document) Validate() (engine.Config, error) {
	cfg := engine.Config{
		IgnorePrefixes:  d.IgnorePrefixes,
		IgnoreGlobs:     d.IgnoreGlobs,
		FileMaxSize:     uint64(d.FileMaxSize),
		PrefilterCmd:    d.PrefilterCmd,
		SkipFilesystems: make(map[string]bool, len(d.SkipFilesystems)),
	}
	for _, fs := range d.SkipFilesystems {
		cfg.SkipFilesystems[fs] = true
	}

	for _, pattern := range d.IgnoreRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return engine.Config{}, errors.Wrapf(err, "invalid ignoreRegex pattern %q", pattern)
		}
		cfg.IgnoreRegex = append(cfg.IgnoreRegex, re)
	}

	if len(d.Roots) == 0 {
		return engine.Config{}, errors.New("configuration defines no roots")
	}

	for i, root := range d.Roots {
		if root.Path == "" {
			return engine.Config{}, errors.Errorf("root %d: path is required", i)
		}
		if root.RecursionLevel < 0 {
			return engine.Config{}, errors.Errorf("root %d (%s): recursionLevel must be non-negative", i, root.Path)
		}

		var options entry.Options
		for _, name := range root.Options {
			bit, ok := optionNames[name]
			if !ok {
				return engine.Config{}, errors.Errorf("root %d (%s): unknown option %q", i, root.Path, name)
			}
			options |= bit
		}

		var modeBits entry.Options
		for _, name := range root.Mode {
			if name == "scheduled" {
				continue
			}
			bit, ok := modeNames[name]
			if !ok {
				return engine.Config{}, errors.Errorf("root %d (%s): unknown mode %q", i, root.Path, name)
			}
			modeBits |= bit
		}
		options |= modeBits

		var restrict *regexp.Regexp
		if root.Restrict != "" {
			var err error
			restrict, err = regexp.Compile(root.Restrict)
			if err != nil {
				return engine.Config{}, errors.Wrapf(err, "root %d (%s): invalid restrict pattern", i, root.Path)
			}
		}

		cfg.Roots = append(cfg.Roots, engine.RootConfig{
			Path:           root.Path,
			Options:        options,
			RecursionLevel: root.RecursionLevel,
			ModeBits:       modeBits,
			Restrict:       restrict,
			Tag:            root.Tag,
		})
	}

	return cfg, nil
}
