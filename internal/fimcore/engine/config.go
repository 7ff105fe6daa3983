package engine

import (
	"regexp"

	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
)

// RootConfig is one configured monitoring root, the Go-native form of the
// tuple spec.md §6 describes: "{ path, options_bits, recursion_level,
// mode_bits, restrict_regex?, tag? }".
type RootConfig struct {
	Path           string
	Options        entry.Options
	RecursionLevel int
	ModeBits       entry.Options // subset of RealtimeActive | WhodataActive
	Restrict       *regexp.Regexp
	Tag            string
}

// Config is the engine's fully validated, immutable configuration, produced
// by fimconfig from a loaded Document (spec.md §6 "Configuration (consumed,
// not owned)").
type Config struct {
	Roots           []RootConfig
	IgnorePrefixes  []string
	IgnoreRegex     []*regexp.Regexp
	IgnoreGlobs     []string
	SkipFilesystems map[string]bool
	FileMaxSize     uint64
	PrefilterCmd    string
}
