package match

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIgnorePrefixIsPrefixNotEquality(t *testing.T) {
	m := New(Config{IgnorePrefixes: []string{"/var/log"}}, nil, nil)
	require.True(t, m.ShouldIgnore("/var/log/syslog", 0))
	require.True(t, m.ShouldIgnore("/var/log", 0))
	require.False(t, m.ShouldIgnore("/var/lo", 0))
	require.False(t, m.ShouldIgnore("/etc/passwd", 0))
}

func TestIgnoreRegex(t *testing.T) {
	m := New(Config{IgnoreRegex: []*regexp.Regexp{regexp.MustCompile(`\.tmp$`)}}, nil, nil)
	require.True(t, m.ShouldIgnore("/tmp/r/x.tmp", 0))
	require.False(t, m.ShouldIgnore("/tmp/r/x.txt", 0))
}

func TestIgnoreGlob(t *testing.T) {
	m := New(Config{IgnoreGlobs: []string{"**/*.log"}}, nil, nil)
	require.True(t, m.ShouldIgnore("/var/app/output.log", 0))
	require.False(t, m.ShouldIgnore("/var/app/output.txt", 0))
}

func TestRestrictRegexRequiresMatch(t *testing.T) {
	restrict := map[int]*regexp.Regexp{0: regexp.MustCompile(`^/etc/.*\.conf$`)}
	m := New(Config{RestrictRegex: restrict}, nil, nil)

	require.False(t, m.ShouldIgnore("/etc/app.conf", 0))
	require.True(t, m.ShouldIgnore("/etc/app.txt", 0))
	// A different root has no restriction configured.
	require.False(t, m.ShouldIgnore("/etc/app.txt", 1))
}

func TestSkippedFilesystem(t *testing.T) {
	typer := func(path string) (string, error) { return "tmpfs", nil }
	m := New(Config{SkipFilesystems: map[string]bool{"tmpfs": true}}, typer, nil)
	require.True(t, m.ShouldIgnore("/tmp/anything", 0))
}

func TestNilTyperNeverSkips(t *testing.T) {
	m := New(Config{SkipFilesystems: map[string]bool{"tmpfs": true}}, nil, nil)
	require.False(t, m.ShouldIgnore("/tmp/anything", 0))
}
