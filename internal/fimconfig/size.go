package fimconfig

import "github.com/dustin/go-humanize"

// ByteSize is a uint64 that unmarshals from either a bare integer or a
// human-friendly string ("100MB", "2GiB"), ported from mutagen's
// pkg/configuration.ByteSize.
type ByteSize uint64

// UnmarshalText implements encoding.TextUnmarshaler, used by both the YAML
// and TOML decoders when a size field is given as a quoted string.
func (s *ByteSize) UnmarshalText(text []byte) error {
	value, err := humanize.ParseBytes(string(text))
	if err != nil {
		return err
	}
	*s = ByteSize(value)
	return nil
}
