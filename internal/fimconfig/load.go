// Package fimconfig loads and validates the engine's human-readable
// configuration, adapted from mutagen's pkg/encoding load/save helpers and
// pkg/configuration/synchronization's Document-to-runtime-Configuration
// conversion pattern, retargeted at spec.md §6's root/global configuration
// model instead of session synchronization parameters.
package fimconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// LoadYAML loads and strictly decodes a YAML document at path into value,
// ported from mutagen's encoding.LoadAndUnmarshalYAML (which uses
// yaml.UnmarshalStrict so unknown keys are a load error rather than silently
// ignored).
func LoadYAML(path string, value interface{}) error {
	return loadAndUnmarshal(path, func(data []byte) error {
		return yaml.UnmarshalStrict(data, value)
	})
}

// LoadTOML loads and decodes a TOML document at path into value, ported from
// mutagen's encoding.LoadAndUnmarshalTOML.
func LoadTOML(path string, value interface{}) error {
	return loadAndUnmarshal(path, func(data []byte) error {
		return toml.Unmarshal(data, value)
	})
}

func loadAndUnmarshal(path string, unmarshal func([]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("unable to load file: %w", err)
	}
	if err := unmarshal(data); err != nil {
		return errors.Wrap(err, "unable to unmarshal configuration")
	}
	return nil
}
