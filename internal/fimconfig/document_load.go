package fimconfig

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LoadDocument loads a configuration document from path, dispatching to the
// YAML or TOML decoder based on its extension.
func LoadDocument(path string) (*Document, error) {
	doc := &Document{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := LoadYAML(path, doc); err != nil {
			return nil, err
		}
	case ".toml":
		if err := LoadTOML(path, doc); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unrecognized configuration format for %s", path)
	}

	return doc, nil
}
