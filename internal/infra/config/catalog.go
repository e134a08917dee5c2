package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/videolens/server/internal/domain/plan"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk plan catalog.
type catalogFile struct {
	Plans      []plan.Definition  `yaml:"plans"`
	Aliases    map[string]plan.ID `yaml:"aliases,omitempty"`
	Exceptions []plan.Exception   `yaml:"exceptions,omitempty"`
}

// LoadCatalog returns the built-in catalog, or the catalog described by
// cfg.File when set. A file overrides the values of the built-in plans; it
// cannot add or remove identifiers.
func LoadCatalog(cfg CatalogConfig) (*plan.Catalog, error) {
	if cfg.File == "" {
		return plan.Builtin(), nil
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog(bytes.NewReader(data))
}

// ParseCatalog decodes a YAML catalog and validates it.
func ParseCatalog(r io.Reader) (*plan.Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	aliases := plan.DefaultAliases()
	for label, id := range file.Aliases {
		if !id.IsValid() {
			return nil, fmt.Errorf("%w: alias %q targets unknown plan %q", ErrInvalidCatalog, label, id)
		}
		aliases[label] = id
	}

	exceptions := file.Exceptions
	if len(exceptions) == 0 {
		exceptions = plan.DefaultExceptions()
	}

	catalog, err := plan.NewCatalog(file.Plans, aliases, exceptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return catalog, nil
}
