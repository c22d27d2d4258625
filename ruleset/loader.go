// Package ruleset loads the declarative rule catalog the engine scans
// with: regex/AST rules plus taint sources, sinks and sanitizers,
// stored as a single TOML document with four top-level arrays.
package ruleset

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/vigilscan/vigil/model"
)

// Load reads and parses the rule catalog at path. A malformed document
// is a fatal, caller-visible error (the catalog-invalid error class);
// nothing else in this package can fail the scan.
func Load(path string) (*model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rule catalog: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a TOML document into a Catalog and validates it.
// Missing arrays default to empty; unknown keys are ignored (go-toml's
// default decode behavior).
func Parse(data []byte) (*model.Catalog, error) {
	var cat model.Catalog
	if err := toml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("rule catalog: failed to parse: %w", err)
	}
	applyDefaults(&cat)
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// applyDefaults fills in field defaults go-toml's zero-value decode
// leaves unset, matching the Rust catalog's #[serde(default = ...)]
// annotations.
func applyDefaults(cat *model.Catalog) {
	for i := range cat.Rules {
		if cat.Rules[i].Confidence == "" {
			cat.Rules[i].Confidence = "Medium"
		}
	}
}
