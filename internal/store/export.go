// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"go.yaml.in/yaml/v3"
)

// ExportYAML writes the records matching f to path as a YAML sequence.
func (s *Store) ExportYAML(ctx context.Context, path string, f Filter) error {
	records, err := s.Records(ctx, f)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []StoredRecord{}
	}

	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return writeExport(path, data)
}

// ExportJSON writes the records matching f to path as a JSON array.
func (s *Store) ExportJSON(ctx context.Context, path string, f Filter) error {
	records, err := s.Records(ctx, f)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []StoredRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return writeExport(path, data)
}

func writeExport(path string, data []byte) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expanding export path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
