// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes harvested records and raw repository responses to
// disk and renders records for the console.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oai-harvest/pkg/types"
)

// ErrExists is returned when a target file exists and overwriting is off.
var ErrExists = errors.New("output: file already exists")

// Default directories, relative to the working directory.
const (
	DefaultRecordsDir   = "records"
	DefaultResponsesDir = "responses"
)

// Render returns the file or console content for rec. String metadata is
// written as-is; everything else is encoded with enc. For the marcJson
// format only the MARC record is encoded, not the OAI-PMH header.
func Render(rec types.Record, format types.MetadataFormat, enc types.Encoding) ([]byte, error) {
	if s, ok := rec.Metadata.(string); ok {
		return []byte(s), nil
	}
	var v any = rec
	if format == types.FormatMARCJSON && rec.Metadata != nil {
		v = rec.Metadata
	}
	return encode(v, enc)
}

// Extension returns the file extension Render's output should carry.
func Extension(rec types.Record, enc types.Encoding) string {
	if _, ok := rec.Metadata.(string); ok {
		return "xml"
	}
	if enc == types.EncodingYAML {
		return "yaml"
	}
	return "json"
}

func encode(v any, enc types.Encoding) ([]byte, error) {
	switch enc {
	case "", types.EncodingJSON:
		data, err := json.MarshalIndent(v, "", "\t")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return data, nil
	case types.EncodingYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", enc)
}

// RecordWriter writes one numbered file per record: 1.xml, 2.json, ...
type RecordWriter struct {
	dir       string
	format    types.MetadataFormat
	encoding  types.Encoding
	overwrite bool
	count     int
}

// NewRecordWriter prepares cfg.RecordsDir.
func NewRecordWriter(cfg types.OutputConfig, format types.MetadataFormat) (*RecordWriter, error) {
	dir, err := prepareDir(cfg.RecordsDir, DefaultRecordsDir)
	if err != nil {
		return nil, err
	}
	return &RecordWriter{dir: dir, format: format, encoding: cfg.Encoding, overwrite: cfg.Overwrite}, nil
}

// Count returns the number of records written.
func (w *RecordWriter) Count() int { return w.count }

// Write renders rec into the next numbered file and returns its path.
func (w *RecordWriter) Write(rec types.Record) (string, error) {
	data, err := Render(rec, w.format, w.encoding)
	if err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%d.%s", w.count+1, Extension(rec, w.encoding)))
	if err := writeFile(path, data, w.overwrite); err != nil {
		return "", err
	}
	w.count++
	return path, nil
}

// ResponseWriter writes raw response bodies as response_<name>.xml.
type ResponseWriter struct {
	dir       string
	overwrite bool
}

// NewResponseWriter prepares cfg.ResponsesDir.
func NewResponseWriter(cfg types.OutputConfig) (*ResponseWriter, error) {
	dir, err := prepareDir(cfg.ResponsesDir, DefaultResponsesDir)
	if err != nil {
		return nil, err
	}
	return &ResponseWriter{dir: dir, overwrite: cfg.Overwrite}, nil
}

// Write stores body under name, which is a page iteration or a verb label.
func (w *ResponseWriter) Write(name, body string) (string, error) {
	path := filepath.Join(w.dir, "response_"+name+".xml")
	if err := writeFile(path, []byte(body), w.overwrite); err != nil {
		return "", err
	}
	return path, nil
}

// Print writes content to w followed by a newline.
func Print(w io.Writer, content []byte) error {
	_, err := fmt.Fprintln(w, strings.TrimRight(string(content), "\n"))
	return err
}

func prepareDir(dir, fallback string) (string, error) {
	if dir == "" {
		dir = fallback
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return dir, nil
}

// writeFile writes data through a temp file so a crash never leaves a
// partial file at path.
func writeFile(path string, data []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".output-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
