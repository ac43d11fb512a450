// Package mlm loads, fills and writes REDCap Multi-Language Management
// translation templates. A template is a JSON tree of top-level categories,
// each holding a list of field nodes; Fill writes looked-up translations
// into the empty translation slots and leaves populated ones untouched, so
// re-running on its own output changes nothing.
package mlm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/pkg/bomio"
)

// Document is a parsed template tree. Fill mutates it in place; the shape is
// owned by REDCap and never restructured here.
type Document map[string]any

// Load reads and parses a template file. Numbers are kept as json.Number so
// choice ids round-trip exactly as written.
func Load(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bomio.NewReader(f))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse template file %s: %w", path, err)
	}
	return doc, nil
}

// Write serializes doc to path as BOM-prefixed UTF-8 with two-space indent.
// HTML escaping is disabled: translated texts embed HTML markup that REDCap
// expects verbatim. The parent directory is created when missing.
func Write(path string, doc Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	bw := bomio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode output file: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("flush output file: %w", err)
	}
	return nil
}
