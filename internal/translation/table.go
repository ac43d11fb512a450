// Package translation builds, stores and queries the flat translation table
// that links the two pipeline stages. The table lives on disk as a CSV with
// header "Field,<language>,..." and in memory as an index keyed by row key.
package translation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/languages"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/pkg/bomio"
)

// Entry is one table row: texts keyed by the header's language names, plus
// bookkeeping flags for diagnostics.
type Entry struct {
	Key        string
	texts      map[string]string
	Incomplete bool // some language column was empty
	consumed   bool // a lookup succeeded against this entry
}

// SkippedRow records a malformed CSV row the loader dropped.
type SkippedRow struct {
	Line       int    // 1-based, header included
	Field      string // key column, when the row had one
	EmptyCells int
}

// Table is the in-memory translation index.
type Table struct {
	languages []string
	entries   map[string]*Entry
	order     []string
	skipped   []SkippedRow
}

// Load reads a translations CSV. The header row fixes the column count and
// language order; a later row with a different column count is dropped and
// recorded, never fatal. Legacy annotation data is known to produce the odd
// malformed row.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open translations file: %w", err)
	}
	defer f.Close()

	t, err := parse(bomio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("parse translations file %s: %w", path, err)
	}
	return t, nil
}

func parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // column count is validated per row

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a key column and at least one language, got %d columns", len(header))
	}

	t := &Table{
		languages: header[1:],
		entries:   make(map[string]*Entry),
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++

		if len(record) != len(header) {
			sk := SkippedRow{Line: line, EmptyCells: countEmpty(record)}
			if len(record) > 0 {
				sk.Field = record[0]
			}
			t.skipped = append(t.skipped, sk)
			continue
		}

		e := &Entry{Key: record[0], texts: make(map[string]string, len(t.languages))}
		for i, lang := range t.languages {
			text := record[i+1]
			e.texts[lang] = text
			if text == "" {
				e.Incomplete = true
			}
		}
		if _, dup := t.entries[e.Key]; !dup {
			t.order = append(t.order, e.Key)
		}
		t.entries[e.Key] = e
	}

	return t, nil
}

func countEmpty(record []string) int {
	n := 0
	for _, cell := range record {
		if cell == "" {
			n++
		}
	}
	return n
}

// Lookup resolves language (an English name or shortcode, via the catalog)
// against the entry for key and returns the normalized text. The second
// return is false when the table has no entry for key. A language that
// resolves but is missing from the entry's columns means the table was built
// with a different language set; that is a contract violation reported as an
// error wrapping domain.ErrNotFound.
func (t *Table) Lookup(key, language string, cat *languages.Catalog, foldQuotes bool) (string, bool, error) {
	e, ok := t.entries[key]
	if !ok {
		return "", false, nil
	}

	text, ok := e.texts[language]
	if !ok {
		canonical, found := cat.Canonical(language)
		if !found {
			return "", false, fmt.Errorf("language %q: %w", language, domain.ErrNotFound)
		}
		if text, ok = e.texts[canonical]; !ok {
			return "", false, fmt.Errorf("language %q resolves to column %q, which the table does not carry: %w",
				language, canonical, domain.ErrNotFound)
		}
	}

	e.consumed = true
	return domain.NormalizeTranslation(text, foldQuotes), true, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Languages returns the header's language columns in order.
func (t *Table) Languages() []string {
	return t.languages
}

// Skipped returns the malformed rows dropped during load.
func (t *Table) Skipped() []SkippedRow {
	return t.skipped
}

// Incomplete returns the keys of entries missing at least one language, in
// file order.
func (t *Table) Incomplete() []string {
	var keys []string
	for _, key := range t.order {
		if t.entries[key].Incomplete {
			keys = append(keys, key)
		}
	}
	return keys
}

// Unconsumed returns the keys of entries no lookup ever hit, in file order.
// After a fill pass these are the extracted translations the new project has
// no slot for.
func (t *Table) Unconsumed() []string {
	var keys []string
	for _, key := range t.order {
		if !t.entries[key].consumed {
			keys = append(keys, key)
		}
	}
	return keys
}

// WriteFile writes rows to path as a BOM-prefixed CSV with header
// "Field,<language>,...". The parent directory is created when missing.
// Returns the number of data rows written.
func WriteFile(path string, languageNames []string, rows []domain.TranslationRow) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create translations file: %w", err)
	}
	defer f.Close()

	bw := bomio.NewWriter(f)
	w := csv.NewWriter(bw)

	if err := w.Write(append([]string{"Field"}, languageNames...)); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(append([]string{row.Key}, row.Values...)); err != nil {
			return 0, fmt.Errorf("write row %s: %w", row.Key, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush rows: %w", err)
	}
	if err := bw.Close(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}
	return len(rows), nil
}
