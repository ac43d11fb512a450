// Package languages loads the language alias table: one row per supported
// language carrying its English name, 2-character shortcode and endonym
// (the language's name for itself). Pure function: file path in, catalog out.
package languages

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/pkg/bomio"
)

// Language is one row of the alias table.
type Language struct {
	English   string // name in English ("Spanish")
	Shortcode string // 2-character code ("es")
	Native    string // endonym ("Español")
}

// Catalog resolves the three ways a language can be spelled. The resolution
// maps are built once at load time; lookups never mutate the catalog.
type Catalog struct {
	list      []Language
	canonical map[string]string // lowercased English name or shortcode → English name
	native    map[string]string // English name → endonym
}

// Load reads the alias table from a CSV file. The file has no header row;
// every row must carry three columns: English name, shortcode, endonym.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open languages file: %w", err)
	}
	defer f.Close()

	cat, err := parse(bomio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("parse languages file %s: %w", path, err)
	}
	return cat, nil
}

func parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // validate per row for a row-numbered error

	cat := &Catalog{
		canonical: make(map[string]string),
		native:    make(map[string]string),
	}

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row++

		if len(record) < 3 {
			return nil, fmt.Errorf("row %d: expected 3 columns (English name, shortcode, endonym), got %d", row, len(record))
		}

		l := Language{
			English:   strings.TrimSpace(record[0]),
			Shortcode: strings.TrimSpace(record[1]),
			Native:    strings.TrimSpace(record[2]),
		}
		if l.English == "" {
			return nil, fmt.Errorf("row %d: empty English language name", row)
		}

		cat.list = append(cat.list, l)
		cat.canonical[strings.ToLower(l.English)] = l.English
		if l.Shortcode != "" {
			cat.canonical[strings.ToLower(l.Shortcode)] = l.English
		}
		cat.native[l.English] = l.Native
	}

	if len(cat.list) == 0 {
		return nil, fmt.Errorf("no languages defined")
	}
	return cat, nil
}

// Languages returns the table rows in file order.
func (c *Catalog) Languages() []Language {
	return c.list
}

// Names returns the English names in file order. This is the column order of
// the flat translations file.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.list))
	for i, l := range c.list {
		names[i] = l.English
	}
	return names
}

// Natives returns the endonyms in file order. Annotation payloads key their
// texts by endonym.
func (c *Catalog) Natives() []string {
	natives := make([]string, len(c.list))
	for i, l := range c.list {
		natives[i] = l.Native
	}
	return natives
}

// Canonical resolves an English name or shortcode, in any casing, to the
// canonical English name.
func (c *Catalog) Canonical(nameOrCode string) (string, bool) {
	name, ok := c.canonical[strings.ToLower(strings.TrimSpace(nameOrCode))]
	return name, ok
}

// Native returns the endonym for a canonical English name.
func (c *Catalog) Native(english string) (string, bool) {
	n, ok := c.native[english]
	return n, ok
}

// Sanitize normalizes a user-supplied language spelling: written-out names
// get title case ("spanish" → "Spanish"), 2-character shortcodes get lower
// case ("ES" → "es"). The result must be present in the catalog; unknown
// spellings fail with every accepted spelling listed.
func (c *Catalog) Sanitize(input string) (string, error) {
	s := strings.TrimSpace(input)
	switch {
	case len(s) > 2:
		s = cases.Title(language.English).String(s)
	case len(s) == 2:
		s = strings.ToLower(s)
	}

	if _, ok := c.canonical[strings.ToLower(s)]; !ok {
		return "", domain.NewValidationError("language",
			fmt.Sprintf("unknown spelling %q, must be one of: %s", input, strings.Join(c.spellings(), ", ")))
	}
	return s, nil
}

// spellings lists every accepted language spelling: English names, then
// shortcodes.
func (c *Catalog) spellings() []string {
	out := make([]string, 0, len(c.list)*2)
	for _, l := range c.list {
		out = append(out, l.English)
	}
	for _, l := range c.list {
		if l.Shortcode != "" {
			out = append(out, l.Shortcode)
		}
	}
	return out
}
