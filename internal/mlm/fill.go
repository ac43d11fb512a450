package mlm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/languages"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/translation"
)

// Stats summarizes one fill pass.
type Stats struct {
	Filled    int      // slots written
	Missing   []string // row keys with no usable text for the language
	Anomalies int      // field nodes without an id, or not objects at all
}

// Fill walks every category of doc and writes translations into the empty
// translation slots of its field nodes. A field node offers up to four slot
// locations, keyed as follows:
//
//	translation            -> id
//	label.translation      -> id (only when the direct slot is not fillable)
//	enum[n].translation    -> id + "[value=" + choiceID + "]"
//	note.translation       -> id + "_p1000notes"
//
// Enum and note slots are filled independently of whether the bare id has a
// table entry. Populated slots are never overwritten. Per-node defects (no
// id, unexpected shapes) are counted and skipped; only a lookup contract
// violation aborts the pass.
func Fill(doc Document, tbl *translation.Table, language string, cat *languages.Catalog, foldQuotes bool) (Stats, error) {
	f := &filler{tbl: tbl, language: language, cat: cat, foldQuotes: foldQuotes}

	categories := make([]string, 0, len(doc))
	for name := range doc {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	for _, name := range categories {
		nodes, ok := doc[name].([]any)
		if !ok {
			continue
		}
		for _, raw := range nodes {
			if err := f.fillNode(raw); err != nil {
				return f.stats, fmt.Errorf("category %s: %w", name, err)
			}
		}
	}
	return f.stats, nil
}

type filler struct {
	tbl        *translation.Table
	language   string
	cat        *languages.Catalog
	foldQuotes bool
	stats      Stats
}

func (f *filler) fillNode(raw any) error {
	node, ok := raw.(map[string]any)
	if !ok {
		f.stats.Anomalies++
		return nil
	}
	idRaw, ok := node["id"]
	if !ok {
		f.stats.Anomalies++
		return nil
	}
	id := literalText(idRaw)

	if isEmptySlot(node, "translation") {
		if err := f.fill(node, id, true); err != nil {
			return err
		}
	} else if label, ok := node["label"].(map[string]any); ok && isEmptySlot(label, "translation") {
		if err := f.fill(label, id, true); err != nil {
			return err
		}
	}

	if choices, ok := node["enum"].([]any); ok {
		for _, rawChoice := range choices {
			choice, ok := rawChoice.(map[string]any)
			if !ok || !isEmptySlot(choice, "translation") {
				continue
			}
			choiceID, ok := choice["id"]
			if !ok {
				continue
			}
			if err := f.fill(choice, domain.ChoiceKey(id, literalText(choiceID)), false); err != nil {
				return err
			}
		}
	}

	if note, ok := node["note"].(map[string]any); ok && isEmptySlot(note, "translation") {
		if err := f.fill(note, domain.NoteKey(id), false); err != nil {
			return err
		}
	}
	return nil
}

// fill looks rowKey up and writes the text into slot["translation"]. An
// absent key, or a text that is empty for the requested language, fills
// nothing; recordMiss controls whether that gap lands in Stats.Missing.
func (f *filler) fill(slot map[string]any, rowKey string, recordMiss bool) error {
	text, found, err := f.tbl.Lookup(rowKey, f.language, f.cat, f.foldQuotes)
	if err != nil {
		return err
	}
	if !found || text == "" {
		if recordMiss {
			f.stats.Missing = append(f.stats.Missing, rowKey)
		}
		return nil
	}
	slot["translation"] = text
	f.stats.Filled++
	return nil
}

// isEmptySlot reports whether m carries key with an empty-string value. A
// missing key, or a non-string value, is not a fillable slot.
func isEmptySlot(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s == ""
}

// literalText renders a decoded JSON scalar the way it appeared in the
// source: strings as-is, numbers by their literal, booleans as true/false.
func literalText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
