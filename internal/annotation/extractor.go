// Package annotation parses the legacy multilingual markup embedded in field
// annotations. A marker such as "@p1000lang" or "@p1000answers" introduces a
// JSON object payload holding translated texts; one annotation may carry any
// number of markers back to back. Pure function: field name and annotation
// in, flat translation rows out. No I/O.
//
// Markers are located by string scanning, not by a grammar: the legacy data
// is hand-edited and inconsistently formatted, so the scanner only relies on
// the marker name and the braces around the payload.
package annotation

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
)

const (
	// markerName is the marker-family prefix. The first marker of an
	// annotation is located by this bare name; every following marker is
	// located by its "@"-prefixed form.
	markerName   = "p1000"
	markerPrefix = "@" + markerName
)

// Sub-kinds with special row-key or payload handling. Matched by containment,
// so "p1000language" still counts as a primary marker.
const (
	kindLang       = "p1000lang"
	kindSurveyText = "p1000surveytext"
	kindAnswers    = "p1000answers"
)

// Stats reports what Extract found in one annotation.
type Stats struct {
	Markers     int // markers located
	ChoiceRows  int // rows emitted by the multiple-choice branch
	BadPayloads int // markers whose payload could not be delimited or parsed
}

// Add accumulates counts from another annotation's stats.
func (s *Stats) Add(other Stats) {
	s.Markers += other.Markers
	s.ChoiceRows += other.ChoiceRows
	s.BadPayloads += other.BadPayloads
}

// HasMarker reports whether the annotation carries at least one translation
// marker. Callers gate Extract on it.
func HasMarker(annotation string) bool {
	return strings.Contains(annotation, markerPrefix)
}

// Extract scans a field's annotation for translation markers and flattens
// each marker's JSON payload into rows with one text column per name in
// langs, in order. langs carries the payload-side language names (endonyms);
// a language absent from a payload yields an empty column. A marker whose
// payload cannot be delimited or parsed is counted in Stats and skipped.
//
// The input annotation is never mutated; rows are independent of it.
func Extract(field, annotation string, langs []string) ([]domain.TranslationRow, Stats) {
	var (
		rows  []domain.TranslationRow
		stats Stats
	)

	// Explicit scanner with three positions per marker: marker name, payload
	// start brace, payload end. A cursor loop rather than recursion keeps
	// annotations with many markers off the stack.
	nameStart := strings.Index(annotation, markerName)
	for nameStart >= 0 {
		braceStart := strings.Index(annotation[nameStart:], "{")
		if braceStart < 0 {
			stats.BadPayloads++
			break
		}
		braceStart += nameStart

		// The payload ends where the next marker begins, or at the last
		// closing brace when this marker is the final one.
		next := -1
		var payloadEnd int
		if rel := strings.Index(annotation[braceStart:], markerPrefix); rel >= 0 {
			next = braceStart + rel
			payloadEnd = next
		} else if rel := strings.LastIndex(annotation[braceStart:], "}"); rel >= 0 {
			payloadEnd = braceStart + rel + 1
		} else {
			stats.BadPayloads++
			break
		}

		stats.Markers++
		marker := markerIdent(annotation[nameStart:braceStart])
		rows = append(rows, markerRows(field, marker, annotation[braceStart:payloadEnd], langs, &stats)...)

		if next < 0 {
			break
		}
		rel := strings.Index(annotation[next:], markerName)
		if rel < 0 {
			break
		}
		nameStart = next + rel
	}

	return rows, stats
}

// markerIdent trims a scanned marker segment down to the marker name.
// Whitespace and a trailing "=" belong to the markup, not the name; keeping
// them would produce row keys the fill stage can never look up.
func markerIdent(segment string) string {
	segment = strings.TrimSpace(segment)
	segment = strings.TrimSuffix(segment, "=")
	return strings.TrimSpace(segment)
}

// markerRows builds the output rows for one marker payload.
//
// Two primary sub-kinds key their row by the bare field name; every other
// sub-kind appends "_<marker>" to it. The answers sub-kind expands into one
// row per choice when the payload has the nested choice shape; a payload
// with only some values nested falls through to the single-row form, where
// non-string members serialize as their raw JSON text. An empty "{}"
// payload also takes the single-row form: one row, every column empty.
func markerRows(field, marker, payload string, langs []string, stats *Stats) []domain.TranslationRow {
	// gjson reads the first JSON value and ignores trailing text before the
	// next marker, and tolerates raw control characters inside strings. Both
	// appear in hand-edited annotations and would fail a strict parser.
	obj := gjson.Parse(payload)
	if !obj.IsObject() {
		stats.BadPayloads++
		return nil
	}

	members := objectMembers(obj)
	if len(members) == 0 && !isEmptyObjectLiteral(payload) {
		// gjson also yields zero members for payload text it could not
		// parse; a literal "{}" is a well-formed marker and keeps its row
		// below, with every column empty.
		stats.BadPayloads++
		return nil
	}

	if len(members) > 0 && strings.Contains(marker, kindAnswers) && allObjectValues(obj) {
		rows := choiceRows(field, obj, langs)
		stats.ChoiceRows += len(rows)
		return rows
	}

	key := field
	if !strings.Contains(marker, kindLang) && !strings.Contains(marker, kindSurveyText) {
		key = domain.SuffixedKey(field, marker)
	}

	row := domain.TranslationRow{Key: key, Values: make([]string, len(langs))}
	for i, lang := range langs {
		row.Values[i] = memberText(members[lang])
	}
	return []domain.TranslationRow{row}
}

// objectMembers collects the top-level members of a payload object. Language
// names are looked up in this map rather than through gjson paths, so names
// containing path syntax need no escaping.
func objectMembers(obj gjson.Result) map[string]gjson.Result {
	members := make(map[string]gjson.Result)
	obj.ForEach(func(k, v gjson.Result) bool {
		members[k.String()] = v
		return true
	})
	return members
}

// allObjectValues reports whether every top-level member of the payload is
// itself an object (the multiple-choice answers shape). Vacuously true for
// an empty payload; callers gate on member count first.
func allObjectValues(obj gjson.Result) bool {
	all := true
	obj.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			all = false
		}
		return all
	})
	return all
}

// choiceRows expands the answers shape {choice: {language: text}} into one
// row per choice, keyed "field[value=choice]", in payload order.
func choiceRows(field string, obj gjson.Result, langs []string) []domain.TranslationRow {
	var rows []domain.TranslationRow
	obj.ForEach(func(choice, texts gjson.Result) bool {
		members := objectMembers(texts)
		row := domain.TranslationRow{
			Key:    domain.ChoiceKey(field, choice.String()),
			Values: make([]string, len(langs)),
		}
		for i, lang := range langs {
			row.Values[i] = memberText(members[lang])
		}
		rows = append(rows, row)
		return true
	})
	return rows
}

// memberText renders one payload member as a table cell: strings decode,
// containers keep their raw JSON, and a missing member is an empty cell.
func memberText(v gjson.Result) string {
	switch {
	case !v.Exists():
		return ""
	case v.IsObject() || v.IsArray():
		return v.Raw
	default:
		return v.String()
	}
}

// isEmptyObjectLiteral reports whether a delimited payload is a genuinely
// empty JSON object, whitespace aside.
func isEmptyObjectLiteral(payload string) bool {
	return strings.Join(strings.Fields(payload), "") == "{}"
}
