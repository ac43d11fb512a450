package mlm

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/languages"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/translation"
)

func testdataPath(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file location")
	}
	return filepath.Join(filepath.Dir(filename), "testdata")
}

func testCatalog(t *testing.T) *languages.Catalog {
	t.Helper()
	cat, err := languages.Load(filepath.Join(testdataPath(t), "languages.csv"))
	if err != nil {
		t.Fatalf("Load(languages.csv) error = %v", err)
	}
	return cat
}

func testTemplate(t *testing.T) Document {
	t.Helper()
	doc, err := Load(filepath.Join(testdataPath(t), "template.json"))
	if err != nil {
		t.Fatalf("Load(template.json) error = %v", err)
	}
	return doc
}

// buildTable round-trips rows through a real CSV file, the same path the
// pipeline takes.
func buildTable(t *testing.T, languageNames []string, rows []domain.TranslationRow) *translation.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "translations.csv")
	if _, err := translation.WriteFile(path, languageNames, rows); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	tbl, err := translation.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return tbl
}

func standardRows() []domain.TranslationRow {
	return []domain.TranslationRow{
		{Key: "consent_intro", Values: []string{"Do you agree?", "¿Está de acuerdo?"}},
		{Key: "consent_date", Values: []string{"Date of consent", "Fecha del consentimiento"}},
		{Key: "likert[value=0]", Values: []string{"Never", "Nunca"}},
		{Key: "likert[value=1]", Values: []string{"Always", "Siempre"}},
		{Key: "signature_note", Values: []string{"Signature", "Firma"}},
		{Key: "signature_note_p1000notes", Values: []string{"Sign in full", "Firme con nombre completo"}},
		{Key: "survey_title", Values: []string{"Baseline survey", "Encuesta inicial"}},
		{Key: "already_done", Values: []string{"Ignored", "Ignorado"}},
	}
}

func fieldNode(t *testing.T, doc Document, category string, i int) map[string]any {
	t.Helper()
	nodes, ok := doc[category].([]any)
	if !ok {
		t.Fatalf("category %q is not a list", category)
	}
	node, ok := nodes[i].(map[string]any)
	if !ok {
		t.Fatalf("%s[%d] is not an object", category, i)
	}
	return node
}

func slotText(t *testing.T, m map[string]any) string {
	t.Helper()
	s, ok := m["translation"].(string)
	if !ok {
		t.Fatalf("translation slot = %T, want string", m["translation"])
	}
	return s
}

func TestFill(t *testing.T) {
	doc := testTemplate(t)
	tbl := buildTable(t, []string{"English", "Spanish"}, standardRows())
	cat := testCatalog(t)

	stats, err := Fill(doc, tbl, "Spanish", cat, false)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}

	if stats.Filled != 7 {
		t.Errorf("Filled = %d, want 7", stats.Filled)
	}
	if stats.Anomalies != 1 {
		t.Errorf("Anomalies = %d, want 1", stats.Anomalies)
	}
	// The only recorded gap is likert's bare id: its direct slot is empty
	// but the table carries only its choice rows.
	if len(stats.Missing) != 1 || stats.Missing[0] != "likert" {
		t.Errorf("Missing = %v, want [likert]", stats.Missing)
	}

	if got := slotText(t, fieldNode(t, doc, "fields", 0)); got != "¿Está de acuerdo?" {
		t.Errorf("direct slot = %q", got)
	}
	label := fieldNode(t, doc, "fields", 1)["label"].(map[string]any)
	if got := slotText(t, label); got != "Fecha del consentimiento" {
		t.Errorf("label slot = %q", got)
	}

	// Choice slots fill even though the bare id has no table entry.
	likert := fieldNode(t, doc, "fields", 2)
	if got := slotText(t, likert); got != "" {
		t.Errorf("likert direct slot = %q, want untouched empty", got)
	}
	choices := likert["enum"].([]any)
	if got := slotText(t, choices[0].(map[string]any)); got != "Nunca" {
		t.Errorf("choice 0 slot = %q", got)
	}
	if got := slotText(t, choices[1].(map[string]any)); got != "Siempre" {
		t.Errorf("choice 1 slot = %q", got)
	}

	sig := fieldNode(t, doc, "fields", 3)
	if got := slotText(t, sig); got != "Firma" {
		t.Errorf("signature direct slot = %q", got)
	}
	note := sig["note"].(map[string]any)
	if got := slotText(t, note); got != "Firme con nombre completo" {
		t.Errorf("note slot = %q", got)
	}

	// A populated slot stays as exported even when the table knows its key.
	if got := slotText(t, fieldNode(t, doc, "fields", 4)); got != "Hola" {
		t.Errorf("populated slot = %q, want Hola", got)
	}

	if got := slotText(t, fieldNode(t, doc, "surveySettings", 0)); got != "Encuesta inicial" {
		t.Errorf("surveySettings slot = %q", got)
	}
}

func TestFill_Idempotent(t *testing.T) {
	doc := testTemplate(t)
	tbl := buildTable(t, []string{"English", "Spanish"}, standardRows())
	cat := testCatalog(t)

	if _, err := Fill(doc, tbl, "Spanish", cat, false); err != nil {
		t.Fatalf("first Fill() error = %v", err)
	}
	before, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	stats, err := Fill(doc, tbl, "Spanish", cat, false)
	if err != nil {
		t.Fatalf("second Fill() error = %v", err)
	}
	if stats.Filled != 0 {
		t.Errorf("second pass Filled = %d, want 0", stats.Filled)
	}

	after, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("second Fill() changed the document")
	}
}

func TestFill_ShortcodeLanguage(t *testing.T) {
	doc := testTemplate(t)
	tbl := buildTable(t, []string{"English", "Spanish"}, standardRows())
	cat := testCatalog(t)

	stats, err := Fill(doc, tbl, "es", cat, false)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if stats.Filled != 7 {
		t.Errorf("Filled = %d, want 7", stats.Filled)
	}
	if got := slotText(t, fieldNode(t, doc, "fields", 0)); got != "¿Está de acuerdo?" {
		t.Errorf("direct slot = %q", got)
	}
}

func TestFill_EmptyTextRecordedAsMissing(t *testing.T) {
	doc := Document{
		"fields": []any{
			map[string]any{"id": "partial", "translation": ""},
		},
	}
	tbl := buildTable(t, []string{"English", "Spanish"}, []domain.TranslationRow{
		{Key: "partial", Values: []string{"English only", ""}},
	})
	cat := testCatalog(t)

	stats, err := Fill(doc, tbl, "Spanish", cat, false)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if stats.Filled != 0 {
		t.Errorf("Filled = %d, want 0", stats.Filled)
	}
	if len(stats.Missing) != 1 || stats.Missing[0] != "partial" {
		t.Errorf("Missing = %v, want [partial]", stats.Missing)
	}
	if got := slotText(t, fieldNode(t, doc, "fields", 0)); got != "" {
		t.Errorf("slot = %q, want empty", got)
	}
}

func TestFill_QuoteFolding(t *testing.T) {
	newDoc := func() Document {
		return Document{
			"fields": []any{
				map[string]any{"id": "styled", "translation": ""},
			},
		}
	}
	tbl := buildTable(t, []string{"English", "Spanish"}, []domain.TranslationRow{
		{Key: "styled", Values: []string{`<div style="x">ok</div>`, `<div style="x">sí</div>`}},
	})
	cat := testCatalog(t)

	folded := newDoc()
	if _, err := Fill(folded, tbl, "Spanish", cat, true); err != nil {
		t.Fatalf("Fill(fold) error = %v", err)
	}
	if got := slotText(t, fieldNode(t, folded, "fields", 0)); got != "<div style='x'>sí</div>" {
		t.Errorf("folded slot = %q", got)
	}

	kept := newDoc()
	if _, err := Fill(kept, tbl, "Spanish", cat, false); err != nil {
		t.Fatalf("Fill(keep) error = %v", err)
	}
	if got := slotText(t, fieldNode(t, kept, "fields", 0)); got != `<div style="x">sí</div>` {
		t.Errorf("kept slot = %q", got)
	}
}

func TestFill_UnknownLanguage(t *testing.T) {
	doc := testTemplate(t)
	tbl := buildTable(t, []string{"English", "Spanish"}, standardRows())
	cat := testCatalog(t)

	_, err := Fill(doc, tbl, "Klingon", cat, false)
	if err == nil {
		t.Fatal("Fill() error = nil, want error for unknown language")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Fill() error = %v, want wrapped domain.ErrNotFound", err)
	}
}

func TestFill_TableMissingLanguageColumn(t *testing.T) {
	doc := testTemplate(t)
	tbl := buildTable(t, []string{"English"}, []domain.TranslationRow{
		{Key: "consent_intro", Values: []string{"Do you agree?"}},
	})
	cat := testCatalog(t)

	// Chinese is a real catalog language, but the table has no such column.
	_, err := Fill(doc, tbl, "Chinese", cat, false)
	if err == nil {
		t.Fatal("Fill() error = nil, want contract violation")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Fill() error = %v, want wrapped domain.ErrNotFound", err)
	}
}

func TestFill_SkipsNonObjectNodes(t *testing.T) {
	doc := Document{
		"fields": []any{
			"stray text",
			map[string]any{"id": "q1", "translation": ""},
		},
		"meta": "not a category",
	}
	tbl := buildTable(t, []string{"English", "Spanish"}, []domain.TranslationRow{
		{Key: "q1", Values: []string{"One", "Uno"}},
	})
	cat := testCatalog(t)

	stats, err := Fill(doc, tbl, "Spanish", cat, false)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if stats.Anomalies != 1 {
		t.Errorf("Anomalies = %d, want 1", stats.Anomalies)
	}
	if stats.Filled != 1 {
		t.Errorf("Filled = %d, want 1", stats.Filled)
	}
}
