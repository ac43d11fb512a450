package languages

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
)

func testdataPath(t *testing.T, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load(testdataPath(t, "languages.csv"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return cat
}

// --- loading ---

func TestLoad(t *testing.T) {
	cat := testCatalog(t)

	langs := cat.Languages()
	if len(langs) != 5 {
		t.Fatalf("expected 5 languages, got %d", len(langs))
	}

	// File starts with a BOM; the first English name must not carry it.
	if langs[0].English != "English" {
		t.Errorf("langs[0].English = %q, want %q", langs[0].English, "English")
	}

	second := langs[1]
	if second.English != "Spanish" || second.Shortcode != "es" || second.Native != "Español" {
		t.Errorf("unexpected second row: %+v", second)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/languages.csv"); err == nil {
		t.Error("Load should return error for a missing file")
	}
}

func TestParse_ShortRow(t *testing.T) {
	csv := "English,en,English\nSpanish,es\n"

	_, err := parse(strings.NewReader(csv))
	if err == nil {
		t.Fatal("parse should reject a row with fewer than 3 columns")
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Errorf("error should name the offending row: %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := parse(strings.NewReader("")); err == nil {
		t.Error("parse should reject an empty table")
	}
}

// --- ordering accessors ---

func TestNamesAndNatives_FileOrder(t *testing.T) {
	cat := testCatalog(t)

	wantNames := []string{"English", "Spanish", "Chinese", "Korean", "Vietnamese"}
	names := cat.Names()
	for i, want := range wantNames {
		if names[i] != want {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want)
		}
	}

	wantNatives := []string{"English", "Español", "中文", "한국어", "Tiếng Việt"}
	natives := cat.Natives()
	for i, want := range wantNatives {
		if natives[i] != want {
			t.Errorf("Natives()[%d] = %q, want %q", i, natives[i], want)
		}
	}
}

// --- resolution ---

func TestCanonical(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"english name", "Spanish", "Spanish", true},
		{"shortcode", "es", "Spanish", true},
		{"shortcode uppercase", "ES", "Spanish", true},
		{"name lowercase", "spanish", "Spanish", true},
		{"name with spaces", " Korean ", "Korean", true},
		{"endonym is not accepted", "Español", "", false},
		{"unknown", "klingon", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cat.Canonical(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Canonical(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNative(t *testing.T) {
	cat := testCatalog(t)

	if n, ok := cat.Native("Vietnamese"); !ok || n != "Tiếng Việt" {
		t.Errorf("Native(Vietnamese) = %q, %v", n, ok)
	}
	if _, ok := cat.Native("vietnamese"); ok {
		t.Error("Native takes the canonical English name only")
	}
}

// --- sanitizing user input ---

func TestSanitize(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "Spanish", "Spanish"},
		{"lowercase name", "spanish", "Spanish"},
		{"uppercase name", "KOREAN", "Korean"},
		{"shortcode", "es", "es"},
		{"uppercase shortcode", "ES", "es"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cat.Sanitize(tt.input)
			if err != nil {
				t.Fatalf("Sanitize(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Unknown(t *testing.T) {
	cat := testCatalog(t)

	_, err := cat.Sanitize("klingon")
	if err == nil {
		t.Fatal("Sanitize should reject an unknown language")
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error should wrap ErrValidation: %v", err)
	}
	// The message lists accepted spellings to help the operator.
	if !strings.Contains(err.Error(), "Spanish") || !strings.Contains(err.Error(), "es") {
		t.Errorf("error should list accepted spellings: %v", err)
	}
}
