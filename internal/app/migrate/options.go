package migrate

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/languages"
)

// timestampLayout is the prefix format for defaulted output file names.
const timestampLayout = "20060102_150405"

// Options carries one run's inputs after flag parsing.
type Options struct {
	TemplatePath     string // MLM template JSON exported from the new project
	Language         string // target language, sanitized by Normalize
	TranslationsPath string // CSV written by extract and read by fill
	OutputPath       string // filled template destination
	OutputDir        string // directory for defaulted file paths
	FoldQuotes       bool   // replace double quotes with single at lookup time
	DryRun           bool   // parse and count but write no files
}

// Normalize sanitizes the language, applies timestamped default paths and
// rejects unusable path combinations. It mutates o and must run once, before
// the pipeline starts.
func (o *Options) Normalize(cat *languages.Catalog, now time.Time) error {
	ts := now.Format(timestampLayout)

	if o.Language != "" {
		lang, err := cat.Sanitize(o.Language)
		if err != nil {
			return err
		}
		o.Language = lang
	}

	if o.TranslationsPath == "" {
		o.TranslationsPath = filepath.Join(o.OutputDir, ts+"-translations.csv")
	}
	if o.OutputPath == "" && o.Language != "" {
		name := fmt.Sprintf("%s-%s-output.json", ts, strings.ToLower(o.Language))
		o.OutputPath = filepath.Join(o.OutputDir, name)
	}

	var errs []domain.FieldError

	if o.TemplatePath != "" && !isJSONPath(o.TemplatePath) {
		errs = append(errs, domain.FieldError{
			Field:   "template",
			Message: fmt.Sprintf("%q must be a .json file", o.TemplatePath),
		})
	}
	if o.OutputPath != "" && !isJSONPath(o.OutputPath) {
		errs = append(errs, domain.FieldError{
			Field:   "output",
			Message: fmt.Sprintf("%q must be a .json file", o.OutputPath),
		})
	}
	if o.TemplatePath != "" && o.OutputPath != "" &&
		filepath.Clean(o.TemplatePath) == filepath.Clean(o.OutputPath) {
		errs = append(errs, domain.FieldError{
			Field:   "output",
			Message: "must not overwrite the template file",
		})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
