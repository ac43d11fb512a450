package domain

import (
	"strings"
)

// NormalizeTranslation prepares stored translation text for insertion into a
// destination document:
//   - restores "@" characters that the legacy system stores as "___"
//   - optionally folds double quotes to single quotes (the destination format
//     is JSON; the legacy system does not re-escape quotes on import)
//   - trims leading/trailing whitespace
//
// Normalization happens at lookup time, not at table-build time, so the flat
// translations file keeps the text exactly as extracted.
func NormalizeTranslation(text string, foldQuotes bool) string {
	text = strings.ReplaceAll(text, "___", "@")
	if foldQuotes {
		text = strings.ReplaceAll(text, `"`, "'")
	}
	return strings.TrimSpace(text)
}
