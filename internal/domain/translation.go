package domain

// TranslationRow is one flat row of extracted translations: a row key plus
// one text per requested language, in the caller-supplied language order.
// A language missing from the source payload holds the empty string.
type TranslationRow struct {
	Key    string
	Values []string
}

// Complete reports whether every language column carries text.
func (r TranslationRow) Complete() bool {
	for _, v := range r.Values {
		if v == "" {
			return false
		}
	}
	return true
}

// SuffixedKey builds the row key for a non-primary marker kind:
// the field name joined to the full marker name ("consent_p1000notes").
func SuffixedKey(field, marker string) string {
	return field + "_" + marker
}

// ChoiceKey builds the row key identifying one multiple-choice option of a
// field ("consent[value=1]").
func ChoiceKey(field, choice string) string {
	return field + "[value=" + choice + "]"
}

// NoteKey builds the row key under which a field's note translation is
// stored. The destination template addresses notes by this fixed marker name.
func NoteKey(field string) string {
	return SuffixedKey(field, "p1000notes")
}
