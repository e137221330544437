package index

import (
	"fmt"
	"strings"
	"unicode"
)

// idSeparators are replaced by '-' when sanitizing ids.
const idSeparators = " ’–—―′¿'`~!@#$%^&*()_|+-=?;:\",.<>{}[]\\/"

// Sanitize lowercases s, replaces punctuation and spaces with '-',
// collapses repeated dashes and trims them from both ends.
func Sanitize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		if strings.ContainsRune(idSeparators, r) {
			if !dash {
				sb.WriteByte('-')
				dash = true
			}
			continue
		}
		sb.WriteRune(r)
		dash = false
	}
	return strings.Trim(sb.String(), "-")
}

// ToID builds an entry id from a title and a name.
func ToID(title, name string) (string, error) {
	t := Sanitize(title)
	if t == "" {
		return "", fmt.Errorf("invalid title %q, must include alphanumeric characters", title)
	}
	n := Sanitize(name)
	if n == "" {
		return "", fmt.Errorf("invalid name %q, must include alphanumeric characters", name)
	}
	return t + "--" + n, nil
}

// StoryNameFromExport turns an export name into a display name:
// "primaryButton" -> "Primary Button", "WithHTML2" -> "With HTML 2".
func StoryNameFromExport(exportName string) string {
	words := splitWords(exportName)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// splitWords breaks an identifier into words at non-alphanumerics,
// lower-to-upper transitions, acronym boundaries and letter/digit changes.
func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsDigit(r) != unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsLower(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
