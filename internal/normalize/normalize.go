// Package normalize derives canonical blocking-key components from
// free-text passenger name and demographic fields. Every function is
// total: arbitrary input, including empty strings, yields a usable
// value rather than an error.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/titanic-linkage/internal/model"
)

// Default truncation lengths for blocking-key name components. Short
// enough to absorb spelling variance between sources, long enough to
// stay selective.
const (
	DefaultGivenNameLen = 4
	DefaultSurnameLen   = 7
)

// titles is the fixed honorific vocabulary recognized in passenger
// names. Anything else maps to "unk".
var titles = map[string]bool{
	"mr": true, "mrs": true, "miss": true, "ms": true,
	"dr": true, "capt": true, "master": true, "rev": true,
	"col": true, "major": true, "mlle": true, "mme": true,
	"sir": true, "lady": true, "jonkheer": true, "don": true,
}

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	honorificRe  = regexp.MustCompile(`\b(Mr\.|Mrs\.|Miss\.|Master\.|Dr\.|Rev\.|Col\.|Major\.|Ms\.)`)

	// namePartsRe splits "Surname, Title Firstname (Othernames)".
	namePartsRe = regexp.MustCompile(`^(?P<surname>[^,]+),\s*(?P<title>[\w.]+)\s*(?P<firstname>[^(]*)\s*(?:\((?P<othernames>[^)]+)\))?`)
)

// IsTitle reports whether tok (with trailing periods stripped) is in
// the honorific vocabulary.
func IsTitle(tok string) bool {
	return titles[strings.ToLower(strings.ReplaceAll(tok, ".", ""))]
}

// CleanText lowercases s, strips internal whitespace, and removes
// non-alphanumeric characters. Empty input or an empty result maps to
// "unk".
func CleanText(s string) string {
	if s == "" {
		return model.Unknown
	}
	s = strings.ReplaceAll(strings.ToLower(s), " ", "")
	s = nonAlnumRe.ReplaceAllString(s, "")
	if s == "" {
		return model.Unknown
	}
	return s
}

// FoldAccents applies Unicode canonical decomposition and discards
// combining marks, so "Å" and "é" compare as "A" and "e".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// CleanSurname extracts the text before the first comma, folds
// accents, strips non-alphanumerics, lowercases, and truncates to n
// characters. Empty input or an empty cleaned result maps to "unk".
func CleanSurname(fullName string, n int) string {
	if fullName == "" {
		return model.Unknown
	}
	return cleanComponent(strings.SplitN(fullName, ",", 2)[0], n)
}

// cleanComponent folds accents, strips non-alphanumerics, lowercases,
// and truncates a single name component to n characters.
func cleanComponent(s string, n int) string {
	s = FoldAccents(s)
	s = nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
	if s == "" {
		return model.Unknown
	}
	if len(s) > n {
		s = s[:n]
	}
	return s
}

// ExtractTitle returns the lowercased first token after the comma with
// trailing periods removed, if it is in the title vocabulary; "unk"
// otherwise.
func ExtractTitle(fullName string) string {
	if fullName == "" {
		return model.Unknown
	}
	parts := strings.SplitN(fullName, ",", 2)
	if len(parts) < 2 {
		return model.Unknown
	}
	words := strings.Fields(strings.TrimSpace(parts[1]))
	if len(words) == 0 {
		return model.Unknown
	}
	title := strings.ToLower(strings.ReplaceAll(words[0], ".", ""))
	if titles[title] {
		return title
	}
	return model.Unknown
}

// ExtractGivenName skips leading title tokens after the comma, takes
// the next token, cleans it, and truncates to n characters. "unk" when
// no token remains.
func ExtractGivenName(fullName string, n int) string {
	if fullName == "" {
		return model.Unknown
	}
	parts := strings.SplitN(fullName, ",", 2)
	after := strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		after = strings.TrimSpace(parts[1])
	}
	words := strings.Fields(after)
	i := 0
	for i < len(words) && IsTitle(words[i]) {
		i++
	}
	if i >= len(words) {
		return model.Unknown
	}
	cleaned := nonAlnumRe.ReplaceAllString(strings.ToLower(words[i]), "")
	if cleaned == "" {
		return model.Unknown
	}
	if len(cleaned) > n {
		cleaned = cleaned[:n]
	}
	return cleaned
}

// SexCode maps "male"/"female" to "m"/"f"; anything else is "u".
func SexCode(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return "m"
	case "female":
		return "f"
	default:
		return "u"
	}
}

// CleanName prepares a full name for fuzzy comparison: honorifics
// removed, accents folded, non-ASCII dropped, whitespace collapsed,
// lowercased.
func CleanName(name string) string {
	name = honorificRe.ReplaceAllString(name, "")
	name = FoldAccents(name)
	var b strings.Builder
	for _, r := range name {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	name = multiSpaceRe.ReplaceAllString(strings.TrimSpace(b.String()), " ")
	return strings.ToLower(name)
}

// NameParts splits "Surname, Title Firstname (Othernames)" into its
// four components. A name that does not match the anchored pattern
// yields four empty strings and ok=false, never an error.
func NameParts(fullName string) (surname, title, firstname, othernames string, ok bool) {
	m := namePartsRe.FindStringSubmatch(fullName)
	if m == nil {
		return "", "", "", "", false
	}
	return m[1], m[2], strings.TrimSpace(m[3]), m[4], true
}
