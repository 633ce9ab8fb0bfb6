package normalize

import (
	"strconv"
	"strings"

	"github.com/sells-group/titanic-linkage/internal/model"
)

// keyDelimiter separates blocking-key components.
const keyDelimiter = "_"

// BlockingKey concatenates pclass ("0" when unknown), sex code, the
// cleaned given-name and surname components, and the integer age
// ("-1" when unknown). Pure: identical inputs always produce the
// identical key.
func BlockingKey(p *model.Passenger) string {
	pclass := "0"
	if p.Pclass > 0 {
		pclass = strconv.Itoa(p.Pclass)
	}
	return strings.Join([]string{
		pclass,
		SexCode(p.Sex),
		CleanText(p.GivenName),
		CleanText(p.Surname),
		AgeInt(p.Age),
	}, keyDelimiter)
}

// DeriveKeyFields fills the surname, given-name, title, and blocking
// key of p from its raw full name, truncating name components to the
// given lengths. Names in "Surname, Title Firstname" form are split
// with NameParts; anything else falls back to token scanning.
func DeriveKeyFields(p *model.Passenger, givenLen, surnameLen int) {
	if givenLen <= 0 {
		givenLen = DefaultGivenNameLen
	}
	if surnameLen <= 0 {
		surnameLen = DefaultSurnameLen
	}
	if surname, title, first, _, ok := NameParts(p.FullName); ok {
		p.Surname = cleanComponent(surname, surnameLen)
		p.GivenName = givenFromParts(first, givenLen)
		p.Title = titleFromToken(title)
	} else {
		p.Surname = CleanSurname(p.FullName, surnameLen)
		p.GivenName = ExtractGivenName(p.FullName, givenLen)
		p.Title = ExtractTitle(p.FullName)
	}
	p.BlockingKey = BlockingKey(p)
}

// givenFromParts takes the first non-title token of the firstname
// component, cleaned and truncated to n characters.
func givenFromParts(first string, n int) string {
	words := strings.Fields(first)
	i := 0
	for i < len(words) && IsTitle(words[i]) {
		i++
	}
	if i >= len(words) {
		return model.Unknown
	}
	return cleanComponent(words[i], n)
}

func titleFromToken(tok string) string {
	t := strings.ToLower(strings.ReplaceAll(tok, ".", ""))
	if titles[t] {
		return t
	}
	return model.Unknown
}
