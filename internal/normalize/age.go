package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ageRe      = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(m)?$`)
	firstIntRe = regexp.MustCompile(`\d+`)
)

// ConvertAge parses an age expression into float years. Plain numbers
// pass through unchanged; an "m" suffix means months ("6m" -> 0.5);
// otherwise the first integer embedded in the text is taken. Input
// that yields no number returns nil, never an error.
func ConvertAge(s string) *float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	if m := ageRe.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		if m[2] == "m" {
			v /= 12.0
		}
		return &v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &v
	}
	if digits := firstIntRe.FindString(s); digits != "" {
		if v, err := strconv.ParseFloat(digits, 64); err == nil {
			return &v
		}
	}
	return nil
}

// AgeInt renders an age as the integer blocking-key component, "-1"
// when the age is unknown.
func AgeInt(age *float64) string {
	if age == nil {
		return "-1"
	}
	return strconv.Itoa(int(*age))
}
