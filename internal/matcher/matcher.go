// Package matcher compiles watch keywords into tolerant title patterns.
//
// Listing titles are written informally: sellers insert hyphens, doubled
// spaces or punctuation, or drop spaces entirely. A compiled keyword accepts
// all of "xbox-one", "XBOX ONE!!" and "xboxone" for the keyword "xbox one".
package matcher

import (
	"regexp"
	"strings"
	"unicode"
)

// gap is what may follow each keyword character: optional whitespace and at
// most one separator that is neither a letter nor a digit.
const gap = `\s*(?:[^\pL\pN\s]\s*)?`

// Pattern is a compiled keyword. The zero value matches nothing.
type Pattern struct {
	re *regexp.Regexp
}

// Compile builds the pattern for keyword. Terms are split on whitespace and
// stripped of every character that is not a letter, digit or '%'. A keyword
// with no surviving characters yields an empty pattern.
func Compile(keyword string) Pattern {
	var chars []rune
	for _, term := range strings.Fields(keyword) {
		for _, r := range term {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '%' {
				chars = append(chars, r)
			}
		}
	}
	if len(chars) == 0 {
		return Pattern{}
	}

	var b strings.Builder
	b.WriteString("(?i)")
	for i, r := range chars {
		if i > 0 {
			b.WriteString(gap)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return Pattern{re: regexp.MustCompile(b.String())}
}

// Empty reports whether the pattern can never match.
func (p Pattern) Empty() bool {
	return p.re == nil
}

// Matches reports whether title contains the keyword.
func (p Pattern) Matches(title string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(title)
}

func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// Match compiles keyword and applies it to title in one step.
func Match(keyword, title string) bool {
	return Compile(keyword).Matches(title)
}
