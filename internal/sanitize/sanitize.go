// Package sanitize cleans free-text product fields for the loadsheet.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var reTag = regexp.MustCompile(`(?s)<.*?>`)

// allowedPunct is the punctuation kept besides letters, digits and whitespace.
const allowedPunct = `.,;:!?(){}[]-_'"&/%+°•$@`

// Text normalizes a description: decodes character entities, strips tags,
// removes control and disallowed characters and collapses whitespace.
// Text never fails and Text(Text(s)) == Text(s).
func Text(raw string) string {
	s := raw
	// After the first pass every pass that changes the text makes it shorter
	for i := 0; i <= len(raw)+1; i++ {
		next := pass(s)
		if next == s {
			return next
		}
		s = next
	}
	return s
}

func pass(s string) string {
	s = decodeEntities(s)
	s = reTag.ReplaceAllString(s, "")
	s = strings.Map(keepRune, s)
	return strings.Join(strings.Fields(s), " ")
}

// decodeEntities unescapes until the text stops changing, so "&amp;lt;"
// ends up as "<" within the same pass.
func decodeEntities(s string) string {
	for strings.Contains(s, "&") {
		next := html.UnescapeString(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func keepRune(r rune) rune {
	switch {
	case isASCIISpace(r):
		return ' '
	case isControl(r):
		return -1
	case unicode.IsSpace(r):
		return ' '
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return r
	case strings.ContainsRune(allowedPunct, r):
		return r
	}
	return -1
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// isControl matches C0 controls, DEL and the C1 range, NEL included. ASCII
// tabs and line breaks are handled as whitespace before this check.
func isControl(r rune) bool {
	return r <= 0x1F || (r >= 0x7F && r <= 0x9F)
}
