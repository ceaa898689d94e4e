package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormaliseString composes accents to NFC, trims, and collapses internal
// whitespace.
func NormaliseString(s string) string {
	s = norm.NFC.String(s)
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
