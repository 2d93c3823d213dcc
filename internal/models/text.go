package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// NormalizeText lowercases s, drops punctuation and symbols and folds runs of
// whitespace into single spaces. Calls and parlays match on this form.
func NormalizeText(s string) string {
	s = lower.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// CorrectVideoTime shifts a client-reported video time back by half the
// reported round trip. Times never go below zero.
func CorrectVideoTime(reported, latencyMs float64) float64 {
	t := reported - latencyMs/2000
	if t < 0 {
		return 0
	}
	return t
}
