package utils

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// NormalizeSurface normalizes a surface form the way the build pipeline and
// runtime queries must agree on: Unicode NFC followed by full Unicode case
// folding (cases.Fold, so "ß" folds to "ss"). FST keys are stored in this form, so any query run through
// the same function lands on the same bytes the key was inserted with.
func NormalizeSurface(s string) string {
	if s == "" {
		return s
	}
	return foldCaser.String(norm.NFC.String(s))
}

// EndsAtWordBoundary reports whether s is either long enough or terminated
// by a character that plausibly ends a typed word, used to decide whether a
// typeahead query has "finished" a word per the prefix-then-substring
// fallback trigger.
func EndsAtWordBoundary(s string) bool {
	if len([]rune(s)) >= 3 {
		return true
	}
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return IsSeparator(rune(last))
}
