package build

import (
	"regexp"
	"strings"
)

// Fragment splitting boundaries: camelCase transitions, letter/digit
// transitions, and the usual identifier separators.
var (
	camelBoundary  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	letterToDigit  = regexp.MustCompile(`([a-zA-Z])(\d)`)
	digitToLetter  = regexp.MustCompile(`(\d)([a-zA-Z])`)
	separatorSplit = regexp.MustCompile(`[_\-\.\s]+`)
)

// SplitNameFragments splits an identifier into lower-cased fragments on
// camelCase boundaries and `_`/`-` separators. "UserService" yields
// ["user", "service"]; "parse_http2_frame" yields
// ["parse", "http", "2", "frame"].
func SplitNameFragments(name string) []string {
	if name == "" {
		return nil
	}

	spaced := camelBoundary.ReplaceAllString(name, "$1 $2")
	spaced = letterToDigit.ReplaceAllString(spaced, "$1 $2")
	spaced = digitToLetter.ReplaceAllString(spaced, "$1 $2")

	var fragments []string
	for _, part := range separatorSplit.Split(spaced, -1) {
		for _, word := range strings.Fields(part) {
			fragments = append(fragments, strings.ToLower(word))
		}
	}
	return fragments
}
