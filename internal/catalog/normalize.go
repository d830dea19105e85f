package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// umlautFolder rewrites German umlauts and sharp s to their ASCII digraphs.
// Combining-diaeresis forms are listed so pre-NFC input folds the same way.
var umlautFolder = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"ä", "ae", "ö", "oe", "ü", "ue",
)

// Normalize lowercases s, folds umlauts to ASCII digraphs, replaces every
// non-alphanumeric rune with a space and collapses runs of whitespace.
// All fuzzy matching operates on normalized strings.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = norm.NFC.String(s)
	s = umlautFolder.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens splits a normalized form of s into whitespace tokens.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// bigrams collects the set of character bigrams over the tokens of the
// normalized string. Single-character tokens contribute themselves so
// short inputs still compare.
func bigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		if len(tok) == 1 {
			set[tok] = struct{}{}
			continue
		}
		for i := 0; i+2 <= len(tok); i++ {
			set[tok[i:i+2]] = struct{}{}
		}
	}
	return set
}

// tokenSet collects the set of whitespace tokens of the normalized string.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}
