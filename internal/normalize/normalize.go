// Package normalize holds the pure string-normalization functions the rest of
// the engine keys on. Every clustering signal flows through one of these, so
// they are deliberately conservative: Name keeps legal suffixes ("X INC" and
// "X" stay distinct keys) and only Alias strips them, for display use.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics maps accented characters onto their base form so
// "CAFÉ HOLDINGS" and "CAFE HOLDINGS" share one key.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// legalSuffixes are trailing tokens stripped by Alias. Kept by Name.
var legalSuffixes = map[string]struct{}{
	"INC": {}, "INCORPORATED": {}, "LTD": {}, "LIMITED": {}, "CORP": {},
	"CORPORATION": {}, "CO": {}, "COMPANY": {}, "LLC": {}, "LLP": {},
	"LP": {}, "ULC": {}, "GP": {},
}

// streetWords expands the abbreviations that show up in filing addresses so
// variants of the same address compare equal.
var streetWords = map[string]string{
	"ST":   "STREET",
	"AVE":  "AVENUE",
	"RD":   "ROAD",
	"DR":   "DRIVE",
	"BLVD": "BOULEVARD",
	"CRT":  "COURT",
	"CT":   "COURT",
	"CRES": "CRESCENT",
	"PL":   "PLACE",
	"SQ":   "SQUARE",
	"HWY":  "HIGHWAY",
	"PKWY": "PARKWAY",
	"E":    "EAST",
	"W":    "WEST",
	"N":    "NORTH",
	"S":    "SOUTH",
	"STE":  "SUITE",
	"APT":  "APARTMENT",
	"FL":   "FLOOR",
}

// Name normalizes an entity name: uppercase, collapsed whitespace, folded
// diacritics, trailing punctuation stripped. Legal suffixes are retained.
func Name(s string) string {
	s = collapse(upperFold(s))
	return strings.TrimRight(s, ".,;:- ")
}

// Address normalizes a mailing address and expands street abbreviations.
func Address(s string) string {
	words := strings.Fields(collapse(upperFold(s)))
	for i, w := range words {
		trimmed := strings.TrimRight(w, ".,")
		if full, ok := streetWords[trimmed]; ok {
			words[i] = full
		} else {
			words[i] = trimmed
		}
	}
	return strings.Join(words, " ")
}

// Phone reduces a phone number to its digits.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Contact normalizes a contact-person name.
func Contact(s string) string {
	return strings.TrimRight(collapse(upperFold(s)), ".,;: ")
}

// Alias strips legal suffixes from an already-normalized or raw name to build
// a display alias. Never used as a clustering key on its own.
func Alias(s string) string {
	words := strings.Fields(Name(s))
	for len(words) > 0 {
		last := strings.TrimRight(words[len(words)-1], ".")
		if _, ok := legalSuffixes[last]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func upperFold(s string) string {
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}
	return strings.ToUpper(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
