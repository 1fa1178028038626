package cluster

import (
	"strings"
	"unicode"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/normalize"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
)

const (
	// HighFanOutThreshold marks a phone as an intermediary switchboard when
	// it appears under at least this many distinct normalized names.
	HighFanOutThreshold = 15

	// MinPhoneDigits is the shortest phone treated as an identity signal.
	MinPhoneDigits = 7

	// MinAddressLen is the shortest normalized address usable by the
	// company address rule.
	MinAddressLen = 10

	// MinAliasLen is the shortest cleaned alias usable by the alias rule.
	MinAliasLen = 4
)

// signalIndex holds the inverted indices the rules union over.
type signalIndex struct {
	byName            map[string][]int
	byPhone           map[string][]int
	phoneNames        map[string]map[string]struct{}
	byAlias           map[string][]int
	byAddress         map[string][]int
	byNumberedContact map[string][]int
}

func buildIndex(apps []scan.Appearance) *signalIndex {
	idx := &signalIndex{
		byName:            make(map[string][]int),
		byPhone:           make(map[string][]int),
		phoneNames:        make(map[string]map[string]struct{}),
		byAlias:           make(map[string][]int),
		byAddress:         make(map[string][]int),
		byNumberedContact: make(map[string][]int),
	}

	for i, app := range apps {
		idx.byName[app.NormalizedName] = append(idx.byName[app.NormalizedName], i)

		for _, phone := range app.Phones {
			if len(phone) < MinPhoneDigits {
				continue
			}
			idx.byPhone[phone] = append(idx.byPhone[phone], i)
			names, ok := idx.phoneNames[phone]
			if !ok {
				names = make(map[string]struct{})
				idx.phoneNames[phone] = names
			}
			names[app.NormalizedName] = struct{}{}
		}

		for _, alias := range aliasCandidates(app) {
			if cleaned, ok := CleanAlias(alias, app.NormalizedName); ok {
				idx.byAlias[cleaned] = append(idx.byAlias[cleaned], i)
			}
		}

		if app.IsCompany && len(app.NormalizedAddress) >= MinAddressLen {
			idx.byAddress[app.NormalizedAddress] = append(idx.byAddress[app.NormalizedAddress], i)
		}

		if app.Numbered && app.NormalizedContact != "" {
			key := app.NormalizedName + "|" + app.NormalizedContact
			idx.byNumberedContact[key] = append(idx.byNumberedContact[key], i)
		}
	}

	return idx
}

// HighFanOut reports whether phone is shared by enough distinct names to be
// treated as an intermediary rather than an identity signal.
func (idx *signalIndex) HighFanOut(phone string) bool {
	return len(idx.phoneNames[phone]) >= HighFanOutThreshold
}

func aliasCandidates(app scan.Appearance) []string {
	out := make([]string, 0, len(app.Aliases)+len(app.AlternateNames)+1)
	out = append(out, app.Aliases...)
	out = append(out, app.AlternateNames...)
	if app.BrandAlias != "" {
		out = append(out, app.BrandAlias)
	}
	return out
}

// aliasBoilerplate are professional/legal phrases that say nothing about
// identity when they show up as aliases.
var aliasBoilerplate = []string{
	"BARRISTER & SOLICITOR", "BARRISTERS & SOLICITORS", "BARRISTER AND SOLICITOR",
	"BARRISTERS", "SOLICITORS", "IN TRUST", "AS TRUSTEE", "CARE OF", "C/O",
	"ET AL", "ESTATE OF",
}

// lawFirmIndicators disqualify law-firm aliases from clustering use.
var lawFirmIndicators = []string{
	"LLP", "LAW OFFICE", "LAW OFFICES", "LAW FIRM", "LAWYERS", "ATTORNEY",
	"ATTORNEYS", "LEGAL",
}

// buildingWords flag office-building/address-shaped aliases when combined
// with a digit.
var buildingWords = []string{
	"TOWER", "PLAZA", "FLOOR", "SUITE", "CENTRE", "CENTER", "BUILDING",
}

// landmarkPrefixes are well-known office complexes that show up as aliases on
// law-firm care-of addresses.
var landmarkPrefixes = []string{
	"FIRST CANADIAN PLACE", "COMMERCE COURT", "TD CENTRE", "TORONTO-DOMINION CENTRE",
	"ROYAL BANK PLAZA", "BROOKFIELD PLACE", "EXCHANGE TOWER", "SCOTIA PLAZA",
}

// CleanAlias normalizes an alias candidate and decides whether it is usable
// as a clustering key. ownName is the appearance's normalized name; aliases
// trivially equal to its suffix-stripped form carry no extra signal.
func CleanAlias(alias, ownName string) (string, bool) {
	cleaned := normalize.Name(alias)
	if len(cleaned) < MinAliasLen {
		return "", false
	}

	for _, phrase := range aliasBoilerplate {
		if strings.Contains(cleaned, phrase) {
			return "", false
		}
	}
	for _, indicator := range lawFirmIndicators {
		if containsWord(cleaned, indicator) {
			return "", false
		}
	}
	if looksLikeAddress(cleaned) {
		return "", false
	}
	if cleaned == normalize.Alias(ownName) {
		return "", false
	}
	return cleaned, true
}

func looksLikeAddress(alias string) bool {
	for _, prefix := range landmarkPrefixes {
		if strings.HasPrefix(alias, prefix) {
			return true
		}
	}
	hasDigit := strings.IndexFunc(alias, unicode.IsDigit) >= 0
	if !hasDigit {
		return false
	}
	for _, word := range buildingWords {
		if containsWord(alias, word) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for _, w := range strings.Fields(s) {
		if strings.Trim(w, ".,()") == word {
			return true
		}
	}
	// multi-word indicators ("LAW OFFICE") need a substring check
	return strings.Contains(word, " ") && strings.Contains(s, word)
}
