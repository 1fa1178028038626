// Package scan reads the parsed-transaction corpus and flattens it into
// per-side party appearances, the unit everything downstream clusters on.
package scan

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/normalize"
	pstrings "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/platform/strings"
)

// Appearance is one party's presence on one side of one transaction. Built
// fresh on every scan pass and never mutated afterwards.
type Appearance struct {
	TransactionID     string   `json:"transaction_id"`
	Role              string   `json:"role"`
	Name              string   `json:"name"`
	NormalizedName    string   `json:"normalized_name"`
	Contact           string   `json:"contact,omitempty"`
	NormalizedContact string   `json:"normalized_contact,omitempty"`
	Phones            []string `json:"phones,omitempty"`
	Address           string   `json:"address,omitempty"`
	NormalizedAddress string   `json:"normalized_address,omitempty"`
	Aliases           []string `json:"aliases,omitempty"`
	AlternateNames    []string `json:"alternate_names,omitempty"`
	BrandAlias        string   `json:"brand_alias,omitempty"`
	SaleDate          string   `json:"sale_date"`
	SalePrice         float64  `json:"sale_price,omitempty"`
	PropertyAddress   string   `json:"property_address,omitempty"`
	PropertyCity      string   `json:"property_city,omitempty"`
	IsCompany         bool     `json:"is_company"`
	Numbered          bool     `json:"numbered,omitempty"`
}

const (
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
)

// Result is one full scan pass over the corpus.
type Result struct {
	Appearances    []Appearance
	RecordsRead    int
	RecordsSkipped int
}

// Scanner turns a corpus directory into appearances. Unreadable or invalid
// records are logged, tallied, and skipped; they never abort a scan.
type Scanner struct {
	contract *Contract
	logger   *slog.Logger
}

func NewScanner(contract *Contract, logger *slog.Logger) *Scanner {
	return &Scanner{contract: contract, logger: logger}
}

// Scan reads every *.json record under dir. Files are visited in directory
// order (sorted), so output order is deterministic.
func (s *Scanner) Scan(dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir %s: %w", dir, err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		rec, err := s.readRecord(path)
		if err != nil {
			result.RecordsSkipped++
			s.logger.Warn("skipping transaction record", "path", path, "error", err)
			continue
		}
		result.RecordsRead++

		if app, ok := buildAppearance(rec, RoleSeller, rec.Seller); ok {
			result.Appearances = append(result.Appearances, app)
		}
		if app, ok := buildAppearance(rec, RoleBuyer, rec.Buyer); ok {
			result.Appearances = append(result.Appearances, app)
		}
	}
	return result, nil
}

func (s *Scanner) readRecord(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := s.contract.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func buildAppearance(rec *Record, role string, party *Party) (Appearance, bool) {
	if party == nil || strings.TrimSpace(party.Name) == "" {
		return Appearance{}, false
	}

	normalized := normalize.Name(party.Name)
	phones := make([]string, 0, len(party.Phones))
	for _, p := range party.Phones {
		if digits := normalize.Phone(p); digits != "" {
			phones = append(phones, digits)
		}
	}

	return Appearance{
		TransactionID:     rec.TransactionID,
		Role:              role,
		Name:              strings.TrimSpace(party.Name),
		NormalizedName:    normalized,
		Contact:           strings.TrimSpace(party.Contact),
		NormalizedContact: normalize.Contact(party.Contact),
		Phones:            pstrings.DedupeAndTrim(phones),
		Address:           strings.TrimSpace(party.Address),
		NormalizedAddress: normalize.Address(party.Address),
		Aliases:           pstrings.DedupeAndTrim(party.Aliases),
		AlternateNames:    pstrings.DedupeAndTrim(party.AlternateNames),
		BrandAlias:        extractBrandAlias(party.Name),
		SaleDate:          rec.SaleDate,
		SalePrice:         rec.SalePrice,
		PropertyAddress:   rec.Property.Address,
		PropertyCity:      rec.Property.City,
		IsCompany:         classifyCompany(normalized),
		Numbered:          IsNumberedName(normalized),
	}, true
}

// entityKeywords flag a name as a company regardless of word count.
var entityKeywords = []string{
	"INC", "INCORPORATED", "LTD", "LIMITED", "CORP", "CORPORATION", "CO",
	"COMPANY", "LLC", "LLP", "LP", "ULC", "TRUST", "TRUSTEE", "REIT",
	"HOLDINGS", "HOLDING", "PROPERTIES", "PROPERTY", "DEVELOPMENTS",
	"INVESTMENTS", "ENTERPRISES", "GROUP", "PARTNERS", "PARTNERSHIP",
	"REALTY", "CAPITAL", "MANAGEMENT", "ASSOCIATION", "BANK", "CHURCH",
	"CITY", "ESTATES",
}

var numberedPrefix = regexp.MustCompile(`^\d{4,}(\s|$)`)

// IsNumberedName reports whether a normalized name is an Ontario-style
// numbered company (leading registration number of 4+ digits). Documented
// heuristic: it can misread numeric street-address-prefixed person names.
func IsNumberedName(normalized string) bool {
	return numberedPrefix.MatchString(normalized)
}

// classifyCompany applies the company/person heuristic from the spec of the
// upstream filings: entity keyword or numbered prefix means company, 2-3
// all-alpha words mean person, anything else defaults to company.
func classifyCompany(normalized string) bool {
	words := strings.Fields(normalized)
	for _, w := range words {
		if hasEntityKeyword(w) {
			return true
		}
	}
	if IsNumberedName(normalized) {
		return true
	}
	if len(words) >= 2 && len(words) <= 3 && allAlpha(words) {
		return false
	}
	return true
}

func hasEntityKeyword(word string) bool {
	word = strings.TrimRight(word, ".")
	for _, kw := range entityKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

func allAlpha(words []string) bool {
	for _, w := range words {
		for _, r := range w {
			if !(r >= 'A' && r <= 'Z') {
				return false
			}
		}
	}
	return true
}

var parenthetical = regexp.MustCompile(`^([^()]+?)\s*\(([^()]+)\)`)

// extractBrandAlias pulls the brand out of "Brand (Legal Name) Inc" style
// names. Returns "" when the pattern does not apply.
func extractBrandAlias(name string) string {
	m := parenthetical.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return ""
	}
	brand := strings.TrimSpace(m[1])
	if brand == "" || IsNumberedName(normalize.Name(brand)) {
		return ""
	}
	return brand
}
