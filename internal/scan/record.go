package scan

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed transaction.schema.json
var transactionSchema string

const schemaURL = "https://cleo.local/schemas/transaction/v1.json"

// Record is one parsed transaction as the upstream pipeline publishes it.
type Record struct {
	TransactionID string   `json:"transaction_id"`
	SaleDate      string   `json:"sale_date"`
	SalePrice     float64  `json:"sale_price"`
	Property      Property `json:"property"`
	Seller        *Party   `json:"seller,omitempty"`
	Buyer         *Party   `json:"buyer,omitempty"`
}

// Property is the linked property block on a record.
type Property struct {
	Address string `json:"address"`
	City    string `json:"city"`
}

// Party is one side's party block. Absence of a side is valid.
type Party struct {
	Name           string   `json:"name"`
	Contact        string   `json:"contact"`
	Phones         []string `json:"phones"`
	Address        string   `json:"address"`
	Aliases        []string `json:"aliases"`
	AlternateNames []string `json:"alternate_names"`
}

// Contract validates raw record bytes against the transaction schema before
// they enter the scanner. Invalid records are skipped, not fatal.
type Contract struct {
	schema *jsonschema.Schema
}

// NewContract compiles the embedded transaction schema.
func NewContract() (*Contract, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, strings.NewReader(transactionSchema)); err != nil {
		return nil, fmt.Errorf("add transaction schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile transaction schema: %w", err)
	}
	return &Contract{schema: schema}, nil
}

// Validate checks one decoded record document.
func (c *Contract) Validate(doc any) error {
	return c.schema.Validate(doc)
}
