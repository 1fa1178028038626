// Package report exports the party registry to operator-facing files: JSON
// for tooling, CSV for quick greps, and a styled Excel workbook for review
// sessions.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/registry"
	dErrors "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/domain-errors"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// Row is one exported group.
type Row struct {
	GroupID          string `json:"group_id"`
	DisplayName      string `json:"display_name"`
	IsCompany        bool   `json:"is_company"`
	NameCount        int    `json:"name_count"`
	Names            string `json:"names"`
	ConfirmedCount   int    `json:"confirmed_count"`
	TransactionCount int    `json:"transaction_count"`
	BuyCount         int    `json:"buy_count"`
	SellCount        int    `json:"sell_count"`
	FirstActive      string `json:"first_active"`
	LastActive       string `json:"last_active"`
	URL              string `json:"url,omitempty"`
}

// Exporter writes registry exports from the persisted registry.
type Exporter struct {
	store registry.Store
}

func NewExporter(store registry.Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the full registry to filename in the requested format.
func (e *Exporter) Export(filename string, format Format) error {
	rows, err := e.fetchRows()
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		return exportJSON(filename, rows)
	case FormatCSV:
		return exportCSV(filename, rows)
	case FormatExcel:
		return exportExcel(filename, rows)
	default:
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown export format %q", format)
	}
}

func (e *Exporter) fetchRows() ([]Row, error) {
	reg, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	rows := make([]Row, 0, len(reg.Parties))
	for _, id := range reg.SortedIDs() {
		g := reg.Parties[id]
		rows = append(rows, Row{
			GroupID:          id,
			DisplayName:      reg.DisplayNameFor(g),
			IsCompany:        g.IsCompany,
			NameCount:        len(g.NormalizedNames),
			Names:            strings.Join(g.NormalizedNames, "; "),
			ConfirmedCount:   len(reg.Overrides.Confirmed[id]),
			TransactionCount: g.TransactionCount,
			BuyCount:         g.BuyCount,
			SellCount:        g.SellCount,
			FirstActive:      g.FirstActive,
			LastActive:       g.LastActive,
			URL:              reg.Overrides.URL[id],
		})
	}
	return rows, nil
}

func exportJSON(filename string, rows []Row) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"total":       len(rows),
		"groups":      rows,
	})
}

var csvHeaders = []string{
	"Group ID", "Display Name", "Company", "Name Count", "Names",
	"Confirmed", "Transactions", "Buys", "Sells", "First Active", "Last Active", "URL",
}

func exportCSV(filename string, rows []Row) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.GroupID,
			row.DisplayName,
			strconv.FormatBool(row.IsCompany),
			strconv.Itoa(row.NameCount),
			row.Names,
			strconv.Itoa(row.ConfirmedCount),
			strconv.Itoa(row.TransactionCount),
			strconv.Itoa(row.BuyCount),
			strconv.Itoa(row.SellCount),
			row.FirstActive,
			row.LastActive,
			row.URL,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return writer.Error()
}

func exportExcel(filename string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Party Registry"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, header := range csvHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		values := []any{
			row.GroupID, row.DisplayName, row.IsCompany, row.NameCount, row.Names,
			row.ConfirmedCount, row.TransactionCount, row.BuyCount, row.SellCount,
			row.FirstActive, row.LastActive, row.URL,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	for i := range csvHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	f.SetActiveSheet(index)
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
