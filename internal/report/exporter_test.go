package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/registry"
	dErrors "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/domain-errors"
)

func seededStore(t *testing.T) *registry.InMemoryStore {
	t.Helper()
	store := registry.NewInMemoryStore()
	reg := registry.NewRegistry()
	reg.Parties["G00001"] = &registry.Group{
		ID:               "G00001",
		IsCompany:        true,
		DisplayName:      "Acme Holdings Inc",
		NormalizedNames:  []string{"ACME HOLDINGS INC", "ACME REALTY CORP"},
		TransactionCount: 4,
		BuyCount:         1,
		SellCount:        3,
		FirstActive:      "2020-01-15",
		LastActive:       "2023-06-30",
	}
	reg.Parties["G00002"] = &registry.Group{
		ID:              "G00002",
		DisplayName:     "Jane Doe",
		NormalizedNames: []string{"JANE DOE"},
	}
	reg.Overrides.Confirmed["G00001"] = []string{"ACME HOLDINGS INC"}
	reg.Overrides.DisplayName["G00001"] = "Acme"
	require.NoError(t, store.Save(reg))
	return store
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, NewExporter(seededStore(t)).Export(path, FormatJSON))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Total  int   `json:"total"`
		Groups []Row `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, 2, doc.Total)
	require.Equal(t, "G00001", doc.Groups[0].GroupID)
	require.Equal(t, "Acme", doc.Groups[0].DisplayName) // override applied
	require.Equal(t, 1, doc.Groups[0].ConfirmedCount)
	require.Equal(t, "ACME HOLDINGS INC; ACME REALTY CORP", doc.Groups[0].Names)
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.csv")
	require.NoError(t, NewExporter(seededStore(t)).Export(path, FormatCSV))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 groups
	require.Equal(t, csvHeaders, records[0])
	require.Equal(t, "G00001", records[1][0])
	require.Equal(t, "true", records[1][2])
}

func TestExportExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.xlsx")
	require.NoError(t, NewExporter(seededStore(t)).Export(path, FormatExcel))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Party Registry", "A2")
	require.NoError(t, err)
	require.Equal(t, "G00001", got)
}

func TestExportUnknownFormat(t *testing.T) {
	err := NewExporter(seededStore(t)).Export(filepath.Join(t.TempDir(), "x"), Format("yaml"))
	require.Error(t, err)
	require.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}
