package writer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/formworks/formfill-cli/internal/model"
)

func strPtr(s string) *string { return &s }

func formWorkbook(t *testing.T) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Antrag")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"Name des Arbeitgebers:", ""},
		{"Wochenstunden:", ""},
		{"Ort, Datum:", ""},
	} {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "antrag.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func testForm() *model.FormSchema {
	return &model.FormSchema{
		Name: "antrag",
		Fields: []model.FieldDescriptor{
			{ID: "arbeitgeber", Label: "Name des Arbeitgebers", ExpectedType: model.FieldTypeText, CellRef: "Antrag!B1"},
			{ID: "wochenstunden", Label: "Wochenstunden", ExpectedType: model.FieldTypeNumber, CellRef: "Antrag!B2"},
			{ID: "ort_datum", Label: "Ort, Datum", ExpectedType: model.FieldTypeText, CellRef: "Antrag!B3"},
			{ID: "bemerkung", Label: "Bemerkung", ExpectedType: model.FieldTypeText},
		},
	}
}

func TestFillWorkbook_WritesAcceptedValues(t *testing.T) {
	src := formWorkbook(t)
	dest := filepath.Join(t.TempDir(), "antrag_ausgefuellt.xlsx")

	results := []model.MappingResult{
		{FieldID: "arbeitgeber", Status: model.StatusFilled, AcceptedValue: strPtr("Lichtblick Solartechnik GmbH"), Confidence: 0.89},
		{FieldID: "wochenstunden", Status: model.StatusFilled, AcceptedValue: strPtr("40"), Confidence: 0.9},
		{FieldID: "ort_datum", Status: model.StatusRejected, Diagnostics: &model.FieldDiagnostics{Reason: model.ReasonLowConfidence}},
		{FieldID: "bemerkung", Status: model.StatusFilled, AcceptedValue: strPtr("ohne Zelle")},
	}

	written, err := FillWorkbook(src, dest, testForm(), results)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	filled, err := xlsx.OpenFile(dest)
	require.NoError(t, err)
	sheet, ok := filled.Sheet["Antrag"]
	require.True(t, ok)

	assert.Equal(t, "Lichtblick Solartechnik GmbH", sheet.Cell(0, 1).String())
	assert.Equal(t, "40", sheet.Cell(1, 1).Value)
	assert.Equal(t, "", sheet.Cell(2, 1).String())

	// Labels stay untouched.
	assert.Equal(t, "Name des Arbeitgebers:", sheet.Cell(0, 0).String())
}

func TestFillWorkbook_SourceStaysUntouched(t *testing.T) {
	src := formWorkbook(t)
	dest := filepath.Join(t.TempDir(), "out.xlsx")

	results := []model.MappingResult{
		{FieldID: "arbeitgeber", Status: model.StatusFilled, AcceptedValue: strPtr("Nordwind Energie GmbH")},
	}
	_, err := FillWorkbook(src, dest, testForm(), results)
	require.NoError(t, err)

	orig, err := xlsx.OpenFile(src)
	require.NoError(t, err)
	assert.Equal(t, "", orig.Sheet["Antrag"].Cell(0, 1).String())
}

func TestFillWorkbook_SkipsMissingSheetRef(t *testing.T) {
	src := formWorkbook(t)
	dest := filepath.Join(t.TempDir(), "out.xlsx")

	form := &model.FormSchema{
		Fields: []model.FieldDescriptor{
			{ID: "feld", Label: "Feld", CellRef: "Fehlt!B1"},
		},
	}
	results := []model.MappingResult{
		{FieldID: "feld", Status: model.StatusFilled, AcceptedValue: strPtr("Wert")},
	}

	written, err := FillWorkbook(src, dest, form, results)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
}

func TestFillWorkbook_BareRefUsesFirstSheet(t *testing.T) {
	src := formWorkbook(t)
	dest := filepath.Join(t.TempDir(), "out.xlsx")

	form := &model.FormSchema{
		Fields: []model.FieldDescriptor{
			{ID: "arbeitgeber", Label: "Arbeitgeber", CellRef: "B1"},
		},
	}
	results := []model.MappingResult{
		{FieldID: "arbeitgeber", Status: model.StatusFilled, AcceptedValue: strPtr("Lichtblick GmbH")},
	}

	written, err := FillWorkbook(src, dest, form, results)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	filled, err := xlsx.OpenFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Lichtblick GmbH", filled.Sheets[0].Cell(0, 1).String())
}

func TestFillWorkbook_MissingSource(t *testing.T) {
	_, err := FillWorkbook(filepath.Join(t.TempDir(), "fehlt.xlsx"), "out.xlsx", testForm(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")
}
