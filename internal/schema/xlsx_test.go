package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/formworks/formfill-cli/internal/model"
)

func createFormWorkbook(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "antrag.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadXLSX_DetectsLabeledFields(t *testing.T) {
	path := createFormWorkbook(t, "Antrag", [][]string{
		{"Antrag auf Teilnahme"},
		{"Name des Arbeitgebers:", ""},
		{"Eintrittsdatum:", ""},
		{"Wochenstunden:", ""},
		{"Beschäftigungsart (Vollzeit/Teilzeit):", ""},
		{"Gesetzlich versichert (ja/nein)?", ""},
	})

	s, err := LoadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "antrag", s.Name)
	require.Len(t, s.Fields, 5)

	assert.Equal(t, "name_des_arbeitgebers", s.Fields[0].ID)
	assert.Equal(t, "Name des Arbeitgebers", s.Fields[0].Label)
	assert.Equal(t, model.FieldTypeText, s.Fields[0].ExpectedType)
	assert.Equal(t, "Antrag!B2", s.Fields[0].CellRef)

	assert.Equal(t, "eintrittsdatum", s.Fields[1].ID)
	assert.Equal(t, model.FieldTypeDate, s.Fields[1].ExpectedType)
	assert.Equal(t, "Antrag!B3", s.Fields[1].CellRef)

	assert.Equal(t, "wochenstunden", s.Fields[2].ID)
	assert.Equal(t, model.FieldTypeNumber, s.Fields[2].ExpectedType)

	choice := s.Fields[3]
	assert.Equal(t, "beschaeftigungsart_vollzeit_teilzeit", choice.ID)
	assert.Equal(t, model.FieldTypeChoice, choice.ExpectedType)
	require.NotNil(t, choice.Constraints)
	assert.Equal(t, []string{"Vollzeit", "Teilzeit"}, choice.Constraints.Choices)

	boolean := s.Fields[4]
	assert.Equal(t, "gesetzlich_versichert_ja_nein", boolean.ID)
	assert.Equal(t, model.FieldTypeBoolean, boolean.ExpectedType)
	assert.Equal(t, "Antrag!B6", boolean.CellRef)
}

func TestLoadXLSX_FallsBackToCellBelow(t *testing.T) {
	path := createFormWorkbook(t, "Antrag", [][]string{
		{"Bemerkungen:", "siehe Anhang"},
	})

	s, err := LoadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, s.Fields, 1)
	assert.Equal(t, "Antrag!A2", s.Fields[0].CellRef)
}

func TestLoadXLSX_SkipsLabelsWithoutOpenCell(t *testing.T) {
	path := createFormWorkbook(t, "Antrag", [][]string{
		{"Name:", "Anna Schmidt"},
		{"Ort:", ""},
	})

	s, err := LoadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, s.Fields, 1)
	assert.Equal(t, "ort", s.Fields[0].ID)
	assert.Equal(t, "Antrag!B2", s.Fields[0].CellRef)
}

func TestLoadXLSX_DuplicateLabelsGetSuffixes(t *testing.T) {
	path := createFormWorkbook(t, "Antrag", [][]string{
		{"Datum:", ""},
		{"Datum:", ""},
	})

	s, err := LoadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "datum", s.Fields[0].ID)
	assert.Equal(t, "datum_2", s.Fields[1].ID)
}

func TestLoadXLSX_SheetNameNotFound(t *testing.T) {
	path := createFormWorkbook(t, "Antrag", [][]string{{"Name:", ""}})

	_, err := LoadXLSX(path, XLSXOptions{SheetName: "Fehlt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sheet")
}

func TestLoadXLSX_NoLabelsDetected(t *testing.T) {
	path := createFormWorkbook(t, "Antrag", [][]string{
		{"Nur Fließtext ohne Felder"},
		{"noch eine Zeile"},
	})

	_, err := LoadXLSX(path, XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no field labels")
}

func TestFormatCellRef(t *testing.T) {
	assert.Equal(t, "Antrag!A1", FormatCellRef("Antrag", 0, 0))
	assert.Equal(t, "Antrag!B3", FormatCellRef("Antrag", 2, 1))
	assert.Equal(t, "Daten!AA10", FormatCellRef("Daten", 9, 26))
}

func TestParseCellRef(t *testing.T) {
	sheet, ri, ci, err := ParseCellRef("Antrag!C12")
	require.NoError(t, err)
	assert.Equal(t, "Antrag", sheet)
	assert.Equal(t, 11, ri)
	assert.Equal(t, 2, ci)

	sheet, ri, ci, err = ParseCellRef("B3")
	require.NoError(t, err)
	assert.Equal(t, "", sheet)
	assert.Equal(t, 2, ri)
	assert.Equal(t, 1, ci)

	_, ri, ci, err = ParseCellRef("Daten!AA10")
	require.NoError(t, err)
	assert.Equal(t, 9, ri)
	assert.Equal(t, 26, ci)

	_, _, _, err = ParseCellRef("12C")
	require.Error(t, err)

	_, _, _, err = ParseCellRef("Antrag!A0")
	require.Error(t, err)
}
