// Package writer renders accepted mapping results back into the physical
// form: it fills the original workbook's input cells and saves a copy.
package writer

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/model"
	"github.com/formworks/formfill-cli/internal/schema"
)

// FillWorkbook opens the form workbook at srcPath, writes each filled
// field's accepted value into the cell its descriptor points at and
// saves the result as destPath. The source workbook stays untouched.
// Fields without a cell reference, fields that did not fill, and
// references into missing sheets are skipped with a warning. Returns the
// number of cells written.
func FillWorkbook(srcPath, destPath string, form *model.FormSchema, results []model.MappingResult) (int, error) {
	f, err := xlsx.OpenFile(srcPath)
	if err != nil {
		return 0, eris.Wrapf(err, "writer: open workbook %s", srcPath)
	}
	if len(f.Sheets) == 0 {
		return 0, eris.Errorf("writer: workbook %s has no sheets", srcPath)
	}

	byField := make(map[string]model.MappingResult, len(results))
	for _, r := range results {
		byField[r.FieldID] = r
	}

	written := 0
	for _, field := range form.Fields {
		if field.CellRef == "" {
			continue
		}
		res, ok := byField[field.ID]
		if !ok || res.Status != model.StatusFilled || res.AcceptedValue == nil {
			continue
		}

		sheetName, ri, ci, err := schema.ParseCellRef(field.CellRef)
		if err != nil {
			zap.L().Warn("writer: skipping malformed cell reference",
				zap.String("field", field.ID),
				zap.String("ref", field.CellRef),
				zap.Error(err))
			continue
		}
		sheet := f.Sheets[0]
		if sheetName != "" {
			s, ok := f.Sheet[sheetName]
			if !ok {
				zap.L().Warn("writer: sheet not in workbook",
					zap.String("field", field.ID),
					zap.String("sheet", sheetName))
				continue
			}
			sheet = s
		}

		setCell(sheet.Cell(ri, ci), field, *res.AcceptedValue)
		written++
	}

	if err := f.Save(destPath); err != nil {
		return written, eris.Wrapf(err, "writer: save %s", destPath)
	}
	zap.L().Info("writer: workbook filled",
		zap.String("dest", destPath),
		zap.Int("cells", written))
	return written, nil
}

// setCell writes number fields as numeric cells so spreadsheet formulas
// keep working; everything else is written as text.
func setCell(cell *xlsx.Cell, field model.FieldDescriptor, value string) {
	if field.ExpectedType == model.FieldTypeNumber {
		if fv, err := strconv.ParseFloat(value, 64); err == nil {
			cell.SetFloat(fv)
			return
		}
	}
	cell.SetString(value)
}
