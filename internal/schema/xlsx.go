package schema

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/model"
)

// XLSXOptions control how a form workbook is scanned.
type XLSXOptions struct {
	// SheetName restricts scanning to one sheet. Empty scans every sheet.
	SheetName string
	// MaxLabelLen drops over-long label candidates, which are usually
	// instruction prose rather than field labels. Zero means 80 runes.
	MaxLabelLen int
}

// LoadXLSX derives a form schema from a workbook by layout inspection.
// A cell whose text ends in ":" or "?" is treated as a field label; its
// input cell is the nearest empty neighbor, first to the right, then
// below. Labels whose neighbors are both occupied are skipped, so a
// partially filled workbook yields only its open fields.
func LoadXLSX(path string, opts XLSXOptions) (*model.FormSchema, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: open workbook %s", path)
	}

	sheets := f.Sheets
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("schema: workbook %s has no sheet %q", path, opts.SheetName)
		}
		sheets = []*xlsx.Sheet{sheet}
	}
	maxLabel := opts.MaxLabelLen
	if maxLabel <= 0 {
		maxLabel = 80
	}

	s := &model.FormSchema{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
	seen := make(map[string]int)
	for _, sheet := range sheets {
		for ri, row := range sheet.Rows {
			for ci, cell := range row.Cells {
				text := strings.TrimSpace(cell.String())
				if !isLabelText(text, maxLabel) {
					continue
				}
				ref, ok := inputCellRef(sheet, ri, ci)
				if !ok {
					zap.L().Debug("schema: label has no empty input cell",
						zap.String("sheet", sheet.Name),
						zap.String("label", text))
					continue
				}
				label := strings.TrimSpace(strings.TrimRight(text, ":"))
				ftype, constraints := inferFieldType(label)
				s.Fields = append(s.Fields, model.FieldDescriptor{
					ID:           uniqueID(seen, slugID(label)),
					Label:        label,
					ExpectedType: ftype,
					Constraints:  constraints,
					CellRef:      ref,
				})
			}
		}
	}

	if len(s.Fields) == 0 {
		return nil, eris.Errorf("schema: no field labels detected in %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, eris.Wrapf(err, "schema: %s", path)
	}
	return s, nil
}

// isLabelText reports whether cell text looks like a field label: it ends
// in ":" or "?", carries at least one letter and stays short enough to not
// be instruction prose.
func isLabelText(text string, maxLen int) bool {
	if !strings.HasSuffix(text, ":") && !strings.HasSuffix(text, "?") {
		return false
	}
	if len([]rune(text)) > maxLen {
		return false
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// inputCellRef locates the empty cell a label points at: right neighbor
// first, the cell below as fallback.
func inputCellRef(sheet *xlsx.Sheet, ri, ci int) (string, bool) {
	if rowCellEmpty(sheet, ri, ci+1) {
		return FormatCellRef(sheet.Name, ri, ci+1), true
	}
	if rowCellEmpty(sheet, ri+1, ci) {
		return FormatCellRef(sheet.Name, ri+1, ci), true
	}
	return "", false
}

// rowCellEmpty treats cells beyond the populated grid as empty.
func rowCellEmpty(sheet *xlsx.Sheet, ri, ci int) bool {
	if ri >= len(sheet.Rows) {
		return true
	}
	row := sheet.Rows[ri]
	if ci >= len(row.Cells) {
		return true
	}
	return strings.TrimSpace(row.Cells[ci].String()) == ""
}

var choiceGroupRe = regexp.MustCompile(`\(([^()/]+(?:/[^()/]+)+)\)`)

// inferFieldType guesses a field's type from its label vocabulary. A
// parenthesized slash group ("(Vollzeit/Teilzeit)") becomes an enumerated
// choice, a ja/nein group a boolean; otherwise date and number labels are
// recognized by their common German and English tokens.
func inferFieldType(label string) (model.FieldType, *model.Constraints) {
	lower := lowerGerman(label)

	if strings.Contains(lower, "ja/nein") || strings.Contains(lower, "yes/no") {
		return model.FieldTypeBoolean, nil
	}
	if m := choiceGroupRe.FindStringSubmatch(label); m != nil {
		parts := strings.Split(m[1], "/")
		choices := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				choices = append(choices, p)
			}
		}
		if len(choices) >= 2 {
			return model.FieldTypeChoice, &model.Constraints{Choices: choices}
		}
	}
	for _, tok := range []string{"datum", "date", "frist", "geboren am"} {
		if strings.Contains(lower, tok) {
			return model.FieldTypeDate, nil
		}
	}
	for _, tok := range []string{"anzahl", "stunden", "betrag", "summe", "prozent", "number of"} {
		if strings.Contains(lower, tok) {
			return model.FieldTypeNumber, nil
		}
	}
	return model.FieldTypeText, nil
}

var germanReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
)

func lowerGerman(s string) string {
	return strings.ToLower(germanReplacer.Replace(s))
}

// slugID turns a label into a stable machine id: transliterated, lowered,
// with runs of non-alphanumerics collapsed to single underscores.
func slugID(label string) string {
	lower := lowerGerman(label)
	var b strings.Builder
	lastUnderscore := true
	for _, r := range lower {
		switch {
		case 'a' <= r && r <= 'z' || '0' <= r && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	id := strings.Trim(b.String(), "_")
	if id == "" {
		return "field"
	}
	return id
}

// uniqueID suffixes repeated slugs so Validate's duplicate check passes.
func uniqueID(seen map[string]int, id string) string {
	seen[id]++
	if n := seen[id]; n > 1 {
		return fmt.Sprintf("%s_%d", id, n)
	}
	return id
}

var cellRefRe = regexp.MustCompile(`^(?:([^!]+)!)?([A-Za-z]+)([0-9]+)$`)

// FormatCellRef renders a zero-based (row, col) position as an A1-style
// reference with sheet prefix, e.g. FormatCellRef("Antrag", 2, 1) == "Antrag!B3".
func FormatCellRef(sheetName string, ri, ci int) string {
	var col []byte
	for c := ci; c >= 0; c = c/26 - 1 {
		col = append([]byte{byte('A' + c%26)}, col...)
	}
	return fmt.Sprintf("%s!%s%d", sheetName, col, ri+1)
}

// ParseCellRef splits an A1-style reference into sheet name and zero-based
// row and column. The sheet prefix is optional.
func ParseCellRef(ref string) (sheetName string, ri, ci int, err error) {
	m := cellRefRe.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return "", 0, 0, eris.Errorf("schema: malformed cell reference %q", ref)
	}
	for _, r := range strings.ToUpper(m[2]) {
		ci = ci*26 + int(r-'A'+1)
	}
	ci--
	for _, r := range m[3] {
		ri = ri*10 + int(r-'0')
	}
	if ri == 0 {
		return "", 0, 0, eris.Errorf("schema: cell reference %q addresses row 0", ref)
	}
	return m[1], ri - 1, ci, nil
}
