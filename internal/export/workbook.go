package export

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Workbook is a spreadsheet document sink.
type Workbook interface {
	AddWorksheet(name string) (Worksheet, error)
	// Close finishes the document and sends it, download headers included.
	Close(w ResponseWriter) error
}

// Worksheet accepts cell values addressed by zero-based row and column.
type Worksheet interface {
	Write(row, col int, value interface{}) error
}

type workbookFactory func(filename string) Workbook

// spreadsheetRenderer lays the report out as a header row followed by one row per user.
type spreadsheetRenderer struct {
	format Format
	open   workbookFactory
}

func (r *spreadsheetRenderer) Format() Format {
	return r.format
}

func (r *spreadsheetRenderer) Render(w ResponseWriter, page Page, rows Rows) (int, error) {
	loc := page.Localizer
	workbook := r.open(documentName(page, r.format))

	sheet, err := workbook.AddWorksheet(loc.String("rawrecordsreportfilename"))
	if err != nil {
		return 0, fmt.Errorf("add worksheet: %w", err)
	}

	if err := sheet.Write(0, 0, loc.String("users")); err != nil {
		return 0, err
	}
	if err := sheet.Write(0, 1, loc.String("count")); err != nil {
		return 0, err
	}

	row := 1
	for rows.Next() {
		rec := rows.Row()
		if err := sheet.Write(row, 0, loc.FullName(rec.FirstName, rec.LastName)); err != nil {
			return row - 1, err
		}
		if err := sheet.Write(row, 1, rec.Count); err != nil {
			return row - 1, err
		}
		row++
	}
	if err := rows.Err(); err != nil {
		return row - 1, err
	}

	if err := workbook.Close(w); err != nil {
		return row - 1, fmt.Errorf("close workbook: %w", err)
	}

	return row - 1, nil
}

const maxSheetNameRunes = 31

// sanitizeSheetName applies the spreadsheet sheet-name rules: no []:*?/\ characters, no
// leading or trailing apostrophe, at most 31 characters.
func sanitizeSheetName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	cleaned = strings.Trim(cleaned, "'")

	if utf8.RuneCountInString(cleaned) > maxSheetNameRunes {
		cleaned = string([]rune(cleaned)[:maxSheetNameRunes])
	}
	if cleaned == "" {
		return "Sheet1"
	}
	return cleaned
}
