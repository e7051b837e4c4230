package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const excelContentType = "application/vnd.ms-excel"

// NewExcelRenderer renders the report as an Excel workbook.
func NewExcelRenderer() Renderer {
	return &spreadsheetRenderer{format: FormatXLS, open: newExcelWorkbook}
}

type excelWorkbook struct {
	file     *excelize.File
	filename string
	sheets   int
}

func newExcelWorkbook(filename string) Workbook {
	return &excelWorkbook{file: excelize.NewFile(), filename: filename}
}

func (wb *excelWorkbook) AddWorksheet(name string) (Worksheet, error) {
	name = sanitizeSheetName(name)
	if wb.sheets == 0 {
		if err := wb.file.SetSheetName(wb.file.GetSheetName(0), name); err != nil {
			return nil, err
		}
	} else if _, err := wb.file.NewSheet(name); err != nil {
		return nil, err
	}
	wb.sheets++

	return &excelWorksheet{file: wb.file, name: name}, nil
}

func (wb *excelWorkbook) Close(w ResponseWriter) error {
	defer wb.file.Close()

	buf, err := wb.file.WriteToBuffer()
	if err != nil {
		return err
	}

	setDownloadHeaders(w, excelContentType, wb.filename)
	_, err = w.Write(buf.Bytes())
	return err
}

type excelWorksheet struct {
	file *excelize.File
	name string
}

func (s *excelWorksheet) Write(row, col int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Errorf("cell %d,%d: %w", row, col, err)
	}
	return s.file.SetCellValue(s.name, cell, value)
}
