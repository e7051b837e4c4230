package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const odsContentType = "application/vnd.oasis.opendocument.spreadsheet"

// NewODSRenderer renders the report as an OpenDocument spreadsheet.
func NewODSRenderer() Renderer {
	return &spreadsheetRenderer{format: FormatODS, open: newODSWorkbook}
}

////////////////////////////////////////////////////////////////////////////////
// Workbook model
////////////////////////////////////////////////////////////////////////////////

type odsWorkbook struct {
	filename string
	sheets   []*odsSheet
	now      func() time.Time
}

type odsSheet struct {
	name  string
	cells map[int]map[int]odsCell
}

type odsCell struct {
	// numeric cells carry office:value-type="float"; everything else is a string.
	numeric bool
	val     string
}

func newODSWorkbook(filename string) Workbook {
	return &odsWorkbook{filename: filename, now: time.Now}
}

func (wb *odsWorkbook) AddWorksheet(name string) (Worksheet, error) {
	sheet := &odsSheet{name: sanitizeSheetName(name), cells: map[int]map[int]odsCell{}}
	wb.sheets = append(wb.sheets, sheet)
	return sheet, nil
}

func (s *odsSheet) Write(row, col int, value interface{}) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("cell %d,%d out of range", row, col)
	}

	cell, err := odsCellFromAny(value)
	if err != nil {
		return err
	}

	if s.cells[row] == nil {
		s.cells[row] = map[int]odsCell{}
	}
	s.cells[row][col] = cell
	return nil
}

func odsCellFromAny(value interface{}) (odsCell, error) {
	switch v := value.(type) {
	case string:
		return odsCell{val: v}, nil
	case int:
		return odsCell{numeric: true, val: strconv.Itoa(v)}, nil
	case int64:
		return odsCell{numeric: true, val: strconv.FormatInt(v, 10)}, nil
	case uint:
		return odsCell{numeric: true, val: strconv.FormatUint(uint64(v), 10)}, nil
	case float64:
		return odsCell{numeric: true, val: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case fmt.Stringer:
		return odsCell{val: v.String()}, nil
	default:
		return odsCell{}, fmt.Errorf("unsupported cell value %T", value)
	}
}

func (wb *odsWorkbook) Close(w ResponseWriter) error {
	if len(wb.sheets) == 0 {
		if _, err := wb.AddWorksheet(""); err != nil {
			return err
		}
	}

	payload, err := wb.bytes()
	if err != nil {
		return err
	}

	setDownloadHeaders(w, odsContentType, wb.filename)
	_, err = w.Write(payload)
	return err
}

////////////////////////////////////////////////////////////////////////////////
// Package assembly
////////////////////////////////////////////////////////////////////////////////

func (wb *odsWorkbook) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := wb.now().UTC()

	// The mimetype entry must come first and be stored uncompressed.
	if err := writeZipEntry(zw, "mimetype", []byte(odsContentType), zip.Store, modified); err != nil {
		return nil, err
	}

	parts := []struct {
		name    string
		content []byte
	}{
		{name: "META-INF/manifest.xml", content: buildManifestXML()},
		{name: "meta.xml", content: buildMetaXML(modified)},
		{name: "styles.xml", content: buildStylesXML()},
		{name: "content.xml", content: wb.buildContentXML()},
	}
	for _, part := range parts {
		if err := writeZipEntry(zw, part.name, part.content, zip.Deflate, modified); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize ods: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, content []byte, method uint16, modified time.Time) error {
	h := &zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: modified,
	}
	f, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

const (
	odsOfficeNS = `xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"`
	odsTableNS  = `xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"`
	odsTextNS   = `xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"`
	odsMetaNS   = `xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0"`
	odsManNS    = `xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0"`
)

func buildManifestXML() []byte {
	var b strings.Builder
	b.WriteString(xmlHeader())
	b.WriteString(`<manifest:manifest ` + odsManNS + ` manifest:version="1.2">`)
	b.WriteString(`<manifest:file-entry manifest:full-path="/" manifest:version="1.2" manifest:media-type="` + odsContentType + `"/>`)
	b.WriteString(`<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>`)
	b.WriteString(`<manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>`)
	b.WriteString(`<manifest:file-entry manifest:full-path="meta.xml" manifest:media-type="text/xml"/>`)
	b.WriteString(`</manifest:manifest>`)
	return []byte(b.String())
}

func buildMetaXML(t time.Time) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader())
	b.WriteString(`<office:document-meta ` + odsOfficeNS + ` ` + odsMetaNS + ` office:version="1.2">`)
	b.WriteString(`<office:meta>`)
	b.WriteString(`<meta:generator>rawrecordscount</meta:generator>`)
	b.WriteString(`<meta:creation-date>` + t.Format("2006-01-02T15:04:05") + `</meta:creation-date>`)
	b.WriteString(`</office:meta></office:document-meta>`)
	return []byte(b.String())
}

func buildStylesXML() []byte {
	var b strings.Builder
	b.WriteString(xmlHeader())
	b.WriteString(`<office:document-styles ` + odsOfficeNS + ` office:version="1.2">`)
	b.WriteString(`<office:styles/>`)
	b.WriteString(`</office:document-styles>`)
	return []byte(b.String())
}

func (wb *odsWorkbook) buildContentXML() []byte {
	var b strings.Builder
	b.WriteString(xmlHeader())
	b.WriteString(`<office:document-content ` + odsOfficeNS + ` ` + odsTableNS + ` ` + odsTextNS + ` office:version="1.2">`)
	b.WriteString(`<office:body><office:spreadsheet>`)
	for _, sheet := range wb.sheets {
		sheet.writeTableXML(&b)
	}
	b.WriteString(`</office:spreadsheet></office:body></office:document-content>`)
	return []byte(b.String())
}

func (s *odsSheet) writeTableXML(b *strings.Builder) {
	b.WriteString(`<table:table table:name="` + xmlEscape(s.name) + `">`)

	rowIndexes := sortedKeys(s.cells)
	next := 0
	for _, r := range rowIndexes {
		if gap := r - next; gap > 0 {
			fmt.Fprintf(b, `<table:table-row table:number-rows-repeated="%d"><table:table-cell/></table:table-row>`, gap)
		}
		writeRowXML(b, s.cells[r])
		next = r + 1
	}
	if len(rowIndexes) == 0 {
		b.WriteString(`<table:table-row><table:table-cell/></table:table-row>`)
	}

	b.WriteString(`</table:table>`)
}

func writeRowXML(b *strings.Builder, row map[int]odsCell) {
	b.WriteString(`<table:table-row>`)
	next := 0
	for _, c := range sortedKeys(row) {
		if gap := c - next; gap > 0 {
			fmt.Fprintf(b, `<table:table-cell table:number-columns-repeated="%d"/>`, gap)
		}
		b.WriteString(buildCellXML(row[c]))
		next = c + 1
	}
	b.WriteString(`</table:table-row>`)
}

func buildCellXML(c odsCell) string {
	text := xmlEscape(c.val)
	if c.numeric {
		return `<table:table-cell office:value-type="float" office:value="` + text + `"><text:p>` + text + `</text:p></table:table-cell>`
	}
	return `<table:table-cell office:value-type="string"><text:p>` + text + `</text:p></table:table-cell>`
}

func xmlHeader() string {
	return `<?xml version="1.0" encoding="UTF-8"?>`
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
