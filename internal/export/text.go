package export

import (
	"bufio"
	"fmt"
)

const textContentType = "application/download"

// TextRenderer writes tab-separated lines: a header, then full name and count per user.
type TextRenderer struct{}

// NewTextRenderer constructs the delimited text renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

func (r *TextRenderer) Format() Format {
	return FormatText
}

func (r *TextRenderer) Render(w ResponseWriter, page Page, rows Rows) (int, error) {
	loc := page.Localizer
	setDownloadHeaders(w, textContentType, documentName(page, FormatText))

	out := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(out, "%s\t%s\n", loc.String("users"), loc.String("count")); err != nil {
		return 0, err
	}

	written := 0
	for rows.Next() {
		rec := rows.Row()
		if _, err := fmt.Fprintf(out, "%s\t%d\n", loc.FullName(rec.FirstName, rec.LastName), rec.Count); err != nil {
			return written, err
		}
		written++
	}
	if err := rows.Err(); err != nil {
		return written, err
	}

	return written, out.Flush()
}
