package export

import "strings"

// Format selects how the report is rendered.
type Format string

const (
	FormatHTML Format = "html"
	FormatXLS  Format = "xls"
	FormatODS  Format = "ods"
	FormatText Format = "txt"
)

// DownloadFormats lists the formats offered by the format selector, in display order.
var DownloadFormats = []Format{FormatXLS, FormatODS, FormatText}

// ParseFormat cleans an output token. Unknown or empty tokens render as HTML.
func ParseFormat(raw string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatXLS:
		return FormatXLS
	case FormatODS:
		return FormatODS
	case FormatText:
		return FormatText
	default:
		return FormatHTML
	}
}

// Extension is the file extension of downloaded documents.
func (f Format) Extension() string {
	return string(f)
}

// IsDownload reports whether the format produces an attachment rather than a page.
func (f Format) IsDownload() bool {
	return f != FormatHTML
}

func (f Format) labelKey() string {
	switch f {
	case FormatXLS:
		return "downloadexcel"
	case FormatODS:
		return "downloadods"
	case FormatText:
		return "downloadtext"
	default:
		return ""
	}
}
