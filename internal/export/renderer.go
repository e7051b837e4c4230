package export

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/noah-isme/rawrecordscount/internal/i18n"
	"github.com/noah-isme/rawrecordscount/internal/models"
)

// Rows is the single-pass row source a renderer consumes.
type Rows interface {
	Next() bool
	Row() models.ReportRow
	Err() error
}

// ResponseWriter receives a rendered document and its response headers.
type ResponseWriter interface {
	io.Writer
	SetHeader(key, value string)
}

// Buffer collects a complete response so nothing is sent until rendering succeeded.
type Buffer struct {
	bytes.Buffer
	Header http.Header
}

// NewBuffer returns an empty response buffer.
func NewBuffer() *Buffer {
	return &Buffer{Header: http.Header{}}
}

func (b *Buffer) SetHeader(key, value string) {
	b.Header.Set(key, value)
}

// GroupOption is one entry of the group selector.
type GroupOption struct {
	ID   uint
	Name string
}

// GroupMenu describes the group selector shown on the HTML page.
type GroupMenu struct {
	Mode     models.GroupMode
	Options  []GroupOption
	AllowAll bool
	Selected uint
}

// Page carries the request context every renderer needs.
type Page struct {
	Course    models.Course
	Localizer i18n.Localizer
	// Action is the report URL the selectors submit to.
	Action string
	// GroupID is the active group, 0 for all participants.
	GroupID   uint
	GroupMenu *GroupMenu
}

// Renderer writes the report in one format and returns the number of rows written.
type Renderer interface {
	Format() Format
	Render(w ResponseWriter, page Page, rows Rows) (int, error)
}

// Dispatcher maps an output format to its renderer.
type Dispatcher struct {
	renderers map[Format]Renderer
}

// NewDispatcher wires the four renderers.
func NewDispatcher(html *HTMLRenderer) *Dispatcher {
	return &Dispatcher{
		renderers: map[Format]Renderer{
			FormatHTML: html,
			FormatXLS:  NewExcelRenderer(),
			FormatODS:  NewODSRenderer(),
			FormatText: NewTextRenderer(),
		},
	}
}

// RendererFor returns the renderer for format; unknown formats get the HTML renderer.
func (d *Dispatcher) RendererFor(format Format) Renderer {
	if renderer, ok := d.renderers[ParseFormat(string(format))]; ok {
		return renderer
	}
	return d.renderers[FormatHTML]
}

func setDownloadHeaders(w ResponseWriter, contentType, filename string) {
	w.SetHeader("Content-Type", contentType)
	w.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.SetHeader("Expires", "0")
	w.SetHeader("Cache-Control", "must-revalidate,post-check=0,pre-check=0")
	w.SetHeader("Pragma", "public")
}

func documentName(page Page, format Format) string {
	return page.Localizer.String("rawrecordsreportfilename") + "." + format.Extension()
}
