package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/rawrecordscount/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// HTMLOptions configures the report page.
type HTMLOptions struct {
	// PictureBaseURL prefixes uploaded user pictures: <base>/<user id>/f2.
	PictureBaseURL string
	// DefaultPictureURL is shown for users without an uploaded picture.
	DefaultPictureURL string
}

// HTMLRenderer renders the interactive report page.
type HTMLRenderer struct {
	tmpl    *template.Template
	policy  *bluemonday.Policy
	options HTMLOptions
}

// NewHTMLRenderer parses the embedded page template.
func NewHTMLRenderer(options HTMLOptions) (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}

	options.PictureBaseURL = strings.TrimRight(options.PictureBaseURL, "/")
	return &HTMLRenderer{
		tmpl:    tmpl,
		policy:  bluemonday.UGCPolicy(),
		options: options,
	}, nil
}

func (r *HTMLRenderer) Format() Format {
	return FormatHTML
}

type headCell struct {
	Text  string
	Align string
	Size  string
}

type tableRow struct {
	PictureURL string
	PictureAlt string
	FullName   string
	Count      int64
}

type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

type groupSelect struct {
	Label   string
	Options []selectOption
}

type pageView struct {
	Lang        string
	Title       string
	Heading     template.HTML
	SubHeading  string
	Action      string
	CourseID    uint
	GroupID     uint
	GroupSelect *groupSelect
	FormatLabel string
	Formats     []selectOption
	Submit      string
	TableWidth  string
	Head        []headCell
	Rows        []tableRow
}

func (r *HTMLRenderer) Render(w ResponseWriter, page Page, rows Rows) (int, error) {
	loc := page.Localizer
	view := pageView{
		Lang:        loc.Language(),
		Title:       page.Course.ShortName + ": " + loc.String("pluginname"),
		Heading:     template.HTML(r.policy.Sanitize(page.Course.FullName)),
		SubHeading:  loc.String("rawrecordsreportcount"),
		Action:      page.Action,
		CourseID:    page.Course.ID,
		GroupID:     page.GroupID,
		GroupSelect: r.groupSelect(page),
		FormatLabel: loc.String("download"),
		Formats:     formatOptions(page),
		Submit:      loc.String("go"),
		TableWidth:  "90%",
		Head: []headCell{
			{Text: "", Align: "center", Size: "20%"},
			{Text: loc.String("users"), Align: "left", Size: "60%"},
			{Text: loc.String("count"), Align: "center", Size: "20%"},
		},
	}

	for rows.Next() {
		rec := rows.Row()
		fullName := loc.FullName(rec.FirstName, rec.LastName)
		view.Rows = append(view.Rows, tableRow{
			PictureURL: r.pictureURL(rec),
			PictureAlt: pictureAlt(page, rec, fullName),
			FullName:   fullName,
			Count:      rec.Count,
		})
	}
	if err := rows.Err(); err != nil {
		return len(view.Rows), err
	}

	var out bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&out, "report", view); err != nil {
		return len(view.Rows), fmt.Errorf("render report page: %w", err)
	}

	w.SetHeader("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(out.Bytes())
	return len(view.Rows), err
}

func (r *HTMLRenderer) pictureURL(rec models.ReportRow) string {
	if rec.Picture == 0 || r.options.PictureBaseURL == "" {
		return r.options.DefaultPictureURL
	}
	return fmt.Sprintf("%s/%d/f2", r.options.PictureBaseURL, rec.UserID)
}

func pictureAlt(page Page, rec models.ReportRow, fullName string) string {
	if alt := strings.TrimSpace(rec.ImageAlt); alt != "" {
		return alt
	}
	return page.Localizer.Stringf("pictureof", fullName)
}

func (r *HTMLRenderer) groupSelect(page Page) *groupSelect {
	menu := page.GroupMenu
	if menu == nil || menu.Mode == models.GroupModeNone {
		return nil
	}

	loc := page.Localizer
	label := loc.String("groupsseparate")
	if menu.Mode == models.GroupModeVisible {
		label = loc.String("groupsvisible")
	}

	options := make([]selectOption, 0, len(menu.Options)+1)
	if menu.AllowAll {
		options = append(options, selectOption{Value: "0", Label: loc.String("allparticipants"), Selected: menu.Selected == 0})
	}
	for _, group := range menu.Options {
		options = append(options, selectOption{
			Value:    fmt.Sprintf("%d", group.ID),
			Label:    group.Name,
			Selected: group.ID == menu.Selected,
		})
	}
	if len(options) == 0 {
		return nil
	}

	return &groupSelect{Label: label, Options: options}
}

func formatOptions(page Page) []selectOption {
	options := make([]selectOption, 0, len(DownloadFormats))
	for _, format := range DownloadFormats {
		options = append(options, selectOption{
			Value: string(format),
			Label: page.Localizer.String(format.labelKey()),
		})
	}
	return options
}
