package puizcloud

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
)

const PageTitle = "puizcloud"

//go:embed templates/*.html
var templates embed.FS

type Renderer struct {
	tmpl       *template.Template
	urls       URLBuilder
	humanSizes bool
}

func NewRenderer(urls URLBuilder, humanSizes bool) (*Renderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/listing.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, urls: urls, humanSizes: humanSizes}, nil
}

type listingRow struct {
	Class string
	Name  string
	URL   string
	Size  string
	Exact string
}

type listingPage struct {
	Title       string
	Breadcrumbs []Breadcrumb
	Folders     string
	Files       string
	Rows        []listingRow
}

// countLabel renders "1 folder", "0 folders", "2 folders" and so on.
func countLabel(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (r *Renderer) sizeCells(size int64) (string, string) {
	exact := strconv.FormatInt(size, 10)
	if !r.humanSizes {
		return exact, ""
	}
	return humanize.Bytes(uint64(size)), exact
}

// Render writes the listing page. Display names are escaped by the template;
// hrefs come from the URL builder.
func (r *Renderer) Render(w io.Writer, crumbs []Breadcrumb, listing *Listing) error {
	page := listingPage{
		Title:       PageTitle,
		Breadcrumbs: crumbs,
		Folders:     countLabel(len(listing.Subfolders), "folder"),
		Files:       countLabel(len(listing.Files), "file"),
		Rows:        make([]listingRow, 0, len(listing.Subfolders)+len(listing.Files)),
	}

	for _, s := range listing.Subfolders {
		u, err := r.urls.BrowseURL(s.Rel)
		if err != nil {
			return fmt.Errorf("url for %q: %w", s.Rel, err)
		}
		page.Rows = append(page.Rows, listingRow{Class: "folder", Name: s.Name(), URL: u, Size: "--"})
	}
	for _, f := range listing.Files {
		u, err := r.urls.BrowseURL(f.Rel)
		if err != nil {
			return fmt.Errorf("url for %q: %w", f.Rel, err)
		}
		size, exact := r.sizeCells(f.Size)
		page.Rows = append(page.Rows, listingRow{Class: "file", Name: f.Name(), URL: u, Size: size, Exact: exact})
	}

	return r.tmpl.Execute(w, page)
}
