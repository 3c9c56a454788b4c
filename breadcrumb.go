package puizcloud

import (
	"strings"
)

type Breadcrumb struct {
	Name string
	URL  string
}

// URLBuilder maps a path below the served root to a browse URL.
type URLBuilder interface {
	BrowseURL(rel string) (string, error)
}

// BuildBreadcrumbs returns the trail from the root ("/") to rel, root first.
// A segment whose URL cannot be built is left out.
func BuildBreadcrumbs(rel string, urls URLBuilder) []Breadcrumb {
	crumbs := []Breadcrumb{}
	if u, err := urls.BrowseURL(""); err == nil {
		crumbs = append(crumbs, Breadcrumb{Name: "/", URL: u})
	}

	var prefix []string
	for _, part := range strings.Split(rel, "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		prefix = append(prefix, part)
		u, err := urls.BrowseURL(strings.Join(prefix, "/"))
		if err != nil {
			continue
		}
		crumbs = append(crumbs, Breadcrumb{Name: part, URL: u})
	}
	return crumbs
}
