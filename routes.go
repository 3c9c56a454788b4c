package puizcloud

import (
	"errors"
	"net/url"
	"strings"
)

// BrowsePrefix is the route every listing and file is served under.
const BrowsePrefix = "/browse/"

var errBadComponent = errors.New("invalid path component")

// Routes builds browse URLs. It is the only producer of hrefs in rendered
// pages.
type Routes struct {
	prefix string
}

func NewRoutes() *Routes {
	return &Routes{prefix: BrowsePrefix}
}

// BrowseURL returns the URL for rel, a slash-separated path below the root.
// Each component is percent-escaped on its own; empty, "." and ".."
// components and NUL bytes are refused.
func (r *Routes) BrowseURL(rel string) (string, error) {
	if rel == "" {
		return r.prefix, nil
	}
	parts := strings.Split(rel, "/")
	for i, part := range parts {
		if part == "" || part == "." || part == ".." || strings.ContainsRune(part, 0) {
			return "", errBadComponent
		}
		parts[i] = url.PathEscape(part)
	}
	return r.prefix + strings.Join(parts, "/"), nil
}
