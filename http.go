package puizcloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/alioygur/gores"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/thejerf/suture/v4"
)

type HTTPService struct {
	addr     string
	resolver *Resolver
	lister   *Lister
	routes   *Routes
	renderer *Renderer
}

func NewHTTPService(config *Config, root *ServedRoot) (*HTTPService, error) {
	routes := NewRoutes()
	renderer, err := NewRenderer(routes, config.HumanSizes)
	if err != nil {
		return nil, err
	}
	return &HTTPService{
		addr:     config.Addr(),
		resolver: NewResolver(root, config.Symlinks),
		lister:   NewLister(root, config.Symlinks),
		routes:   routes,
		renderer: renderer,
	}, nil
}

func (h *HTTPService) Handler() http.Handler {
	rtr := chi.NewRouter()
	rtr.Use(middleware.RealIP)
	rtr.Use(middleware.Logger)
	rtr.Use(middleware.Recoverer)
	rtr.Use(middleware.GetHead)

	rtr.Get("/", h.routeGetIndex)
	rtr.Get("/browse", h.routeGetIndex)
	rtr.Get("/browse/*", h.routeGetBrowse)

	return rtr
}

func (h *HTTPService) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    h.addr,
		Handler: h.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		// a port that cannot be bound is fatal for the whole tree
		return fmt.Errorf("listen %s: %w: %w", h.addr, suture.ErrTerminateSupervisorTree, err)
	case <-ctx.Done():
	}

	log.Printf("shutting down server")
	return srv.Shutdown(context.Background())
}

func (h *HTTPService) String() string {
	return "http " + h.addr
}

func (h *HTTPService) routeGetIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, BrowsePrefix, http.StatusFound)
}

// requestedPath returns the decoded wildcard tail. chi matches against the
// raw path when the request carried one, so only then is it still escaped.
func requestedPath(r *http.Request) (string, error) {
	tail := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return tail, nil
	}
	return url.PathUnescape(tail)
}

func notFound(w http.ResponseWriter, path string) {
	gores.String(w, http.StatusNotFound, fmt.Sprintf("HTTP Error 404 Not Found: %s", path))
}

func internalError(w http.ResponseWriter, path string) {
	gores.String(w, http.StatusInternalServerError, fmt.Sprintf("HTTP Error 500 Internal Server Error: %s", path))
}

func (h *HTTPService) routeGetBrowse(w http.ResponseWriter, r *http.Request) {
	path, err := requestedPath(r)
	if err != nil {
		notFound(w, chi.URLParam(r, "*"))
		return
	}

	resolved, err := h.resolver.Resolve(path)
	if err != nil {
		if errors.Is(err, ErrForbiddenPath) {
			log.Printf("rejected path %q from %s", path, r.RemoteAddr)
			notFound(w, path)
			return
		}
		log.Printf("err = %v", err)
		internalError(w, path)
		return
	}

	switch {
	case resolved.Kind == Directory, resolved.Kind == Missing && resolved.Rel == "":
		h.serveDirectory(w, r, path, resolved)
	case resolved.Kind == File:
		h.serveFile(w, r, path, resolved)
	default:
		notFound(w, path)
	}
}

func (h *HTTPService) serveDirectory(w http.ResponseWriter, r *http.Request, path string, resolved *Resolved) {
	listing, err := h.lister.List(resolved.Rel, resolved.Path)
	if err != nil {
		log.Printf("list %q: %v", resolved.Rel, err)
		internalError(w, path)
		return
	}
	listing = listing.Filter(r.URL.Query().Get("q"))

	crumbs := BuildBreadcrumbs(resolved.Rel, h.routes)

	var buf bytes.Buffer
	err = h.renderer.Render(&buf, crumbs, listing)
	if err != nil {
		log.Printf("render %q: %v", resolved.Rel, err)
		internalError(w, path)
		return
	}
	gores.HTML(w, http.StatusOK, buf.String())
}

func (h *HTTPService) serveFile(w http.ResponseWriter, r *http.Request, path string, resolved *Resolved) {
	f, err := os.Open(resolved.Path)
	if err != nil {
		log.Printf("open %q: %v", resolved.Rel, err)
		internalError(w, path)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		log.Printf("stat %q: %v", resolved.Rel, err)
		internalError(w, path)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
