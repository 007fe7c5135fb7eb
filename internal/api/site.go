package api

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/starford/folio/internal/storage"
)

const liveReloadScript = `<script>new EventSource(%q).addEventListener("site.reload",function(){location.reload()});</script>`

// SiteHandler serves the rendered output directory of a project.
type SiteHandler struct {
	store     storage.Provider
	outputDir string
	reload    string
}

// NewSiteHandler creates a handler serving outputDir from store.
func NewSiteHandler(store storage.Provider, outputDir string) *SiteHandler {
	return &SiteHandler{store: store, outputDir: outputDir}
}

// WithLiveReload makes served HTML pages reload whenever the event stream
// at eventsURL reports a site.reload event.
func (h *SiteHandler) WithLiveReload(eventsURL string) *SiteHandler {
	h.reload = fmt.Sprintf(liveReloadScript, eventsURL)
	return h
}

// resolve maps a URL path to a file inside the output directory. Directory
// paths and extensionless page paths fall back to their index.html and .html
// files.
func (h *SiteHandler) resolve(urlPath string) (string, bool) {
	for _, seg := range strings.Split(urlPath, "/") {
		if seg == ".." {
			return "", false
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	candidates := []string{path.Join(h.outputDir, rel)}
	if rel == "" || strings.HasSuffix(urlPath, "/") {
		candidates = []string{path.Join(h.outputDir, rel, "index.html")}
	} else if path.Ext(rel) == "" {
		candidates = append(candidates,
			path.Join(h.outputDir, rel+".html"),
			path.Join(h.outputDir, rel, "index.html"))
	}
	for _, c := range candidates {
		if h.store.Exists(c) {
			return c, true
		}
	}
	return "", true
}

// ServeHTTP handles GET /*.
func (h *SiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	file, ok := h.resolve(r.URL.Path)
	if !ok {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	if file == "" {
		http.NotFound(w, r)
		return
	}
	data, err := h.store.Read(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if h.reload != "" && path.Ext(file) == ".html" {
		data = injectBeforeBodyEnd(data, h.reload)
	}
	if ct := mime.TypeByExtension(path.Ext(file)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, path.Base(file), time.Time{}, bytes.NewReader(data))
}

func injectBeforeBodyEnd(page []byte, snippet string) []byte {
	i := bytes.LastIndex(page, []byte("</body>"))
	if i < 0 {
		return append(page, snippet...)
	}
	out := make([]byte, 0, len(page)+len(snippet))
	out = append(out, page[:i]...)
	out = append(out, snippet...)
	return append(out, page[i:]...)
}
