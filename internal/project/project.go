// Package project bundles what a render needs to know about one project:
// its files, output format, output location, and listing cache.
package project

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/folio/internal/glob"
	"github.com/starford/folio/internal/listingcache"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Default locations inside a project.
const (
	DefaultOutputDir  = "_site"
	DefaultScratchDir = ".folio"
)

// DefaultExtensions are the source extensions rendered as pages.
var DefaultExtensions = []string{".md", ".qmd"}

// Context is the project a render operates on.
type Context struct {
	Store      storage.Provider
	Cache      *listingcache.Cache
	Format     models.OutputFormat
	OutputDir  string
	Extensions []string
}

// New builds a Context with defaults filled in.
func New(store storage.Provider, cache *listingcache.Cache, format models.OutputFormat) *Context {
	return &Context{
		Store:      store,
		Cache:      cache,
		Format:     format,
		OutputDir:  DefaultOutputDir,
		Extensions: DefaultExtensions,
	}
}

// Dir returns the absolute project root.
func (c *Context) Dir() string { return c.Store.Root() }

// Files returns every project-relative file in slash form, sorted.
func (c *Context) Files() ([]string, error) {
	metas, err := c.Store.List("")
	if err != nil {
		return nil, err
	}
	return sortedPaths(metas), nil
}

// Pages returns every renderable source file, sorted.
func (c *Context) Pages() ([]string, error) {
	metas, err := c.Store.List("", c.Extensions...)
	if err != nil {
		return nil, err
	}
	return sortedPaths(metas), nil
}

// IsPage reports whether rel has a renderable extension.
func (c *Context) IsPage(rel string) bool {
	ext := strings.ToLower(path.Ext(rel))
	for _, e := range c.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Rel converts an absolute or relative path to project-relative slash form.
// ok is false when the path lies outside the project.
func (c *Context) Rel(p string) (string, bool) {
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(c.Dir(), p)
		if err != nil || strings.HasPrefix(r, "..") {
			return "", false
		}
		p = r
	}
	rel := glob.Normalize(p)
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	return rel, true
}

// OutputPath maps a source page to its output file.
func (c *Context) OutputPath(source string) string {
	return path.Join(c.OutputDir, c.outputName(source))
}

// Href maps a source file to its site-absolute link.
func (c *Context) Href(source string) string {
	return "/" + c.outputName(source)
}

func (c *Context) outputName(source string) string {
	ext := c.Format.Extension
	if ext == "" {
		ext = ".html"
	}
	source = glob.Normalize(source)
	return strings.TrimSuffix(source, path.Ext(source)) + ext
}

func sortedPaths(metas []storage.FileInfo) []string {
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, glob.Normalize(m.Path))
	}
	sort.Strings(out)
	return out
}
